package billing

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentclaim/dentclaim/internal/platform/auth"
	"github.com/dentclaim/dentclaim/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleBilling))
	g.POST("/encounters/:id/billing", h.Derive)
	g.GET("/encounters/:id/billing", h.GetByEncounter)
	g.POST("/billings/:id/payment", h.MarkPaid)
	g.GET("/billings", h.List)
}

func (h *Handler) Derive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.Derive(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, NewDeriveResponse(b))
}

func (h *Handler) GetByEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetByEncounter(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) MarkPaid(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.MarkPaid(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) List(c echo.Context) error {
	var f ListFilter
	if ym := c.QueryParam("year_month"); ym != "" {
		m, err := time.Parse("200601", ym)
		if err != nil || len(ym) != 6 {
			return echo.NewHTTPError(http.StatusBadRequest, "year_month must be YYYYMM")
		}
		f.Month = m
	}
	f.PaymentStatus = c.QueryParam("payment_status")

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		var be *Error
		if errors.As(err, &be) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

var kindStatus = map[Kind]int{
	KindEncounterNotFound:  http.StatusNotFound,
	KindNotFound:           http.StatusNotFound,
	KindFeeTableEmpty:      http.StatusUnprocessableEntity,
	KindPersistenceFailure: http.StatusInternalServerError,
}

// httpError renders an *Error as {kind, detail} with the status of its kind.
func httpError(err error) error {
	var be *Error
	if !errors.As(err, &be) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	status, ok := kindStatus[be.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return echo.NewHTTPError(status, map[string]string{
		"kind":   string(be.Kind),
		"detail": be.Detail,
	})
}
