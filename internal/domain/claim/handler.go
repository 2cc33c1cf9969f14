package claim

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dentclaim/dentclaim/internal/platform/auth"
)

// MIMEShiftJIS is the content type of a downloaded claim file.
const MIMEShiftJIS = "text/plain; charset=Shift_JIS"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/receipts", auth.RequireRole(auth.RoleBilling))
	g.GET("/:yearMonth", h.Generate)
}

func (h *Handler) Generate(c echo.Context) error {
	out, err := h.svc.GenerateMonthly(c.Request().Context(), c.Param("yearMonth"), c.QueryParam("format"))
	if err != nil {
		return httpError(err)
	}
	if out.Format == FormatUKE {
		c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+out.Filename)
		return c.Blob(http.StatusOK, MIMEShiftJIS, out.Data)
	}
	return c.JSON(http.StatusOK, out.Preview)
}

var kindStatus = map[Kind]int{
	KindNoPaidRows:         http.StatusNotFound,
	KindInvalidMonth:       http.StatusBadRequest,
	KindInvalidFormat:      http.StatusBadRequest,
	KindQueryFailure:       http.StatusInternalServerError,
	KindPersistenceFailure: http.StatusInternalServerError,
}

func httpError(err error) error {
	var ce *Error
	if !errors.As(err, &ce) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	status, ok := kindStatus[ce.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return echo.NewHTTPError(status, map[string]string{
		"kind":   string(ce.Kind),
		"detail": ce.Detail,
	})
}
