package reference

import (
	"net/http"

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
	read := api.Group("/reference", auth.RequireRole(auth.RoleBilling))
	read.GET("/fee-items", h.ListFeeItems)
}

func (h *Handler) ListFeeItems(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListFeeItems(c.Request().Context(), c.QueryParam("revision"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
