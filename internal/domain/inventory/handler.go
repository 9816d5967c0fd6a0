package inventory

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vetclinic/vetclinic/internal/platform/auth"
	"github.com/vetclinic/vetclinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole(auth.RoleStaff)
	api.GET("/inventory", h.List, staff)
	api.POST("/inventory", h.Create, staff)
	api.GET("/inventory/:id", h.Get, staff)
	api.GET("/inventory/:id/adjustments", h.ListAdjustments, staff)
	api.POST("/inventory/:id/adjustments", h.Adjust, staff)
}

type adjustmentBody struct {
	Delta          int    `json:"delta"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *Handler) Create(c echo.Context) error {
	var it Item
	if err := c.Bind(&it); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	it.ID = uuid.Nil
	if err := h.svc.CreateItem(c.Request().Context(), &it); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	it, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListItems(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListAdjustments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	pg := pagination.FromContext(c)
	items, err := h.svc.ListAdjustments(c.Request().Context(), id, pg.Limit)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Adjustment{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Adjust(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	var body adjustmentBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	it, err := h.svc.Adjust(c.Request().Context(), id, body.Delta, body.Reason, body.IdempotencyKey)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, it)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusServiceUnavailable, "inventory store unavailable").SetInternal(err)
}
