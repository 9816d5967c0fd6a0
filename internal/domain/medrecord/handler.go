package medrecord

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vetclinic/vetclinic/internal/domain/scheduling"
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
	both := auth.RequireRole(auth.RoleOwner, auth.RoleStaff)
	api.GET("/pets/:id/medical-records", h.ListByPet, both)
	api.GET("/medical-records/:appointment_id", h.GetByAppointment, both)
}

func (h *Handler) ListByPet(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPet(c.Request().Context(), c.Param("id"), scheduling.CallerFromContext(c), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetByAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("appointment_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	rec, err := h.svc.GetByAppointment(c.Request().Context(), id, scheduling.CallerFromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, errPetIDRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusServiceUnavailable, "medical record store unavailable").SetInternal(err)
}
