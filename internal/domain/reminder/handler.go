package reminder

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vetclinic/vetclinic/internal/domain/scheduling"
	"github.com/vetclinic/vetclinic/internal/platform/auth"
)

// alertScanLimit caps how many of an owner's appointments are inspected.
const alertScanLimit = 500

// OwnerLister returns an owner's appointments, newest first.
type OwnerLister interface {
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*scheduling.Appointment, int, error)
}

type Handler struct {
	appts OwnerLister
}

func NewHandler(appts OwnerLister) *Handler {
	return &Handler{appts: appts}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments/alerts", h.StatusAlerts, auth.RequireRole(auth.RoleOwner))
}

// StatusAlerts handles GET /appointments/alerts for the calling owner.
func (h *Handler) StatusAlerts(c echo.Context) error {
	ctx := c.Request().Context()
	owner := auth.UserIDFromContext(ctx)
	if owner == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	items, _, err := h.appts.ListByOwner(ctx, owner, alertScanLimit, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "appointment store unavailable").SetInternal(err)
	}
	alerts := StatusAlerts(items)
	if alerts == nil {
		alerts = []Alert{}
	}
	return c.JSON(http.StatusOK, alerts)
}
