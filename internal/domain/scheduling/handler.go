package scheduling

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
	// Role checks are route-level: a prefix-less group would also claim
	// unknown paths and answer 403 instead of 404.
	owner := auth.RequireRole(auth.RoleOwner)
	api.POST("/appointments", h.Book, owner)
	api.GET("/appointments/mine", h.ListMine, owner)
	api.POST("/appointments/:id/reschedule", h.Reschedule, owner)
	api.POST("/appointments/:id/seen", h.MarkSeen, owner)

	staff := auth.RequireRole(auth.RoleStaff)
	api.POST("/appointments/walk-in", h.CreateWalkIn, staff)
	api.GET("/appointments", h.ListByDate, staff)

	both := auth.RequireRole(auth.RoleOwner, auth.RoleStaff)
	api.GET("/appointments/:id", h.Get, both)
	api.POST("/appointments/:id/transition", h.Transition, both)
}

// CallerFromContext maps the authenticated identity to a scheduling actor.
// Staff and admins act as staff; everybody else acts as an owner.
func CallerFromContext(c echo.Context) Caller {
	ctx := c.Request().Context()
	actor := ActorOwner
	if auth.IsStaff(ctx) {
		actor = ActorStaff
	}
	return Caller{Actor: actor, UserID: auth.UserIDFromContext(ctx)}
}

type bookingBody struct {
	OwnerID string `json:"owner_id"`
	PetID   string `json:"pet_id"`
	PetName string `json:"pet_name"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Reason  string `json:"reason"`
}

type transitionBody struct {
	Event        Event         `json:"event"`
	Reason       string        `json:"reason"`
	Consultation *Consultation `json:"consultation"`
}

type rescheduleBody struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (h *Handler) Book(c echo.Context) error {
	var body bookingBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req := BookingRequest{
		OwnerID: auth.UserIDFromContext(c.Request().Context()),
		PetID:   body.PetID,
		PetName: body.PetName,
		Date:    body.Date,
		Time:    body.Time,
		Reason:  body.Reason,
	}
	a, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) CreateWalkIn(c echo.Context) error {
	var body bookingBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.CreateWalkIn(c.Request().Context(), BookingRequest(body))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id, CallerFromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListByDate(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date is required")
	}
	items, err := h.svc.ListByDate(c.Request().Context(), date)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListMine(c echo.Context) error {
	pg := pagination.FromContext(c)
	ownerID := auth.UserIDFromContext(c.Request().Context())
	items, total, err := h.svc.ListByOwner(c.Request().Context(), ownerID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Transition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body transitionBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	caller := CallerFromContext(c)
	ctx := c.Request().Context()

	if body.Event == EventComplete {
		if caller.Actor != ActorStaff {
			return echo.NewHTTPError(http.StatusForbidden, "required role: staff")
		}
		var cons Consultation
		if body.Consultation != nil {
			cons = *body.Consultation
		}
		res, err := h.svc.CompleteConsultation(ctx, id, cons)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, res)
	}

	a, err := h.svc.Transition(ctx, id, body.Event, caller, body.Reason)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body rescheduleBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Reschedule(c.Request().Context(), id, CallerFromContext(c), body.Date, body.Time)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) MarkSeen(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.MarkSeen(c.Request().Context(), id, CallerFromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func httpError(err error) error {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, ErrClinicClosed), errors.Is(err, ErrPastDateTime):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, ErrSlotConflict), errors.Is(err, ErrInvalidTransition):
		code = http.StatusConflict
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "appointment store unavailable").SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error())
}
