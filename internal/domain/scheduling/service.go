package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrForbidden is returned when an owner acts on another owner's appointment.
var ErrForbidden = errors.New("appointment belongs to another owner")

// Caller is the authenticated actor behind a request.
type Caller struct {
	Actor  Actor
	UserID string
}

// Metrics receives booking and transition outcomes.
type Metrics interface {
	ObserveBooking(kind, outcome string)
	ObserveTransition(event, outcome string)
}

type noMetrics struct{}

func (noMetrics) ObserveBooking(string, string)    {}
func (noMetrics) ObserveTransition(string, string) {}

type Service struct {
	appointments AppointmentRepository
	records      MedicalRecordWriter
	stock        InventoryAdjuster
	policy       Policy

	tx       Transactor
	notifier Notifier
	metrics  Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService wires the scheduler. records and stock may be nil, in which
// case consultation completion skips those side effects.
func NewService(appts AppointmentRepository, records MedicalRecordWriter, stock InventoryAdjuster, policy Policy) *Service {
	return &Service{
		appointments: appts,
		records:      records,
		stock:        stock,
		policy:       policy,
		tx:           noTx{},
		metrics:      noMetrics{},
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
}

func (s *Service) SetTransactor(tx Transactor) {
	if tx != nil {
		s.tx = tx
	}
}

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

func (s *Service) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

func (s *Service) SetLogger(l zerolog.Logger) { s.logger = l }

// SetClock overrides the source of "now" used by the past-date check.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Policy returns the calendar policy in force.
func (s *Service) Policy() Policy { return s.policy }

// -- Creation --

// Book creates a Pending appointment requested by an owner.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	a, err := s.book(ctx, req)
	s.metrics.ObserveBooking("owner", outcomeOf(err))
	return a, err
}

func (s *Service) book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := validateSubject(req); err != nil {
		return nil, err
	}
	if !IsBookableReason(req.Reason) {
		return nil, invalidInput("unknown visit reason %q", req.Reason)
	}
	status, err := Initial(EventBook, ActorOwner)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckBooking(req.Date, req.Time, s.now()); err != nil {
		return nil, err
	}
	if err := s.checkSlot(ctx, req.Date, req.Time, uuid.Nil); err != nil {
		return nil, err
	}

	a := newAppointment(req, status)
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, storeErr("create appointment", err)
	}
	return a, nil
}

// CreateWalkIn records a staff-created appointment that starts Approved.
// Walk-ins honour closed days and slot conflicts but may be dated in the past.
func (s *Service) CreateWalkIn(ctx context.Context, req BookingRequest) (*Appointment, error) {
	a, err := s.createWalkIn(ctx, req)
	s.metrics.ObserveBooking("walk_in", outcomeOf(err))
	return a, err
}

func (s *Service) createWalkIn(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := validateSubject(req); err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, invalidInput("reason is required")
	}
	status, err := Initial(EventWalkIn, ActorStaff)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckWalkIn(req.Date, req.Time); err != nil {
		return nil, err
	}
	if err := s.checkSlot(ctx, req.Date, req.Time, uuid.Nil); err != nil {
		return nil, err
	}

	a := newAppointment(req, status)
	a.WalkIn = true
	a.IsSeenByOwner = true
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, storeErr("create walk-in", err)
	}
	return a, nil
}

func newAppointment(req BookingRequest, status Status) *Appointment {
	return &Appointment{
		OwnerID: strings.TrimSpace(req.OwnerID),
		PetID:   strings.TrimSpace(req.PetID),
		PetName: strings.TrimSpace(req.PetName),
		Date:    req.Date,
		Time:    req.Time,
		Reason:  req.Reason,
		Status:  status,
	}
}

func validateSubject(req BookingRequest) error {
	switch {
	case strings.TrimSpace(req.OwnerID) == "":
		return invalidInput("owner_id is required")
	case strings.TrimSpace(req.PetID) == "":
		return invalidInput("pet_id is required")
	case strings.TrimSpace(req.PetName) == "":
		return invalidInput("pet_name is required")
	}
	return nil
}

func (s *Service) checkSlot(ctx context.Context, date, hhmm string, exclude uuid.UUID) error {
	existing, err := s.appointments.ListByDate(ctx, date)
	if err != nil {
		return storeErr("list appointments by date", err)
	}
	return CheckConflict(date, hhmm, existing, exclude)
}

// -- Transitions --

// Approve moves a Pending appointment to Approved.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.Transition(ctx, id, EventApprove, Caller{Actor: ActorStaff}, "")
}

// Decline cancels a Pending appointment on behalf of staff.
func (s *Service) Decline(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.Transition(ctx, id, EventDecline, Caller{Actor: ActorStaff}, reason)
}

// Cancel cancels a Pending (owner) or Approved (owner or staff) appointment.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, caller Caller, reason string) (*Appointment, error) {
	return s.Transition(ctx, id, EventCancel, caller, reason)
}

// Transition applies approve, decline or cancel. Completion and reschedule
// carry extra data and have their own methods.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, ev Event, caller Caller, reason string) (*Appointment, error) {
	a, err := s.transition(ctx, id, ev, caller, reason)
	s.metrics.ObserveTransition(string(ev), outcomeOf(err))
	if err != nil {
		return nil, err
	}
	s.notify(ctx, a)
	return a, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, ev Event, caller Caller, reason string) (*Appointment, error) {
	switch ev {
	case EventApprove, EventDecline, EventCancel:
	default:
		return nil, &TransitionError{Event: ev, Actor: caller.Actor}
	}
	reason = strings.TrimSpace(reason)
	if RequiresReason(ev) && reason == "" {
		return nil, ErrMissingReason
	}

	a, err := s.load(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	to, err := Next(a.Status, ev, caller.Actor)
	if err != nil {
		return nil, err
	}

	a.Status = to
	if to == StatusCancelled {
		actor := caller.Actor
		a.CancellationReason = &reason
		a.CancelledBy = &actor
	}
	a.IsSeenByOwner = caller.Actor == ActorOwner
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, storeErr("update appointment", err)
	}
	return a, nil
}

// Reschedule moves a Pending appointment to a new date and time. The new
// slot is re-validated against the policy and every other appointment.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, caller Caller, date, hhmm string) (*Appointment, error) {
	a, err := s.reschedule(ctx, id, caller, date, hhmm)
	s.metrics.ObserveTransition(string(EventReschedule), outcomeOf(err))
	if err != nil {
		return nil, err
	}
	s.notify(ctx, a)
	return a, nil
}

func (s *Service) reschedule(ctx context.Context, id uuid.UUID, caller Caller, date, hhmm string) (*Appointment, error) {
	a, err := s.load(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	to, err := Next(a.Status, EventReschedule, caller.Actor)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckBooking(date, hhmm, s.now()); err != nil {
		return nil, err
	}
	if err := s.checkSlot(ctx, date, hhmm, a.ID); err != nil {
		return nil, err
	}

	a.Status = to
	a.Date = date
	a.Time = hhmm
	a.IsSeenByOwner = false
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, storeErr("update appointment", err)
	}
	return a, nil
}

// CompleteConsultation closes an Approved appointment. The appointment
// update, inventory deductions, medical record and optional follow-up are
// written inside one Transactor call.
func (s *Service) CompleteConsultation(ctx context.Context, id uuid.UUID, c Consultation) (*ConsultationResult, error) {
	res, err := s.complete(ctx, id, c)
	s.metrics.ObserveTransition(string(EventComplete), outcomeOf(err))
	if err != nil {
		return nil, err
	}
	s.notify(ctx, res.Appointment)
	if res.FollowUp != nil {
		s.notify(ctx, res.FollowUp)
	}
	return res, nil
}

func (s *Service) complete(ctx context.Context, id uuid.UUID, c Consultation) (*ConsultationResult, error) {
	if c.FollowUpDate != "" {
		if _, err := ParseDate(c.FollowUpDate, s.policy.location()); err != nil {
			return nil, err
		}
	}
	dispensed, err := mergeDispensed(c.Dispensed)
	if err != nil {
		return nil, err
	}

	var res ConsultationResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.load(ctx, id, Caller{Actor: ActorStaff})
		if err != nil {
			return err
		}
		to, err := Next(a.Status, EventComplete, ActorStaff)
		if err != nil {
			return err
		}
		// The follow-up is Approved on creation, so it must respect closed
		// days and must not overlap another accepted appointment.
		if c.FollowUpDate != "" {
			if err := s.policy.CheckWalkIn(c.FollowUpDate, a.Time); err != nil {
				return err
			}
			if err := s.checkSlot(ctx, c.FollowUpDate, a.Time, uuid.Nil); err != nil {
				return err
			}
		}

		a.Status = to
		a.Diagnosis = strPtr(strings.TrimSpace(c.Diagnosis))
		a.Treatment = strPtr(strings.TrimSpace(c.Treatment))
		a.PrescriptionDetails = strPtr(strings.TrimSpace(c.PrescriptionDetails))
		a.Notes = strPtr(strings.TrimSpace(c.Notes))
		a.FollowUpDate = strPtr(c.FollowUpDate)
		a.IsSeenByOwner = false
		if err := s.appointments.Update(ctx, a); err != nil {
			return storeErr("update appointment", err)
		}

		if s.stock != nil {
			for _, d := range dispensed {
				key := a.ID.String() + ":" + d.ItemID.String()
				reason := fmt.Sprintf("dispensed for appointment %s", a.ID)
				if err := s.stock.Adjust(ctx, d.ItemID, -d.Quantity, reason, key); err != nil {
					return storeErr("adjust inventory", err)
				}
			}
		}
		if s.records != nil {
			if err := s.records.CreateFromConsultation(ctx, a, dispensed); err != nil {
				return storeErr("create medical record", err)
			}
		}

		res.Appointment = a
		if c.FollowUpDate == "" {
			return nil
		}
		source := a.ID
		f := &Appointment{
			OwnerID:    a.OwnerID,
			PetID:      a.PetID,
			PetName:    a.PetName,
			Date:       c.FollowUpDate,
			Time:       a.Time,
			Reason:     ReasonFollowUp,
			Status:     StatusApproved,
			FollowUpOf: &source,
		}
		if err := s.appointments.Create(ctx, f); err != nil {
			return storeErr("create follow-up", err)
		}
		res.FollowUp = f
		return nil
	})
	if err != nil {
		var te *TransitionError
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrInvalidInput) ||
			errors.Is(err, ErrClinicClosed) || errors.Is(err, ErrSlotConflict) || errors.As(err, &te) {
			return nil, err
		}
		return nil, storeErr("complete consultation", err)
	}
	return &res, nil
}

func mergeDispensed(items []DispensedItem) ([]DispensedItem, error) {
	var out []DispensedItem
	index := make(map[uuid.UUID]int)
	for _, d := range items {
		if d.ItemID == uuid.Nil {
			return nil, invalidInput("dispensed item_id is required")
		}
		if d.Quantity <= 0 {
			return nil, invalidInput("dispensed quantity must be positive")
		}
		if i, ok := index[d.ItemID]; ok {
			out[i].Quantity += d.Quantity
			continue
		}
		index[d.ItemID] = len(out)
		out = append(out, d)
	}
	return out, nil
}

// MarkSeen records that the owner has read the latest status change.
func (s *Service) MarkSeen(ctx context.Context, id uuid.UUID, caller Caller) (*Appointment, error) {
	a, err := s.load(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if a.IsSeenByOwner {
		return a, nil
	}
	a.IsSeenByOwner = true
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, storeErr("update appointment", err)
	}
	return a, nil
}

// -- Reads --

func (s *Service) Get(ctx context.Context, id uuid.UUID, caller Caller) (*Appointment, error) {
	return s.load(ctx, id, caller)
}

// ListByDate returns every appointment on date, cancelled ones included.
func (s *Service) ListByDate(ctx context.Context, date string) ([]*Appointment, error) {
	if _, err := ParseDate(date, s.policy.location()); err != nil {
		return nil, err
	}
	items, err := s.appointments.ListByDate(ctx, date)
	if err != nil {
		return nil, storeErr("list appointments by date", err)
	}
	return items, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Appointment, int, error) {
	items, total, err := s.appointments.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, storeErr("list appointments by owner", err)
	}
	return items, total, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID, caller Caller) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get appointment", err)
	}
	if caller.Actor == ActorOwner && a.OwnerID != caller.UserID {
		return nil, ErrForbidden
	}
	return a, nil
}

func (s *Service) notify(ctx context.Context, a *Appointment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.AppointmentChanged(ctx, a); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("appointment notification failed")
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrClinicClosed):
		return "clinic_closed"
	case errors.Is(err, ErrPastDateTime):
		return "past_date_time"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrMissingReason):
		return "missing_reason"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "invalid_input"
	}
}
