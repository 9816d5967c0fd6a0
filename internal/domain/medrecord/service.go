package medrecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vetclinic/vetclinic/internal/domain/scheduling"
)

var errPetIDRequired = errors.New("pet id is required")

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "medrecord").Logger()}
}

// CreateFromConsultation records the outcome of a Done appointment. Calling
// it again for the same appointment is a no-op.
func (s *Service) CreateFromConsultation(ctx context.Context, a *scheduling.Appointment, dispensed []scheduling.DispensedItem) error {
	if a.Status != scheduling.StatusDone {
		return fmt.Errorf("appointment %s is %s, not Done", a.ID, a.Status)
	}
	rec := &Record{
		AppointmentID:       a.ID,
		OwnerID:             a.OwnerID,
		PetID:               a.PetID,
		PetName:             a.PetName,
		VisitDate:           a.Date,
		Reason:              a.Reason,
		Diagnosis:           deref(a.Diagnosis),
		Treatment:           deref(a.Treatment),
		PrescriptionDetails: deref(a.PrescriptionDetails),
		Notes:               deref(a.Notes),
		FollowUpDate:        a.FollowUpDate,
		Dispensed:           make([]DispensedItem, 0, len(dispensed)),
	}
	for _, d := range dispensed {
		rec.Dispensed = append(rec.Dispensed, DispensedItem{ItemID: d.ItemID, Quantity: d.Quantity})
	}

	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return fmt.Errorf("create medical record: %w", err)
	}
	if !created {
		s.logger.Info().Str("appointment_id", a.ID.String()).Msg("medical record already exists")
	}
	return nil
}

// GetByAppointment returns the record of one visit. Owners may only read
// their own.
func (s *Service) GetByAppointment(ctx context.Context, appointmentID uuid.UUID, caller scheduling.Caller) (*Record, error) {
	rec, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if caller.Actor == scheduling.ActorOwner && rec.OwnerID != caller.UserID {
		return nil, scheduling.ErrForbidden
	}
	return rec, nil
}

func (s *Service) ListByPet(ctx context.Context, petID string, caller scheduling.Caller, limit, offset int) ([]*Record, int, error) {
	if petID == "" {
		return nil, 0, errPetIDRequired
	}
	owner := ""
	if caller.Actor == scheduling.ActorOwner {
		owner = caller.UserID
	}
	return s.repo.ListByPet(ctx, petID, owner, limit, offset)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
