package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vetclinic/vetclinic/internal/domain/scheduling"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "inventory").Logger()}
}

func (s *Service) CreateItem(ctx context.Context, it *Item) error {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if it.Quantity < 0 {
		return fmt.Errorf("%w: initial quantity must not be negative", ErrInvalidInput)
	}
	return s.repo.Create(ctx, it)
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListAdjustments(ctx context.Context, itemID uuid.UUID, limit int) ([]*Adjustment, error) {
	if _, err := s.repo.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListAdjustments(ctx, itemID, limit)
}

// Adjust moves an item's quantity by delta. An empty key gets a fresh one;
// a key that was already applied leaves stock unchanged and returns the
// item as it is.
func (s *Service) Adjust(ctx context.Context, itemID uuid.UUID, delta int, reason, key string) (*Item, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta must not be zero", ErrInvalidInput)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if key == "" {
		key = uuid.NewString()
	}
	if _, err := s.repo.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	applied, err := s.repo.ApplyAdjustment(ctx, &Adjustment{
		ItemID:         itemID,
		Delta:          delta,
		Reason:         reason,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}
	if !applied {
		s.logger.Info().Str("item_id", itemID.String()).Str("key", key).Msg("adjustment already applied")
	}
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it.Quantity < 0 {
		s.logger.Warn().Str("item_id", itemID.String()).Int("quantity", it.Quantity).Msg("stock below zero")
	}
	return it, nil
}

// ConsultationAdjuster deducts dispensed stock on behalf of the scheduler.
// It implements scheduling.InventoryAdjuster.
type ConsultationAdjuster struct {
	svc *Service
}

func NewConsultationAdjuster(svc *Service) *ConsultationAdjuster {
	return &ConsultationAdjuster{svc: svc}
}

func (a *ConsultationAdjuster) Adjust(ctx context.Context, itemID uuid.UUID, delta int, reason, key string) error {
	_, err := a.svc.Adjust(ctx, itemID, delta, reason, key)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return fmt.Errorf("%w: item %s: %v", scheduling.ErrInvalidInput, itemID, err)
	}
	return err
}
