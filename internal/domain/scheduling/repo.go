package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// AppointmentRepository is the document-store contract the scheduler runs
// against. Conflict checks read with ListByDate and write with Create/Update
// in separate round trips, so two concurrent bookings of one slot can both
// succeed unless an implementation enforces uniqueness itself.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	ListByDate(ctx context.Context, date string) ([]*Appointment, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Appointment, int, error)
}

// MedicalRecordWriter creates the medical record tied to a completed
// appointment. Implementations must be idempotent per appointment id.
type MedicalRecordWriter interface {
	CreateFromConsultation(ctx context.Context, a *Appointment, dispensed []DispensedItem) error
}

// InventoryAdjuster applies a quantity delta to an inventory item. key makes
// the adjustment safe to retry.
type InventoryAdjuster interface {
	Adjust(ctx context.Context, itemID uuid.UUID, delta int, reason, key string) error
}

// Notifier is told about every appointment whose status changed.
type Notifier interface {
	AppointmentChanged(ctx context.Context, a *Appointment) error
}

// Transactor runs fn so that every store call made with the context it
// receives commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
