// Package inventory keeps clinic stock levels and the ledger of adjustments
// applied to them.
package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("inventory item not found")
	ErrInvalidInput = errors.New("invalid inventory input")
)

// Item maps to the inventory_item table. Quantity may go negative when more
// is dispensed than was recorded in stock.
type Item struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category,omitempty"`
	Unit      string    `db:"unit" json:"unit,omitempty"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Adjustment is one ledger entry. IdempotencyKey is unique across the ledger.
type Adjustment struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ItemID         uuid.UUID `db:"item_id" json:"item_id"`
	Delta          int       `db:"delta" json:"delta"`
	Reason         string    `db:"reason" json:"reason"`
	IdempotencyKey string    `db:"idempotency_key" json:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
