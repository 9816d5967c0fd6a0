// Package medrecord stores the append-only medical history produced when a
// consultation completes an appointment.
package medrecord

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("medical record not found")

// DispensedItem is an inventory item handed out during the visit.
type DispensedItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

// Record maps to the medical_record table. There is at most one per
// appointment.
type Record struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	AppointmentID       uuid.UUID       `db:"appointment_id" json:"appointment_id"`
	OwnerID             string          `db:"owner_id" json:"owner_id"`
	PetID               string          `db:"pet_id" json:"pet_id"`
	PetName             string          `db:"pet_name" json:"pet_name"`
	VisitDate           string          `db:"visit_date" json:"visit_date"`
	Reason              string          `db:"reason" json:"reason"`
	Diagnosis           string          `db:"diagnosis" json:"diagnosis"`
	Treatment           string          `db:"treatment" json:"treatment"`
	PrescriptionDetails string          `db:"prescription_details" json:"prescription_details,omitempty"`
	Notes               string          `db:"notes" json:"notes,omitempty"`
	FollowUpDate        *string         `db:"follow_up_date" json:"follow_up_date,omitempty"`
	Dispensed           []DispensedItem `db:"dispensed" json:"dispensed"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}
