package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Status is the canonical appointment status. Display labels belong to clients.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusDone      Status = "Done"
	StatusCancelled Status = "Cancelled"
)

// IsTerminal reports whether no further transition is accepted from s.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Actor identifies who initiates a lifecycle event.
type Actor string

const (
	ActorOwner Actor = "owner"
	ActorStaff Actor = "staff"
)

// Visit reasons an owner may pick when booking. Walk-ins accept freeform text.
const (
	ReasonRoutineCheckup      = "Routine Check-up"
	ReasonVaccination         = "Vaccination"
	ReasonEmergency           = "Emergency"
	ReasonDentalCare          = "Dental Care"
	ReasonGrooming            = "Grooming"
	ReasonSurgeryConsultation = "Surgery Consultation"
	ReasonFollowUp            = "Follow-up"
)

var bookableReasons = map[string]bool{
	ReasonRoutineCheckup:      true,
	ReasonVaccination:         true,
	ReasonEmergency:           true,
	ReasonDentalCare:          true,
	ReasonGrooming:            true,
	ReasonSurgeryConsultation: true,
	ReasonFollowUp:            true,
}

// IsBookableReason reports whether r is one of the fixed owner-facing labels.
func IsBookableReason(r string) bool { return bookableReasons[r] }

// Appointment maps to the appointment table.
//
// PetName is a snapshot taken when the appointment is created and is not
// kept in sync with later pet renames.
type Appointment struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	OwnerID             string     `db:"owner_id" json:"owner_id"`
	PetID               string     `db:"pet_id" json:"pet_id"`
	PetName             string     `db:"pet_name" json:"pet_name"`
	Date                string     `db:"appt_date" json:"date"`
	Time                string     `db:"appt_time" json:"time"`
	Reason              string     `db:"reason" json:"reason"`
	Status              Status     `db:"status" json:"status"`
	CancellationReason  *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledBy         *Actor     `db:"cancelled_by" json:"cancelled_by,omitempty"`
	IsSeenByOwner       bool       `db:"is_seen_by_owner" json:"is_seen_by_owner"`
	WalkIn              bool       `db:"walk_in" json:"walk_in"`
	Diagnosis           *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Treatment           *string    `db:"treatment" json:"treatment,omitempty"`
	PrescriptionDetails *string    `db:"prescription_details" json:"prescription_details,omitempty"`
	Notes               *string    `db:"notes" json:"notes,omitempty"`
	FollowUpDate        *string    `db:"follow_up_date" json:"follow_up_date,omitempty"`
	FollowUpOf          *uuid.UUID `db:"follow_up_of" json:"follow_up_of,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// BookingRequest is an owner's request for a new appointment.
type BookingRequest struct {
	OwnerID string `json:"owner_id"`
	PetID   string `json:"pet_id"`
	PetName string `json:"pet_name"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Reason  string `json:"reason"`
}

// DispensedItem is an inventory item handed out during a consultation.
type DispensedItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

// Consultation carries the outcome recorded when an appointment is completed.
type Consultation struct {
	Diagnosis           string          `json:"diagnosis"`
	Treatment           string          `json:"treatment"`
	PrescriptionDetails string          `json:"prescription_details"`
	Notes               string          `json:"notes"`
	FollowUpDate        string          `json:"follow_up_date"`
	Dispensed           []DispensedItem `json:"dispensed"`
}

// ConsultationResult is returned by CompleteConsultation.
type ConsultationResult struct {
	Appointment *Appointment `json:"appointment"`
	FollowUp    *Appointment `json:"follow_up,omitempty"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
