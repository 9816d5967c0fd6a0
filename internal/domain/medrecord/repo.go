package medrecord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vetclinic/vetclinic/internal/platform/db"
)

type Repository interface {
	// Create inserts r and reports false when a record for the same
	// appointment already exists.
	Create(ctx context.Context, r *Record) (bool, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Record, error)
	// ListByPet returns a pet's history, newest visit first. A non-empty
	// ownerID restricts it to that owner's records.
	ListByPet(ctx context.Context, petID, ownerID string, limit, offset int) ([]*Record, int, error)
}

type recordRepoPG struct{ db db.Querier }

func NewRepoPG(q db.Querier) Repository { return &recordRepoPG{db: q} }

func (r *recordRepoPG) conn(ctx context.Context) db.Querier {
	return db.ConnFromContext(ctx, r.db)
}

const recordCols = `id, appointment_id, owner_id, pet_id, pet_name, visit_date, reason,
	diagnosis, treatment, prescription_details, notes, follow_up_date, dispensed, created_at`

func (r *recordRepoPG) scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var dispensed []byte
	err := row.Scan(&rec.ID, &rec.AppointmentID, &rec.OwnerID, &rec.PetID, &rec.PetName, &rec.VisitDate, &rec.Reason,
		&rec.Diagnosis, &rec.Treatment, &rec.PrescriptionDetails, &rec.Notes, &rec.FollowUpDate, &dispensed, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(dispensed) > 0 {
		if err := json.Unmarshal(dispensed, &rec.Dispensed); err != nil {
			return nil, fmt.Errorf("decode dispensed items: %w", err)
		}
	}
	return &rec, nil
}

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) (bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Dispensed == nil {
		rec.Dispensed = []DispensedItem{}
	}
	rec.CreatedAt = time.Now().UTC()
	dispensed, err := json.Marshal(rec.Dispensed)
	if err != nil {
		return false, fmt.Errorf("encode dispensed items: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_record (id, appointment_id, owner_id, pet_id, pet_name, visit_date, reason,
			diagnosis, treatment, prescription_details, notes, follow_up_date, dispensed, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (appointment_id) DO NOTHING`,
		rec.ID, rec.AppointmentID, rec.OwnerID, rec.PetID, rec.PetName, rec.VisitDate, rec.Reason,
		rec.Diagnosis, rec.Treatment, rec.PrescriptionDetails, rec.Notes, rec.FollowUpDate, dispensed, rec.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *recordRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Record, error) {
	rec, err := r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_record WHERE appointment_id = $1`, appointmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (r *recordRepoPG) ListByPet(ctx context.Context, petID, ownerID string, limit, offset int) ([]*Record, int, error) {
	const where = ` FROM medical_record WHERE pet_id = $1 AND ($2::text = '' OR owner_id = $2)`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+where, petID, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+recordCols+where+`
		ORDER BY visit_date DESC, created_at DESC LIMIT $3 OFFSET $4`, petID, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}
