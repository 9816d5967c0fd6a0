package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vetclinic/vetclinic/internal/platform/db"
)

type appointmentRepoPG struct{ db db.Querier }

func NewAppointmentRepoPG(q db.Querier) AppointmentRepository { return &appointmentRepoPG{db: q} }

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.ConnFromContext(ctx, r.db)
}

const apptCols = `id, owner_id, pet_id, pet_name, appt_date, appt_time, reason, status,
	cancellation_reason, cancelled_by, is_seen_by_owner, walk_in,
	diagnosis, treatment, prescription_details, notes, follow_up_date, follow_up_of,
	created_at, updated_at`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	var cancelledBy *string
	err := row.Scan(&a.ID, &a.OwnerID, &a.PetID, &a.PetName, &a.Date, &a.Time, &a.Reason, &status,
		&a.CancellationReason, &cancelledBy, &a.IsSeenByOwner, &a.WalkIn,
		&a.Diagnosis, &a.Treatment, &a.PrescriptionDetails, &a.Notes, &a.FollowUpDate, &a.FollowUpOf,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	if cancelledBy != nil {
		actor := Actor(*cancelledBy)
		a.CancelledBy = &actor
	}
	return &a, nil
}

func actorArg(a *Actor) *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, owner_id, pet_id, pet_name, appt_date, appt_time, reason, status,
			cancellation_reason, cancelled_by, is_seen_by_owner, walk_in,
			diagnosis, treatment, prescription_details, notes, follow_up_date, follow_up_of,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		a.ID, a.OwnerID, a.PetID, a.PetName, a.Date, a.Time, a.Reason, string(a.Status),
		a.CancellationReason, actorArg(a.CancelledBy), a.IsSeenByOwner, a.WalkIn,
		a.Diagnosis, a.Treatment, a.PrescriptionDetails, a.Notes, a.FollowUpDate, a.FollowUpOf,
		a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET appt_date=$2, appt_time=$3, status=$4, cancellation_reason=$5,
			cancelled_by=$6, is_seen_by_owner=$7, diagnosis=$8, treatment=$9,
			prescription_details=$10, notes=$11, follow_up_date=$12, updated_at=$13
		WHERE id = $1`,
		a.ID, a.Date, a.Time, string(a.Status), a.CancellationReason,
		actorArg(a.CancelledBy), a.IsSeenByOwner, a.Diagnosis, a.Treatment,
		a.PrescriptionDetails, a.Notes, a.FollowUpDate, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) ListByDate(ctx context.Context, date string) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment WHERE appt_date = $1 ORDER BY appt_time`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *appointmentRepoPG) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointment WHERE owner_id = $1
		ORDER BY appt_date DESC, appt_time DESC LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *appointmentRepoPG) collect(rows pgx.Rows) ([]*Appointment, error) {
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
