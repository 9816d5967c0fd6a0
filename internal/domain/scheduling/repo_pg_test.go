package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var apptColumns = []string{
	"id", "owner_id", "pet_id", "pet_name", "appt_date", "appt_time", "reason", "status",
	"cancellation_reason", "cancelled_by", "is_seen_by_owner", "walk_in",
	"diagnosis", "treatment", "prescription_details", "notes", "follow_up_date", "follow_up_of",
	"created_at", "updated_at",
}

func apptRow(rows *pgxmock.Rows, id uuid.UUID, hhmm, status string) *pgxmock.Rows {
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "owner-1", "pet-1", "Rex", "2025-03-10", hhmm, ReasonVaccination, status,
		nil, nil, false, false,
		nil, nil, nil, nil, nil, nil,
		now, now)
}

func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestAppointmentRepoPG_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO appointment`).
		WithArgs(anyArgs(20)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewAppointmentRepoPG(mock)
	a := &Appointment{OwnerID: "owner-1", PetID: "pet-1", PetName: "Rex", Date: "2025-03-10", Time: "09:00", Reason: ReasonVaccination, Status: StatusPending}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == uuid.Nil || a.CreatedAt.IsZero() {
		t.Error("expected ID and timestamps to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAppointmentRepoPG_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT (.+) FROM appointment WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), id, "09:00", "Approved"))

	repo := NewAppointmentRepoPG(mock)
	a, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if a.ID != id || a.Status != StatusApproved || a.PetName != "Rex" {
		t.Errorf("unexpected appointment %+v", a)
	}
	if a.CancelledBy != nil || a.CancellationReason != nil {
		t.Error("expected nullable columns to stay nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAppointmentRepoPG_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT (.+) FROM appointment WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewAppointmentRepoPG(mock).GetByID(context.Background(), id)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAppointmentRepoPG_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	reason := "sick"
	by := ActorOwner
	a := &Appointment{ID: uuid.New(), Date: "2025-03-10", Time: "09:00", Status: StatusCancelled, CancellationReason: &reason, CancelledBy: &by, IsSeenByOwner: true}

	args := anyArgs(13)
	args[0] = a.ID
	args[3] = "Cancelled"
	mock.ExpectExec(`UPDATE appointment SET`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE appointment SET`).
		WithArgs(anyArgs(13)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewAppointmentRepoPG(mock)
	if err := repo.Update(context.Background(), a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := repo.Update(context.Background(), a); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing row, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAppointmentRepoPG_ListByDate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	rows := pgxmock.NewRows(apptColumns)
	apptRow(rows, uuid.New(), "09:00", "Pending")
	apptRow(rows, uuid.New(), "11:00", "Cancelled")
	mock.ExpectQuery(`FROM appointment WHERE appt_date = \$1 ORDER BY appt_time`).
		WithArgs("2025-03-10").
		WillReturnRows(rows)

	items, err := NewAppointmentRepoPG(mock).ListByDate(context.Background(), "2025-03-10")
	if err != nil {
		t.Fatalf("ListByDate: %v", err)
	}
	if len(items) != 2 || items[1].Status != StatusCancelled {
		t.Errorf("unexpected items %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAppointmentRepoPG_ListByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM appointment WHERE owner_id = \$1`).
		WithArgs("owner-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`FROM appointment WHERE owner_id = \$1`).
		WithArgs("owner-1", 1, 0).
		WillReturnRows(apptRow(pgxmock.NewRows(apptColumns), uuid.New(), "09:00", "Done"))

	items, total, err := NewAppointmentRepoPG(mock).ListByOwner(context.Background(), "owner-1", 1, 0)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if total != 3 || len(items) != 1 {
		t.Errorf("expected 1 of 3, got %d of %d", len(items), total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
