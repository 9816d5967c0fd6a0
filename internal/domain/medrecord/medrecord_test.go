package medrecord

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vetclinic/vetclinic/internal/domain/scheduling"
	"github.com/vetclinic/vetclinic/internal/platform/auth"
	"github.com/vetclinic/vetclinic/pkg/pagination"
)

// -- Mock Repository --

type mockRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	err     error
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[uuid.UUID]*Record)}
}

func (m *mockRepo) Create(_ context.Context, r *Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.records[r.AppointmentID]; ok {
		return false, nil
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.records[r.AppointmentID] = r
	return true, nil
}

func (m *mockRepo) GetByAppointment(_ context.Context, id uuid.UUID) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *mockRepo) ListByPet(_ context.Context, petID, ownerID string, limit, offset int) ([]*Record, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []*Record
	for _, r := range m.records {
		if r.PetID == petID && (ownerID == "" || r.OwnerID == ownerID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitDate > out[j].VisitDate })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func strp(s string) *string { return &s }

func doneAppointment(owner, pet, date string) *scheduling.Appointment {
	return &scheduling.Appointment{
		ID:        uuid.New(),
		OwnerID:   owner,
		PetID:     pet,
		PetName:   "Rex",
		Date:      date,
		Time:      "09:00",
		Reason:    scheduling.ReasonVaccination,
		Status:    scheduling.StatusDone,
		Diagnosis: strp("Healthy"),
		Treatment: strp("Rabies booster"),
	}
}

var (
	ownerCaller = scheduling.Caller{Actor: scheduling.ActorOwner, UserID: "owner-1"}
	staffCaller = scheduling.Caller{Actor: scheduling.ActorStaff, UserID: "vet-1"}
)

func TestService_CreateFromConsultation(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	a := doneAppointment("owner-1", "pet-1", "2025-03-10")
	item := uuid.New()

	err := svc.CreateFromConsultation(context.Background(), a, []scheduling.DispensedItem{{ItemID: item, Quantity: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, err := svc.GetByAppointment(context.Background(), a.ID, staffCaller)
	if err != nil {
		t.Fatalf("GetByAppointment: %v", err)
	}
	if rec.Diagnosis != "Healthy" || rec.Treatment != "Rabies booster" || rec.VisitDate != "2025-03-10" {
		t.Errorf("unexpected record %+v", rec)
	}
	if len(rec.Dispensed) != 1 || rec.Dispensed[0].ItemID != item || rec.Dispensed[0].Quantity != 2 {
		t.Errorf("unexpected dispensed %+v", rec.Dispensed)
	}
}

func TestService_CreateFromConsultation_Idempotent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	a := doneAppointment("owner-1", "pet-1", "2025-03-10")

	for i := 0; i < 2; i++ {
		if err := svc.CreateFromConsultation(context.Background(), a, nil); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if len(repo.records) != 1 {
		t.Errorf("expected a single record, got %d", len(repo.records))
	}
}

func TestService_CreateFromConsultation_RequiresDone(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	a := doneAppointment("owner-1", "pet-1", "2025-03-10")
	a.Status = scheduling.StatusApproved
	if err := svc.CreateFromConsultation(context.Background(), a, nil); err == nil {
		t.Error("expected error for a non-Done appointment")
	}
}

func TestService_OwnerAccess(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	mine := doneAppointment("owner-1", "pet-1", "2025-03-10")
	theirs := doneAppointment("owner-2", "pet-1", "2025-03-11")
	for _, a := range []*scheduling.Appointment{mine, theirs} {
		if err := svc.CreateFromConsultation(context.Background(), a, nil); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := svc.GetByAppointment(context.Background(), theirs.ID, ownerCaller); !errors.Is(err, scheduling.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	items, total, err := svc.ListByPet(context.Background(), "pet-1", ownerCaller, 10, 0)
	if err != nil || total != 1 || len(items) != 1 || items[0].AppointmentID != mine.ID {
		t.Errorf("owner should only see their own records, got %d/%d (%v)", len(items), total, err)
	}
	_, total, _ = svc.ListByPet(context.Background(), "pet-1", staffCaller, 10, 0)
	if total != 2 {
		t.Errorf("staff should see every record, got %d", total)
	}
}

func TestHandler_ListByPet(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	for _, d := range []string{"2025-03-10", "2025-04-10"} {
		if err := svc.CreateFromConsultation(context.Background(), doneAppointment("owner-1", "pet-1", d), nil); err != nil {
			t.Fatal(err)
		}
	}
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/pets/pet-1/medical-records?limit=1", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "owner-1", []string{auth.RoleOwner}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("pet-1")

	if err := h.ListByPet(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || !resp.HasMore {
		t.Errorf("unexpected page %+v", resp)
	}
}

func TestHandler_GetByAppointment(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())
	a := doneAppointment("owner-1", "pet-1", "2025-03-10")
	if err := svc.CreateFromConsultation(context.Background(), a, nil); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(svc)
	e := echo.New()

	tests := []struct {
		name  string
		param string
		user  string
		code  int
	}{
		{"own record", a.ID.String(), "owner-1", http.StatusOK},
		{"someone else's", a.ID.String(), "owner-2", http.StatusForbidden},
		{"missing", uuid.New().String(), "owner-1", http.StatusNotFound},
		{"bad id", "not-a-uuid", "owner-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(auth.WithIdentity(req.Context(), tt.user, []string{auth.RoleOwner}))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("appointment_id")
			c.SetParamValues(tt.param)

			err := h.GetByAppointment(c)
			if tt.code == http.StatusOK {
				if err != nil || rec.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d (%v)", rec.Code, err)
				}
				return
			}
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != tt.code {
				t.Errorf("expected %d, got %v", tt.code, err)
			}
		})
	}
}

func TestHandler_StoreDown(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("connection refused")
	h := NewHandler(NewService(repo, zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "vet-1", []string{auth.RoleStaff}))
	c := echo.New().NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("pet-1")

	var he *echo.HTTPError
	if err := h.ListByPet(c); !errors.As(err, &he) || he.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", err)
	}
}
