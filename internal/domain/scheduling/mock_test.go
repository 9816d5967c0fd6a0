package scheduling

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repositories --

type mockAppointmentRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func clone(a *Appointment) *Appointment {
	c := *a
	return &c
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.appts[a.ID] = clone(a)
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(a), nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appts[a.ID]; !ok {
		return ErrNotFound
	}
	a.UpdatedAt = time.Now()
	m.appts[a.ID] = clone(a)
	return nil
}

func (m *mockAppointmentRepo) ListByDate(_ context.Context, date string) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appts {
		if a.Date == date {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (m *mockAppointmentRepo) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appts {
		if a.OwnerID == ownerID {
			out = append(out, clone(a))
		}
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *mockAppointmentRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appts)
}

// downRepo fails every call, standing in for an unreachable store.
type downRepo struct{}

var errDown = errors.New("connection refused")

func (downRepo) Create(context.Context, *Appointment) error { return errDown }
func (downRepo) GetByID(context.Context, uuid.UUID) (*Appointment, error) {
	return nil, errDown
}
func (downRepo) Update(context.Context, *Appointment) error { return errDown }
func (downRepo) ListByDate(context.Context, string) ([]*Appointment, error) {
	return nil, errDown
}
func (downRepo) ListByOwner(context.Context, string, int, int) ([]*Appointment, int, error) {
	return nil, 0, errDown
}

// barrierRepo holds every ListByDate caller until n callers have read, so
// concurrent bookings all observe the same pre-write snapshot.
type barrierRepo struct {
	*mockAppointmentRepo
	wg sync.WaitGroup
}

func newBarrierRepo(n int) *barrierRepo {
	b := &barrierRepo{mockAppointmentRepo: newMockAppointmentRepo()}
	b.wg.Add(n)
	return b
}

func (b *barrierRepo) ListByDate(ctx context.Context, date string) ([]*Appointment, error) {
	out, err := b.mockAppointmentRepo.ListByDate(ctx, date)
	b.wg.Done()
	b.wg.Wait()
	return out, err
}

type mockRecords struct {
	mu      sync.Mutex
	created map[uuid.UUID][]DispensedItem
	err     error
}

func newMockRecords() *mockRecords {
	return &mockRecords{created: make(map[uuid.UUID][]DispensedItem)}
}

func (m *mockRecords) CreateFromConsultation(_ context.Context, a *Appointment, dispensed []DispensedItem) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.created[a.ID]; !ok {
		m.created[a.ID] = dispensed
	}
	return nil
}

type stockCall struct {
	ItemID uuid.UUID
	Delta  int
	Key    string
}

type mockStock struct {
	mu    sync.Mutex
	calls []stockCall
	err   error
}

func (m *mockStock) Adjust(_ context.Context, itemID uuid.UUID, delta int, _ string, key string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, stockCall{ItemID: itemID, Delta: delta, Key: key})
	return nil
}

type mockNotifier struct {
	mu      sync.Mutex
	changed []Appointment
	err     error
}

func (m *mockNotifier) AppointmentChanged(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = append(m.changed, *a)
	return m.err
}

type recordingTx struct {
	calls int
}

func (r *recordingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

type countingMetrics struct {
	mu          sync.Mutex
	bookings    map[string]int
	transitions map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{bookings: map[string]int{}, transitions: map[string]int{}}
}

func (m *countingMetrics) ObserveBooking(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[kind+"/"+outcome]++
}

func (m *countingMetrics) ObserveTransition(event, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[event+"/"+outcome]++
}
