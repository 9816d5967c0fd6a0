package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vetclinic/vetclinic/internal/domain/scheduling"
	"github.com/vetclinic/vetclinic/internal/platform/notification"
)

// StaffRecipient is the shared recipient for staff-facing alerts.
const StaffRecipient = "staff"

// Lister returns every appointment on a calendar date.
type Lister interface {
	ListByDate(ctx context.Context, date string) ([]*scheduling.Appointment, error)
}

// Dispatcher renders and delivers one alert.
type Dispatcher interface {
	Dispatch(ctx context.Context, templateID, recipient, appointmentID string, data map[string]string) (*notification.Notification, error)
}

// Metrics receives reminder outcomes.
type Metrics interface {
	ObserveReminder(kind, status string)
	ObserveReminderScan(seconds float64)
}

type noMetrics struct{}

func (noMetrics) ObserveReminder(string, string) {}
func (noMetrics) ObserveReminderScan(float64)    {}

type WorkerConfig struct {
	Interval time.Duration
	Location *time.Location
}

// Worker periodically scans today's and tomorrow's calendar and sends a
// starting-soon alert to the owner and to staff for each appointment that
// enters the reminder window.
//
// Delivery is at most once. The flag is claimed before dispatch, so a send
// that fails is recorded as failed and not retried while the flag lives
// (process lifetime for MemoryFlags, the TTL for RedisFlags).
type Worker struct {
	appts    Lister
	flags    FlagStore
	dispatch Dispatcher
	logger   zerolog.Logger
	metrics  Metrics
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
}

func NewWorker(appts Lister, flags FlagStore, d Dispatcher, logger zerolog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if flags == nil {
		flags = NewMemoryFlags()
	}
	return &Worker{
		appts:    appts,
		flags:    flags,
		dispatch: d,
		logger:   logger.With().Str("component", "reminder-worker").Logger(),
		metrics:  noMetrics{},
		interval: cfg.Interval,
		loc:      cfg.Location,
		now:      time.Now,
	}
}

func (w *Worker) SetMetrics(m Metrics) {
	if m != nil {
		w.metrics = m
	}
}

func (w *Worker) SetClock(now func() time.Time) { w.now = now }

// Run scans once immediately, then on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("reminder worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error().Err(err).Msg("reminder scan failed")
		}
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("reminder worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Scan sends alerts for every newly claimed upcoming appointment and returns
// them. A failed claim or delivery is logged and does not stop the scan.
func (w *Worker) Scan(ctx context.Context) ([]Alert, error) {
	start := time.Now()
	defer func() { w.metrics.ObserveReminderScan(time.Since(start).Seconds()) }()

	now := w.now().In(w.loc)
	var appts []*scheduling.Appointment
	for _, day := range []time.Time{now, now.AddDate(0, 0, 1)} {
		items, err := w.appts.ListByDate(ctx, day.Format("2006-01-02"))
		if err != nil {
			return nil, err
		}
		appts = append(appts, items...)
	}

	var sent []Alert
	for _, a := range Upcoming(now, w.loc, appts) {
		claimed, err := w.flags.Claim(ctx, a.ID)
		if err != nil {
			w.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("reminder claim failed")
			continue
		}
		if !claimed {
			continue
		}
		alert := startingSoonAlert(a)
		data := templateData(a)
		w.send(ctx, notification.TemplateStartingSoon, notification.KindStartingSoon, a.OwnerID, a, data)
		w.send(ctx, notification.TemplateDueSoon, notification.KindDueSoon, StaffRecipient, a, data)
		sent = append(sent, alert)
	}
	return sent, nil
}

func (w *Worker) send(ctx context.Context, templateID string, kind notification.Kind, recipient string, a *scheduling.Appointment, data map[string]string) {
	if _, err := w.dispatch.Dispatch(ctx, templateID, recipient, a.ID.String(), data); err != nil {
		w.metrics.ObserveReminder(string(kind), "failed")
		w.logger.Warn().Err(err).
			Str("appointment_id", a.ID.String()).
			Str("template", templateID).
			Msg("reminder delivery failed")
		return
	}
	w.metrics.ObserveReminder(string(kind), "sent")
}
