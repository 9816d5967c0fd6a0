package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for booking, lifecycle and reminder flows.
type SchedulingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	remindersTotal   *prometheus.CounterVec
	reminderScan     prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetclinic",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Appointment creation attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetclinic",
			Subsystem: "scheduling",
			Name:      "transitions_total",
			Help:      "Appointment lifecycle events by event and outcome",
		}, []string{"event", "outcome"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetclinic",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Reminder and status alerts by kind and delivery status",
		}, []string{"kind", "status"}),
		reminderScan: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vetclinic",
			Subsystem: "reminders",
			Name:      "scan_seconds",
			Help:      "Duration of one reminder scan",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.transitionsTotal, m.remindersTotal, m.reminderScan)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(kind, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveTransition(event, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(event, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveReminder(kind, status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(kind, status).Inc()
}

func (m *SchedulingMetrics) ObserveReminderScan(seconds float64) {
	if m == nil {
		return
	}
	m.reminderScan.Observe(seconds)
}
