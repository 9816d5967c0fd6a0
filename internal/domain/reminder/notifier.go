package reminder

import (
	"context"

	"github.com/vetclinic/vetclinic/internal/domain/scheduling"
	"github.com/vetclinic/vetclinic/internal/platform/notification"
)

// StatusNotifier tells owners about staff-side status changes. It implements
// scheduling.Notifier.
type StatusNotifier struct {
	dispatch Dispatcher
	metrics  Metrics
}

func NewStatusNotifier(d Dispatcher, m Metrics) *StatusNotifier {
	if m == nil {
		m = noMetrics{}
	}
	return &StatusNotifier{dispatch: d, metrics: m}
}

// AppointmentChanged dispatches a status-changed alert unless the
// appointment is still Pending or the owner caused the change themselves.
func (n *StatusNotifier) AppointmentChanged(ctx context.Context, a *scheduling.Appointment) error {
	if a.Status == scheduling.StatusPending || a.IsSeenByOwner {
		return nil
	}
	_, err := n.dispatch.Dispatch(ctx, notification.TemplateStatusChanged, a.OwnerID, a.ID.String(), templateData(a))
	if err != nil {
		n.metrics.ObserveReminder(string(notification.KindStatusChanged), "failed")
		return err
	}
	n.metrics.ObserveReminder(string(notification.KindStatusChanged), "sent")
	return nil
}
