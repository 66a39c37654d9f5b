package service

import (
	"context"

	"github.com/reviewdesk/review-engine/internal/events"
	"go.uber.org/zap"
)

// Notifier delivers notification intents. Failures are logged by the caller and
// never abort the operation that produced them.
type Notifier interface {
	Notify(ctx context.Context, n events.Notification) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, events.Notification) error { return nil }

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

func notifyAll(ctx context.Context, notifier Notifier, notifications []events.Notification) {
	for _, n := range notifications {
		if err := notifier.Notify(ctx, n); err != nil {
			zap.S().Named("notifier").Warnw("failed to send notification", "error", err, "reviewer_id", n.ReviewerID, "type", n.Type)
		}
	}
}
