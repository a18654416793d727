package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/circlerush/backend/internal/metrics"
	"github.com/circlerush/backend/internal/storage"
)

const (
	// DefaultInterval is how often the worker drains the outbox.
	DefaultInterval = 30 * time.Second

	// maxAttempts bounds delivery retries before a notification is
	// marked failed for good.
	maxAttempts = 5

	batchSize = 50
)

// Worker drains the notification outbox on a timer. Delivery is
// at-least-once: a row stays pending until a send succeeds or its attempts
// run out, so a mail outage delays notifications instead of losing them.
type Worker struct {
	Store      storage.Store
	Dispatcher Dispatcher
	Interval   time.Duration
}

// NewWorker creates an outbox worker (DefaultInterval if interval is zero).
func NewWorker(store storage.Store, dispatcher Dispatcher, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Worker{Store: store, Dispatcher: dispatcher, Interval: interval}
}

// Run drains the outbox on a fixed interval until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				slog.Error("Notification drain failed", "error", err)
			}
		}
	}
}

// DrainOnce sends one batch of pending notifications. Each row is handled
// independently; a failed send records the error and leaves the row pending
// until maxAttempts is reached.
func (w *Worker) DrainOnce(ctx context.Context) error {
	pending, err := w.Store.ListPendingNotifications(ctx, batchSize)
	if err != nil {
		return err
	}

	for _, n := range pending {
		msg := Message{
			Recipient: n.Recipient,
			Subject:   n.Subject,
			Text:      n.Text,
			HTML:      n.HTML,
		}

		if err := w.Dispatcher.Send(ctx, msg); err != nil {
			metrics.NotificationsFailed.Inc()
			dead := n.Attempts+1 >= maxAttempts
			if dead {
				metrics.NotificationsDead.Inc()
				slog.Error("Notification dropped after max attempts",
					"id", n.ID, "recipient", n.Recipient, "error", err)
			} else {
				slog.Warn("Notification send failed, will retry",
					"id", n.ID, "recipient", n.Recipient, "attempt", n.Attempts+1, "error", err)
			}
			if markErr := w.Store.MarkNotificationFailed(ctx, n.ID, err.Error(), dead); markErr != nil {
				slog.Error("Failed to record notification failure", "id", n.ID, "error", markErr)
			}
			continue
		}

		metrics.NotificationsSent.Inc()
		if err := w.Store.MarkNotificationSent(ctx, n.ID, time.Now().Unix()); err != nil {
			slog.Error("Failed to mark notification sent", "id", n.ID, "error", err)
		}
	}

	return nil
}
