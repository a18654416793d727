// Package sweep implements the completion sweep job: a periodic scan that
// transitions expired active circles to completed.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/circlerush/backend/internal/metrics"
	"github.com/circlerush/backend/internal/models"
	"github.com/circlerush/backend/internal/storage"
)

// DefaultInterval matches the reference deployment's schedule.
const DefaultInterval = 5 * time.Minute

// Sweeper periodically completes circles whose deadline has elapsed.
type Sweeper struct {
	Store    storage.Store
	Interval time.Duration
}

// New creates a sweeper with the given interval (DefaultInterval if zero).
func New(store storage.Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{Store: store, Interval: interval}
}

// Run sweeps on a fixed interval until the context is cancelled. Errors
// never stop the loop; a circle whose update fails is picked up again on a
// later run as long as it is still active.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				slog.Error("Sweep run failed", "error", err)
			}
		}
	}
}

// SweepOnce performs a single sweep: query circles past their completion
// time, filter to the active ones, and complete each independently. The
// status filter happens here, not in the query, so completed circles that
// are still past their deadline are skipped rather than re-written. One
// circle's failure does not block the others.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	now := time.Now().Unix()

	due, err := s.Store.ListDueCircles(ctx, now)
	if err != nil {
		return err
	}

	swept := 0
	for _, circle := range due {
		if circle.Status != models.StatusActive {
			continue
		}

		if err := s.Store.SetCircleStatus(ctx, circle.ID, models.StatusCompleted); err != nil {
			metrics.SweepFailures.Inc()
			slog.Error("Failed to complete circle", "circle_id", circle.ID, "name", circle.Name, "error", err)
			continue
		}

		metrics.CirclesSwept.Inc()
		swept++
		slog.Info("Circle completed", "circle_id", circle.ID, "name", circle.Name)
	}

	if swept == 0 && len(due) == 0 {
		slog.Debug("No circles to complete at this time")
	}

	return nil
}
