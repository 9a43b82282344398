// Package outbox drains the durable write-ahead queue of outbound side
// effects. Entries are retried with exponential backoff until they deliver
// or exhaust their attempts.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/craftprint/storefront-api/store"
)

// Handler delivers one outbox payload.
type Handler func(ctx context.Context, payload string) error

// Worker polls the outbox on an interval and dispatches due entries to their
// registered handlers.
type Worker struct {
	store       store.OutboxStore
	handlers    map[string]Handler
	interval    time.Duration
	maxAttempts int
	batchSize   int
}

// NewWorker builds a worker. Handlers are registered per entry kind before
// Run is called.
func NewWorker(s store.OutboxStore, interval time.Duration) *Worker {
	return &Worker{
		store:       s,
		handlers:    make(map[string]Handler),
		interval:    interval,
		maxAttempts: 8,
		batchSize:   50,
	}
}

// Register binds a handler to an entry kind.
func (w *Worker) Register(kind string, h Handler) {
	w.handlers[kind] = h
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				slog.Error("outbox drain failed", "error", err)
			}
		}
	}
}

// DrainOnce processes one batch of due entries.
func (w *Worker) DrainOnce(ctx context.Context) error {
	now := time.Now()
	entries, err := w.store.Due(ctx, now, w.batchSize)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		handler, ok := w.handlers[entry.Kind]
		if !ok {
			slog.Error("no handler for outbox kind, dropping entry",
				"kind", entry.Kind, "id", entry.ID)
			if err := w.store.MarkDone(ctx, entry.ID); err != nil {
				return err
			}
			continue
		}

		if err := handler(ctx, entry.Payload); err != nil {
			attempts := entry.Attempts + 1
			if attempts >= w.maxAttempts {
				slog.Error("outbox entry exhausted its attempts, giving up",
					"kind", entry.Kind, "id", entry.ID, "error", err)
				if err := w.store.MarkDone(ctx, entry.ID); err != nil {
					return err
				}
				continue
			}
			slog.Warn("outbox delivery failed, will retry",
				"kind", entry.Kind, "id", entry.ID, "attempt", attempts, "error", err)
			if err := w.store.Reschedule(ctx, entry.ID, attempts, now.Add(backoff(attempts))); err != nil {
				return err
			}
			continue
		}

		if err := w.store.MarkDone(ctx, entry.ID); err != nil {
			return err
		}
	}
	return nil
}

// backoff doubles per attempt starting at 30s, capped at one hour.
func backoff(attempts int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempts && d < time.Hour; i++ {
		d *= 2
	}
	if d > time.Hour {
		return time.Hour
	}
	return d
}
