package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/craftprint/storefront-api/store"
)

// Enqueue records an outbound side effect to be delivered by the worker.
func (s *Outbox) Enqueue(ctx context.Context, kind, payload string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (id, kind, payload, next_attempt_at)
		VALUES (?, ?, ?, NOW())`,
		uuid.NewString(), kind, payload)
	if err != nil {
		return fmt.Errorf("enqueue outbox entry: %w", err)
	}
	return nil
}

// Due returns undelivered entries whose next attempt time has passed.
func (s *Outbox) Due(ctx context.Context, now time.Time, limit int) ([]store.OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, payload, attempts, next_attempt_at, created_at
		FROM outbox
		WHERE done = 0 AND next_attempt_at <= ?
		ORDER BY next_attempt_at
		LIMIT ?`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("load due outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []store.OutboxEntry
	for rows.Next() {
		var e store.OutboxEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Payload, &e.Attempts, &e.NextAttemptAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkDone records successful delivery.
func (s *Outbox) MarkDone(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE outbox SET done = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark outbox entry done: %w", err)
	}
	return nil
}

// Reschedule pushes a failed entry to a later attempt.
func (s *Outbox) Reschedule(ctx context.Context, id string, attempts int, next time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE outbox SET attempts = ?, next_attempt_at = ? WHERE id = ?",
		attempts, next, id); err != nil {
		return fmt.Errorf("reschedule outbox entry: %w", err)
	}
	return nil
}
