package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/ideaflow/internal/db"
	"github.com/alexanderramin/ideaflow/internal/domain"
	"github.com/google/uuid"
)

// SQLiteOutboxRepo stores domain events in the same database as the
// aggregates so they commit or roll back together.
type SQLiteOutboxRepo struct {
	db db.DBTX
}

func NewSQLiteOutboxRepo(conn db.DBTX) *SQLiteOutboxRepo {
	return &SQLiteOutboxRepo{db: conn}
}

func (r *SQLiteOutboxRepo) Append(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.EventName(), err)
	}
	at := formatTime(ev.OccurredAt())
	_, err = r.db.ExecContext(ctx, `INSERT INTO outbox_events
		(id, aggregate_id, event_name, payload, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), ev.AggregateID(), ev.EventName(), string(payload), at, at,
	)
	if err != nil {
		return fmt.Errorf("appending %s event: %w", ev.EventName(), err)
	}
	return nil
}

// ListPending returns unpublished events oldest first.
func (r *SQLiteOutboxRepo) ListPending(ctx context.Context, limit int) ([]OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, aggregate_id, event_name, payload, occurred_at, created_at
		FROM outbox_events WHERE published_at IS NULL
		ORDER BY created_at, rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending events: %w", err)
	}
	defer rows.Close()

	var out []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		var payload, occurredAt, createdAt string
		if err := rows.Scan(&rec.ID, &rec.AggregateID, &rec.EventName, &payload, &occurredAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning outbox event: %w", err)
		}
		rec.Payload = []byte(payload)
		if rec.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, fmt.Errorf("parsing occurred_at: %w", err)
		}
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outbox events: %w", err)
	}
	return out, nil
}

func (r *SQLiteOutboxRepo) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, formatTime(at))
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET published_at = ? WHERE published_at IS NULL AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("marking events published: %w", err)
	}
	return nil
}
