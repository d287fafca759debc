// Package eventlog persists commerce notifications in PostgreSQL.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/birbparty/birb-commerce/events"
	"github.com/jackc/pgx/v5"
)

// Record is one stored notification
type Record struct {
	ID         string
	Name       string
	Event      string
	Source     string
	Subject    string
	OccurredAt time.Time
	Payload    json.RawMessage
}

// RecordFromNotification builds a record from a notification and the raw
// message it arrived in.
func RecordFromNotification(n *events.Notification, subject string, payload []byte) Record {
	occurred := n.Timestamp
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	if !json.Valid(payload) {
		payload = nil
	}
	return Record{
		ID:         n.ID,
		Name:       n.Name,
		Event:      n.Event,
		Source:     n.Source,
		Subject:    subject,
		OccurredAt: occurred,
		Payload:    payload,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS commerce_events (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	event       TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL,
	stored_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	payload     JSONB
);
CREATE INDEX IF NOT EXISTS commerce_events_event_idx ON commerce_events (event, occurred_at);
`

const insertEvent = `
	INSERT INTO commerce_events (id, name, event, source, subject, occurred_at, payload)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
`

// Store reads and writes the commerce_events table
type Store struct {
	db *DB
}

// NewStore creates a store on db
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the table and its indexes when missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Append inserts records in one batch and returns how many were new.
// Records whose id is already stored are skipped, so redelivered messages
// are harmless.
func (s *Store) Append(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		var payload any
		if len(r.Payload) > 0 {
			payload = string(r.Payload)
		}
		batch.Queue(insertEvent, r.ID, r.Name, r.Event, r.Source, r.Subject, r.OccurredAt, payload)
	}

	results := s.db.pool.SendBatch(ctx, batch)
	inserted := 0
	for range records {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return inserted, fmt.Errorf("failed to append events: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return inserted, fmt.Errorf("failed to append events: %w", err)
	}
	return inserted, nil
}

// Recent returns up to limit records, newest first. An empty event returns
// every event.
func (s *Store) Recent(ctx context.Context, event string, limit int) ([]Record, error) {
	query := `
		SELECT id, name, event, source, subject, occurred_at, payload
		FROM commerce_events
		WHERE $1 = '' OR event = $1
		ORDER BY occurred_at DESC, id
		LIMIT $2
	`

	rows, err := s.db.pool.Query(ctx, query, event, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r       Record
			payload []byte
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Event, &r.Source, &r.Subject, &r.OccurredAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		r.Payload = payload
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return records, nil
}

// CountByEvent returns per-event totals for events since the given time
func (s *Store) CountByEvent(ctx context.Context, since time.Time) (map[string]int64, error) {
	query := `
		SELECT event, COUNT(*)
		FROM commerce_events
		WHERE occurred_at >= $1
		GROUP BY event
	`

	rows, err := s.db.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			event string
			n     int64
		)
		if err := rows.Scan(&event, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[event] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}

	return counts, nil
}

// Purge deletes records that occurred before cutoff
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.pool.Exec(ctx, `DELETE FROM commerce_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}
	return int(result.RowsAffected()), nil
}
