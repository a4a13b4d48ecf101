package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StoredEvent is one persisted stream event. Payload is the event JSON
// exactly as it was emitted to live viewers; CreatedAt is bookkeeping kept
// outside the payload so replay output matches the live stream.
type StoredEvent struct {
	ID        int64
	TenderID  string
	Payload   []byte
	CreatedAt string
}

// EventLog is the append-only per-tender event log.
type EventLog struct {
	db *sql.DB
}

// NewEventLog wraps an open database.
func NewEventLog(db *sql.DB) *EventLog {
	return &EventLog{db: db}
}

// Append records one event for a tender. The storage timestamp is assigned
// here, not taken from the payload.
func (l *EventLog) Append(ctx context.Context, tenderID string, payload []byte) error {
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO event_logs (tender_id, payload, created_at) VALUES (?, ?, ?)`,
		tenderID, string(payload), createdAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ReadAll returns every event for a tender in insertion order.
func (l *EventLog) ReadAll(ctx context.Context, tenderID string) ([]StoredEvent, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, tender_id, payload, created_at FROM event_logs WHERE tender_id = ? ORDER BY id`,
		tenderID)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		var payload string
		if err := rows.Scan(&ev.ID, &ev.TenderID, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Payload = []byte(payload)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Exists reports whether any events are stored for a tender. This is the
// signal that routes a new viewer to replay instead of a live run.
func (l *EventLog) Exists(ctx context.Context, tenderID string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		`SELECT 1 FROM event_logs WHERE tender_id = ? LIMIT 1`, tenderID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check events: %w", err)
	}
	return true, nil
}

// Count returns the number of stored events for a tender.
func (l *EventLog) Count(ctx context.Context, tenderID string) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_logs WHERE tender_id = ?`, tenderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// DeleteTender removes all stored events for a tender, forcing the next
// viewer back onto a live run.
func (l *EventLog) DeleteTender(ctx context.Context, tenderID string) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM event_logs WHERE tender_id = ?`, tenderID)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return n, nil
}

// PruneOlderThan deletes events stored before the cutoff. Retention is
// unbounded unless the operator configures it.
func (l *EventLog) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM event_logs WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return n, nil
}
