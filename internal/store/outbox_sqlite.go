package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/util"
)

const outboxColumns = `id, recipient_id, channel, provider, title, body, payload_json,
	status, attempts, max_attempts, last_error, scheduled_at, sent_at,
	related_type, related_id, created_at, updated_at`

func (s *SQLiteStore) CreateOutboxEntry(entry *models.OutboxEntry) error {
	now := time.Now()
	if entry.ID == "" {
		entry.ID = util.GenerateRandomID("outbox_", 32)
	}
	if entry.Status == "" {
		entry.Status = models.OutboxStatusQueued
	}
	if entry.MaxAttempts <= 0 {
		entry.MaxAttempts = models.DefaultMaxAttempts
	}
	if entry.ScheduledAt.IsZero() {
		entry.ScheduledAt = now
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err := s.db.Exec(
		`INSERT INTO outbox_entries (`+outboxColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RecipientID, entry.Channel, entry.Provider, entry.Title, entry.Body,
		nilIfEmpty(marshalMap(entry.Payload)), entry.Status, entry.Attempts, entry.MaxAttempts,
		nilIfEmpty(entry.LastError), entry.ScheduledAt, entry.SentAt,
		nilIfEmpty(entry.RelatedType), nilIfEmpty(entry.RelatedID), entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create outbox entry failed: %w", err)
	}
	slog.Debug("SQLiteStore.CreateOutboxEntry", "id", entry.ID, "recipient", entry.RecipientID, "channel", entry.Channel, "provider", entry.Provider)
	return nil
}

func (s *SQLiteStore) GetOutboxEntry(id string) (*models.OutboxEntry, error) {
	row := s.db.QueryRow(`SELECT `+outboxColumns+` FROM outbox_entries WHERE id = ?`, id)
	e, err := scanOutboxEntry(row)
	if err != nil {
		if isNoRows(err) {
			return nil, models.ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) ListDueOutboxEntries(now time.Time, limit int) ([]models.OutboxEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+outboxColumns+` FROM outbox_entries
		 WHERE status IN ('queued', 'retrying') AND scheduled_at <= ?
		 ORDER BY scheduled_at ASC LIMIT ?`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due outbox entries failed: %w", err)
	}
	defer rows.Close()

	var entries []models.OutboxEntry
	for rows.Next() {
		e, err := scanOutboxEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("due outbox iteration failed: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) ListOutboxByStatus(status models.OutboxStatus, limit int) ([]models.OutboxEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+outboxColumns+` FROM outbox_entries
		 WHERE status = ? ORDER BY updated_at DESC LIMIT ?`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list outbox by status failed: %w", err)
	}
	defer rows.Close()

	var entries []models.OutboxEntry
	for rows.Next() {
		e, err := scanOutboxEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox status iteration failed: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) MarkOutboxSent(id string, at time.Time) error {
	// Guarded so repeated wake-ups on a sent entry stay a no-op and a dead
	// entry is never resurrected by a late success.
	_, err := s.db.Exec(
		`UPDATE outbox_entries SET status = 'sent', sent_at = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN ('sent', 'dead')`,
		at, at, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox sent failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkOutboxFailed(id string, errMsg string, retryAt time.Time) error {
	now := time.Now()
	// attempts increments by exactly 1; the entry dead-letters when the
	// incremented counter reaches max_attempts, else it retries at retryAt.
	_, err := s.db.Exec(
		`UPDATE outbox_entries SET
			status = CASE WHEN attempts + 1 >= max_attempts THEN 'dead' ELSE 'retrying' END,
			attempts = attempts + 1,
			last_error = ?,
			scheduled_at = ?,
			updated_at = ?
		 WHERE id = ? AND status NOT IN ('sent', 'dead')`,
		errMsg, retryAt, now, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox failed failed: %w", err)
	}
	return nil
}

// ResetOutboxEntry zeroes attempts along with the status reset: a revived
// entry keeping attempts at max would dead-letter again on its first failure.
func (s *SQLiteStore) ResetOutboxEntry(id string, now time.Time) error {
	res, err := s.db.Exec(
		`UPDATE outbox_entries SET status = 'queued', attempts = 0, last_error = NULL,
			scheduled_at = ?, updated_at = ?
		 WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("reset outbox entry failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrEntryNotFound
	}
	slog.Info("SQLiteStore.ResetOutboxEntry: entry re-queued", "id", id)
	return nil
}

func (s *SQLiteStore) RequeueStaleOutboxEntries(staleBefore time.Time, limit int) (int, error) {
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE outbox_entries SET scheduled_at = ?, updated_at = ?
		 WHERE id IN (
			SELECT id FROM outbox_entries
			WHERE status IN ('queued', 'retrying') AND updated_at < ?
			ORDER BY updated_at ASC LIMIT ?
		 )`,
		now, now, staleBefore, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("requeue stale outbox entries failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("SQLiteStore.RequeueStaleOutboxEntries", "requeued", n)
	}
	return int(n), nil
}

func (s *SQLiteStore) PurgeSentOutboxBefore(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM outbox_entries WHERE status = 'sent' AND sent_at < ?`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge sent outbox failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
