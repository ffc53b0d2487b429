package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/util"
)

func (s *PostgresStore) CreateOutboxEntry(entry *models.OutboxEntry) error {
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		entry.ID, entry.RecipientID, entry.Channel, entry.Provider, entry.Title, entry.Body,
		nilIfEmpty(marshalMap(entry.Payload)), entry.Status, entry.Attempts, entry.MaxAttempts,
		nilIfEmpty(entry.LastError), entry.ScheduledAt, entry.SentAt,
		nilIfEmpty(entry.RelatedType), nilIfEmpty(entry.RelatedID), entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create outbox entry failed: %w", err)
	}
	slog.Debug("PostgresStore.CreateOutboxEntry", "id", entry.ID, "recipient", entry.RecipientID, "channel", entry.Channel, "provider", entry.Provider)
	return nil
}

func (s *PostgresStore) GetOutboxEntry(id string) (*models.OutboxEntry, error) {
	row := s.db.QueryRow(`SELECT `+outboxColumns+` FROM outbox_entries WHERE id = $1`, id)
	e, err := scanOutboxEntry(row)
	if err != nil {
		if isNoRows(err) {
			return nil, models.ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) ListDueOutboxEntries(now time.Time, limit int) ([]models.OutboxEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+outboxColumns+` FROM outbox_entries
		 WHERE status IN ('queued', 'retrying') AND scheduled_at <= $1
		 ORDER BY scheduled_at ASC LIMIT $2`,
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

func (s *PostgresStore) ListOutboxByStatus(status models.OutboxStatus, limit int) ([]models.OutboxEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+outboxColumns+` FROM outbox_entries
		 WHERE status = $1 ORDER BY updated_at DESC LIMIT $2`,
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

func (s *PostgresStore) MarkOutboxSent(id string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE outbox_entries SET status = 'sent', sent_at = $1, updated_at = $2
		 WHERE id = $3 AND status NOT IN ('sent', 'dead')`,
		at, at, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox sent failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkOutboxFailed(id string, errMsg string, retryAt time.Time) error {
	now := time.Now()
	_, err := s.db.Exec(
		`UPDATE outbox_entries SET
			status = CASE WHEN attempts + 1 >= max_attempts THEN 'dead' ELSE 'retrying' END,
			attempts = attempts + 1,
			last_error = $1,
			scheduled_at = $2,
			updated_at = $3
		 WHERE id = $4 AND status NOT IN ('sent', 'dead')`,
		errMsg, retryAt, now, id,
	)
	if err != nil {
		return fmt.Errorf("mark outbox failed failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResetOutboxEntry(id string, now time.Time) error {
	res, err := s.db.Exec(
		`UPDATE outbox_entries SET status = 'queued', attempts = 0, last_error = NULL,
			scheduled_at = $1, updated_at = $2
		 WHERE id = $3`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("reset outbox entry failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrEntryNotFound
	}
	slog.Info("PostgresStore.ResetOutboxEntry: entry re-queued", "id", id)
	return nil
}

func (s *PostgresStore) RequeueStaleOutboxEntries(staleBefore time.Time, limit int) (int, error) {
	now := time.Now()
	res, err := s.db.Exec(
		`UPDATE outbox_entries SET scheduled_at = $1, updated_at = $2
		 WHERE id IN (
			SELECT id FROM outbox_entries
			WHERE status IN ('queued', 'retrying') AND updated_at < $3
			ORDER BY updated_at ASC LIMIT $4
		 )`,
		now, now, staleBefore, limit,
	)
	if err != nil {
		return 0, fmt.Errorf("requeue stale outbox entries failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("PostgresStore.RequeueStaleOutboxEntries", "requeued", n)
	}
	return int(n), nil
}

func (s *PostgresStore) PurgeSentOutboxBefore(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM outbox_entries WHERE status = 'sent' AND sent_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge sent outbox failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
