package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

const notificationColumns = `id, recipient_id, sender_id, type, title, body, priority,
	metadata_json, is_read, read_at, related_type, related_id, action_url, created_at`

func (s *SQLiteStore) CreateNotifications(records []models.NotificationRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin notification insert failed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO notifications (` + notificationColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare notification insert failed: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i := range records {
		r := &records[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.Priority == "" {
			r.Priority = models.PriorityNormal
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		_, err := stmt.Exec(
			r.ID, r.RecipientID, nilIfEmpty(r.SenderID), r.Type, r.Title, r.Body, r.Priority,
			nilIfEmpty(marshalMap(r.Metadata)), r.IsRead, r.ReadAt,
			nilIfEmpty(r.RelatedType), nilIfEmpty(r.RelatedID), nilIfEmpty(r.ActionURL), r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert notification for %s failed: %w", r.RecipientID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notification insert failed: %w", err)
	}
	slog.Debug("SQLiteStore.CreateNotifications", "count", len(records))
	return nil
}

func (s *SQLiteStore) ListNotifications(recipientID string, limit, offset int) ([]models.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE recipient_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		recipientID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications failed: %w", err)
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification iteration failed: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) CountUnreadNotifications(recipientID string) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0`,
		recipientID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications failed: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) MarkNotificationRead(id, recipientID string, at time.Time) error {
	res, err := s.db.Exec(
		`UPDATE notifications SET is_read = 1, read_at = ?
		 WHERE id = ? AND recipient_id = ? AND is_read = 0`,
		at, id, recipientID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either absent or already read; distinguish for the caller.
		var exists int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE id = ? AND recipient_id = ?`, id, recipientID).Scan(&exists); err == nil && exists == 0 {
			return models.ErrNotificationNotFound
		}
	}
	return nil
}

func (s *SQLiteStore) MarkAllNotificationsRead(recipientID string, at time.Time) (int, error) {
	res, err := s.db.Exec(
		`UPDATE notifications SET is_read = 1, read_at = ?
		 WHERE recipient_id = ? AND is_read = 0`,
		at, recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) DeleteNotification(id, recipientID string) error {
	res, err := s.db.Exec(
		`DELETE FROM notifications WHERE id = ? AND recipient_id = ?`,
		id, recipientID,
	)
	if err != nil {
		return fmt.Errorf("delete notification failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotificationNotFound
	}
	return nil
}

func (s *SQLiteStore) PurgeReadNotificationsBefore(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM notifications WHERE is_read = 1 AND created_at < ?`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge read notifications failed: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
