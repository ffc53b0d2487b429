// Package store provides storage backends for the notification delivery
// engine.
//
// It defines repository interfaces for the durable outbox, the in-app inbox,
// user preference sets and the directory collaborator tables (users, device
// tokens, settings), with SQLite and PostgreSQL implementations behind the
// same Store interface.
package store

import (
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

// OutboxRepo defines durable outbox entry persistence.
type OutboxRepo interface {
	// CreateOutboxEntry inserts a new entry. Missing ID, status, max_attempts
	// and timestamps are filled in; the entry starts queued with attempts=0.
	CreateOutboxEntry(entry *models.OutboxEntry) error

	// GetOutboxEntry retrieves a single entry by ID.
	// Returns models.ErrEntryNotFound when absent.
	GetOutboxEntry(id string) (*models.OutboxEntry, error)

	// ListDueOutboxEntries returns up to limit entries in {queued, retrying}
	// whose scheduled_at <= now, oldest first.
	ListDueOutboxEntries(now time.Time, limit int) ([]models.OutboxEntry, error)

	// ListOutboxByStatus returns up to limit entries with the given status,
	// newest first (operator inspection).
	ListOutboxByStatus(status models.OutboxStatus, limit int) ([]models.OutboxEntry, error)

	// MarkOutboxSent transitions an entry to sent and stamps sent_at.
	// A no-op if the entry is already sent or dead.
	MarkOutboxSent(id string, at time.Time) error

	// MarkOutboxFailed records one failed attempt: attempts increments by
	// exactly 1, last_error is stored, and the entry becomes dead when the
	// incremented attempts reaches max_attempts, else retrying with
	// scheduled_at = retryAt. A no-op on sent or dead entries.
	MarkOutboxFailed(id string, errMsg string, retryAt time.Time) error

	// ResetOutboxEntry manually revives an entry: status back to queued,
	// attempts zeroed, last_error cleared, scheduled_at = now.
	ResetOutboxEntry(id string, now time.Time) error

	// RequeueStaleOutboxEntries re-schedules up to limit entries in
	// {queued, retrying} whose updated_at is older than staleBefore,
	// making them immediately due. Terminal states are never touched.
	RequeueStaleOutboxEntries(staleBefore time.Time, limit int) (int, error)

	// PurgeSentOutboxBefore deletes sent entries older than cutoff.
	PurgeSentOutboxBefore(cutoff time.Time) (int, error)
}

// NotificationRepo defines in-app inbox persistence.
type NotificationRepo interface {
	// CreateNotifications bulk-inserts inbox records in one transaction.
	CreateNotifications(records []models.NotificationRecord) error

	// ListNotifications returns a recipient's inbox, newest first.
	ListNotifications(recipientID string, limit, offset int) ([]models.NotificationRecord, error)

	// CountUnreadNotifications returns the number of unread records.
	CountUnreadNotifications(recipientID string) (int, error)

	// MarkNotificationRead marks one record read for the recipient.
	MarkNotificationRead(id, recipientID string, at time.Time) error

	// MarkAllNotificationsRead marks every unread record read.
	MarkAllNotificationsRead(recipientID string, at time.Time) (int, error)

	// DeleteNotification removes one record owned by the recipient.
	DeleteNotification(id, recipientID string) error

	// PurgeReadNotificationsBefore deletes records that are both read and
	// older than cutoff.
	PurgeReadNotificationsBefore(cutoff time.Time) (int, error)
}

// PreferenceRepo defines per-user preference persistence.
type PreferenceRepo interface {
	// GetOrCreatePreferences returns the user's preference set, lazily
	// inserting the defaults on first access. Idempotent.
	GetOrCreatePreferences(userID string) (models.PreferenceSet, error)

	// SavePreferences upserts a preference set.
	SavePreferences(p models.PreferenceSet) error
}

// DirectoryRepo exposes the user and device identity collaborator tables.
type DirectoryRepo interface {
	CreateUser(u models.User) error

	// GetUser returns models.ErrUserNotFound when absent.
	GetUser(id string) (*models.User, error)

	// ListActiveUsers returns all active users (broadcast / role=all).
	ListActiveUsers() ([]models.User, error)

	// ListActiveStaff returns active staff users.
	ListActiveStaff() ([]models.User, error)

	// ListApprovedPartners returns active users whose partner status is
	// approved, not merely partner-tagged accounts.
	ListApprovedPartners() ([]models.User, error)

	// RegisterDeviceToken upserts a push identity for a user.
	RegisterDeviceToken(dt models.DeviceToken) error

	// ListDeviceTokens returns the user's push identities.
	ListDeviceTokens(userID string) ([]models.DeviceToken, error)
}

// SettingsRepo exposes the system settings collaborator table. Values are
// read fresh on every use, never cached at startup.
type SettingsRepo interface {
	// GetSetting returns the value and whether the key exists.
	GetSetting(key string) (string, bool, error)

	SetSetting(key, value string) error
}

// Store aggregates every repository plus lifecycle management.
type Store interface {
	OutboxRepo
	NotificationRepo
	PreferenceRepo
	DirectoryRepo
	SettingsRepo

	Close() error
}
