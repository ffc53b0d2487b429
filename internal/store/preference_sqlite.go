package store

import (
	"fmt"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

const preferenceColumns = `user_id, enable_all, enable_push, enable_email, enable_sms,
	disabled_categories_json, disabled_types_json, quiet_enabled, quiet_start, quiet_end, updated_at`

func (s *SQLiteStore) GetOrCreatePreferences(userID string) (models.PreferenceSet, error) {
	// Lazily seed defaults; INSERT OR IGNORE keeps concurrent first accesses idempotent.
	def := models.DefaultPreferenceSet(userID)
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO notification_preferences
		 (user_id, enable_all, enable_push, enable_email, enable_sms, quiet_enabled, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, def.EnableAll, def.EnablePush, def.EnableEmail, def.EnableSMS, def.QuietEnabled, time.Now(),
	)
	if err != nil {
		return def, fmt.Errorf("seed preferences failed: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = ?`, userID)
	return scanPreferences(row)
}

func (s *SQLiteStore) SavePreferences(p models.PreferenceSet) error {
	p.UpdatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO notification_preferences (`+preferenceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			enable_all = excluded.enable_all,
			enable_push = excluded.enable_push,
			enable_email = excluded.enable_email,
			enable_sms = excluded.enable_sms,
			disabled_categories_json = excluded.disabled_categories_json,
			disabled_types_json = excluded.disabled_types_json,
			quiet_enabled = excluded.quiet_enabled,
			quiet_start = excluded.quiet_start,
			quiet_end = excluded.quiet_end,
			updated_at = excluded.updated_at`,
		p.UserID, p.EnableAll, p.EnablePush, p.EnableEmail, p.EnableSMS,
		nilIfEmpty(marshalStrings(p.DisabledCategories)), nilIfEmpty(marshalStrings(p.DisabledTypes)),
		p.QuietEnabled, nilIfEmpty(p.QuietStart), nilIfEmpty(p.QuietEnd), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save preferences failed: %w", err)
	}
	return nil
}
