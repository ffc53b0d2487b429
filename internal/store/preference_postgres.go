package store

import (
	"fmt"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

func (s *PostgresStore) GetOrCreatePreferences(userID string) (models.PreferenceSet, error) {
	def := models.DefaultPreferenceSet(userID)
	_, err := s.db.Exec(
		`INSERT INTO notification_preferences
		 (user_id, enable_all, enable_push, enable_email, enable_sms, quiet_enabled, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, def.EnableAll, def.EnablePush, def.EnableEmail, def.EnableSMS, def.QuietEnabled, time.Now(),
	)
	if err != nil {
		return def, fmt.Errorf("seed preferences failed: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = $1`, userID)
	return scanPreferences(row)
}

func (s *PostgresStore) SavePreferences(p models.PreferenceSet) error {
	p.UpdatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO notification_preferences (`+preferenceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (user_id) DO UPDATE SET
			enable_all = EXCLUDED.enable_all,
			enable_push = EXCLUDED.enable_push,
			enable_email = EXCLUDED.enable_email,
			enable_sms = EXCLUDED.enable_sms,
			disabled_categories_json = EXCLUDED.disabled_categories_json,
			disabled_types_json = EXCLUDED.disabled_types_json,
			quiet_enabled = EXCLUDED.quiet_enabled,
			quiet_start = EXCLUDED.quiet_start,
			quiet_end = EXCLUDED.quiet_end,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.EnableAll, p.EnablePush, p.EnableEmail, p.EnableSMS,
		nilIfEmpty(marshalStrings(p.DisabledCategories)), nilIfEmpty(marshalStrings(p.DisabledTypes)),
		p.QuietEnabled, nilIfEmpty(p.QuietStart), nilIfEmpty(p.QuietEnd), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save preferences failed: %w", err)
	}
	return nil
}
