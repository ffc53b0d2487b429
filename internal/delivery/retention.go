package delivery

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/store"
)

// retentionSettingKey is the settings-store key holding the retention window
// in days. It is read fresh on every run so operators can change it without a
// restart.
const retentionSettingKey = "retention_days"

// DefaultRetentionDays applies when the setting is absent or malformed.
const DefaultRetentionDays = 30

// Retention purges delivered outbox entries and read inbox notifications
// once they age past the retention window.
type Retention struct {
	store store.Store
}

// NewRetention creates the retention job over the given store.
func NewRetention(s store.Store) *Retention {
	return &Retention{store: s}
}

// Purge performs one retention pass. Errors are logged, never propagated.
func (r *Retention) Purge() {
	days := r.retentionDays()
	cutoff := time.Now().AddDate(0, 0, -days)

	sent, err := r.store.PurgeSentOutboxBefore(cutoff)
	if err != nil {
		slog.Error("Retention.Purge: outbox purge failed", "error", err)
	}
	read, err := r.store.PurgeReadNotificationsBefore(cutoff)
	if err != nil {
		slog.Error("Retention.Purge: notification purge failed", "error", err)
	}
	if sent > 0 || read > 0 {
		slog.Info("Retention.Purge: purged", "outbox", sent, "notifications", read, "days", days)
	}
}

func (r *Retention) retentionDays() int {
	value, exists, err := r.store.GetSetting(retentionSettingKey)
	if err != nil {
		slog.Error("Retention.retentionDays: settings read failed, using default", "error", err, "default", DefaultRetentionDays)
		return DefaultRetentionDays
	}
	if !exists {
		return DefaultRetentionDays
	}
	days, err := strconv.Atoi(value)
	if err != nil || days <= 0 {
		slog.Warn("Retention.retentionDays: malformed setting, using default", "value", value, "default", DefaultRetentionDays)
		return DefaultRetentionDays
	}
	return days
}
