package notify

import (
	"log/slog"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/store"
)

// PreferenceResolver gates notifications per user. It fails open: when the
// preference store is unreachable the user is treated as fully enabled rather
// than silently dropping notices.
type PreferenceResolver struct {
	prefs store.PreferenceRepo
}

// NewPreferenceResolver creates a resolver backed by the given repository.
func NewPreferenceResolver(prefs store.PreferenceRepo) *PreferenceResolver {
	return &PreferenceResolver{prefs: prefs}
}

// Load fetches the user's preference set, lazily creating the default set on
// first access. Store errors fall back to the default (fail open).
func (r *PreferenceResolver) Load(userID string) models.PreferenceSet {
	p, err := r.prefs.GetOrCreatePreferences(userID)
	if err != nil {
		slog.Error("PreferenceResolver.Load: falling back to defaults", "user_id", userID, "error", err)
		return models.DefaultPreferenceSet(userID)
	}
	return p
}

// Allows reports whether the user may receive the given notification type at
// the given instant. Decision order: enable_all, quiet hours, explicit type
// opt-out, category opt-out.
func (r *PreferenceResolver) Allows(p models.PreferenceSet, t models.NotificationType, at time.Time) bool {
	if !p.EnableAll {
		return false
	}
	if p.InQuietHours(at) {
		return false
	}
	if p.TypeDisabled(t) {
		return false
	}
	return true
}

// AllowsChannel reports whether the user enabled the given delivery channel.
// The in-app channel is not gated; it only exists as a record.
func (r *PreferenceResolver) AllowsChannel(p models.PreferenceSet, c models.Channel) bool {
	switch c {
	case models.ChannelPush:
		return p.EnablePush
	case models.ChannelEmail:
		return p.EnableEmail
	case models.ChannelSMS:
		return p.EnableSMS
	case models.ChannelInApp:
		return true
	}
	return false
}
