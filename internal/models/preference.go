package models

import (
	"strconv"
	"strings"
	"time"
)

// PreferenceSet holds one user's notification preferences. A default set
// (everything enabled, quiet hours off) is lazily created on first access.
type PreferenceSet struct {
	UserID             string    `json:"user_id"`
	EnableAll          bool      `json:"enable_all"`
	EnablePush         bool      `json:"enable_push"`
	EnableEmail        bool      `json:"enable_email"`
	EnableSMS          bool      `json:"enable_sms"`
	DisabledCategories []string  `json:"disabled_categories,omitempty"`
	DisabledTypes      []string  `json:"disabled_types,omitempty"`
	QuietEnabled       bool      `json:"quiet_enabled"`
	QuietStart         string    `json:"quiet_start,omitempty"` // "HH:MM"
	QuietEnd           string    `json:"quiet_end,omitempty"`   // "HH:MM"
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultPreferenceSet returns the preference set applied to users who never
// touched their settings.
func DefaultPreferenceSet(userID string) PreferenceSet {
	return PreferenceSet{
		UserID:      userID,
		EnableAll:   true,
		EnablePush:  true,
		EnableEmail: true,
		EnableSMS:   true,
	}
}

// TypeDisabled reports whether the given notification type is explicitly
// suppressed, directly or via its category.
func (p PreferenceSet) TypeDisabled(t NotificationType) bool {
	for _, dt := range p.DisabledTypes {
		if dt == string(t) {
			return true
		}
	}
	cat := string(CategoryOf(t))
	for _, dc := range p.DisabledCategories {
		if dc == cat {
			return true
		}
	}
	return false
}

// InQuietHours reports whether the instant falls inside the user's quiet
// window. The window may wrap past midnight (e.g. 22:00-06:00). The start is
// inclusive, the end exclusive. Malformed bounds disable the window.
func (p PreferenceSet) InQuietHours(at time.Time) bool {
	if !p.QuietEnabled {
		return false
	}
	start, okStart := parseClock(p.QuietStart)
	end, okEnd := parseClock(p.QuietEnd)
	if !okStart || !okEnd || start == end {
		return false
	}
	minute := at.Hour()*60 + at.Minute()
	if start < end {
		return minute >= start && minute < end
	}
	// Wrapping window: inside if after start or before end.
	return minute >= start || minute < end
}

// parseClock parses "HH:MM" into minutes past midnight.
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
