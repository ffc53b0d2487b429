package models

import (
	"errors"
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 15, hour, min, 0, 0, time.UTC)
}

func TestPreferenceSet_InQuietHours_WrappingWindow(t *testing.T) {
	p := PreferenceSet{QuietEnabled: true, QuietStart: "22:00", QuietEnd: "06:00"}

	cases := []struct {
		name string
		when time.Time
		want bool
	}{
		{"late evening inside", at(23, 0), true},
		{"just after start", at(22, 0), true},
		{"early morning inside", at(3, 30), true},
		{"end boundary excluded", at(6, 0), false},
		{"mid morning outside", at(10, 0), false},
		{"just before start", at(21, 59), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.InQuietHours(tc.when); got != tc.want {
				t.Errorf("InQuietHours(%v) = %v, want %v", tc.when, got, tc.want)
			}
		})
	}
}

func TestPreferenceSet_InQuietHours_NonWrappingWindow(t *testing.T) {
	p := PreferenceSet{QuietEnabled: true, QuietStart: "13:00", QuietEnd: "15:00"}
	if !p.InQuietHours(at(14, 0)) {
		t.Error("Expected 14:00 inside 13:00-15:00 window")
	}
	if p.InQuietHours(at(15, 0)) {
		t.Error("Expected 15:00 outside 13:00-15:00 window (end exclusive)")
	}
}

func TestPreferenceSet_InQuietHours_DisabledOrMalformed(t *testing.T) {
	p := PreferenceSet{QuietEnabled: false, QuietStart: "22:00", QuietEnd: "06:00"}
	if p.InQuietHours(at(23, 0)) {
		t.Error("Disabled quiet hours should never match")
	}

	p = PreferenceSet{QuietEnabled: true, QuietStart: "bogus", QuietEnd: "06:00"}
	if p.InQuietHours(at(23, 0)) {
		t.Error("Malformed bounds should disable the window")
	}
}

func TestPreferenceSet_TypeDisabled(t *testing.T) {
	p := PreferenceSet{
		DisabledTypes:      []string{string(NotifTypeNewReview)},
		DisabledCategories: []string{string(CategoryAds)},
	}
	if !p.TypeDisabled(NotifTypeNewReview) {
		t.Error("Explicitly disabled type should be suppressed")
	}
	if !p.TypeDisabled(NotifTypeAdApproved) {
		t.Error("Type in disabled category should be suppressed")
	}
	if p.TypeDisabled(NotifTypeSurveyPublished) {
		t.Error("Untouched type should be allowed")
	}
}

func TestCategoryOf_UnknownType(t *testing.T) {
	if got := CategoryOf(NotificationType("something_new")); got != CategorySystem {
		t.Errorf("Expected unknown type to map to system category, got %q", got)
	}
}

func TestOutboxStatus_IsTerminal(t *testing.T) {
	terminal := []OutboxStatus{OutboxStatusSent, OutboxStatusDead}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("Expected %q terminal", s)
		}
	}
	open := []OutboxStatus{OutboxStatusQueued, OutboxStatusRetrying, OutboxStatusFailed}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("Expected %q non-terminal", s)
		}
	}
}

func TestIsRetriable(t *testing.T) {
	if IsRetriable(NewProviderError(ProviderFCM, false, "unregistered token")) {
		t.Error("Non-retriable provider error misclassified")
	}
	if !IsRetriable(NewProviderError(ProviderFCM, true, "timeout")) {
		t.Error("Retriable provider error misclassified")
	}
	// Unknown errors default to retriable.
	if !IsRetriable(errors.New("panic recovered")) {
		t.Error("Unknown errors should default to retriable")
	}
}
