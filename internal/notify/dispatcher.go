package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/store"
)

// pushProviderOrder is the preference order for push delivery when a user has
// identities on more than one provider.
var pushProviderOrder = []models.ProviderName{models.ProviderFCM, models.ProviderOneSignal}

// Dispatcher turns one business event into inbox records and outbox entries.
// It is the only entry point the surrounding application calls.
type Dispatcher struct {
	store    store.Store
	audience *AudienceResolver
	prefs    *PreferenceResolver
}

// NewDispatcher wires a dispatcher over the given store.
func NewDispatcher(s store.Store) *Dispatcher {
	return &Dispatcher{
		store:    s,
		audience: NewAudienceResolver(s),
		prefs:    NewPreferenceResolver(s),
	}
}

// EmitEvent resolves the audience, renders content, applies per-user
// preferences and persists the resulting notification records and outbox
// entries. It never returns an error and never panics: the business action
// that triggered the event must not fail because of a notification problem.
// Provider I/O happens later, in the delivery worker, never here.
func (d *Dispatcher) EmitEvent(ctx context.Context, eventName string, payload map[string]string, criteria models.AudienceCriteria, priority models.Priority, senderID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatcher.EmitEvent: recovered from panic", "event", eventName, "panic", r)
		}
	}()

	recipients := d.audience.Resolve(criteria)
	if len(recipients) == 0 {
		slog.Debug("Dispatcher.EmitEvent: empty audience", "event", eventName)
		return
	}
	content := ResolveContent(eventName, payload)
	if priority == "" {
		priority = models.PriorityNormal
	}
	now := time.Now()

	type permitted struct {
		user  models.User
		prefs models.PreferenceSet
	}
	var allowed []permitted
	records := make([]models.NotificationRecord, 0, len(recipients))
	for _, u := range recipients {
		p := d.prefs.Load(u.ID)
		if !d.prefs.Allows(p, content.Type, now) {
			slog.Debug("Dispatcher.EmitEvent: recipient suppressed by preferences", "event", eventName, "user_id", u.ID)
			continue
		}
		allowed = append(allowed, permitted{user: u, prefs: p})
		records = append(records, models.NotificationRecord{
			RecipientID: u.ID,
			SenderID:    senderID,
			Type:        content.Type,
			Title:       content.Title,
			Body:        content.Body,
			Priority:    priority,
			Metadata:    payload,
			RelatedType: payload["related_type"],
			RelatedID:   payload["related_id"],
			ActionURL:   content.ActionURL,
		})
	}
	if len(records) == 0 {
		return
	}

	if err := d.store.CreateNotifications(records); err != nil {
		slog.Error("Dispatcher.EmitEvent: notification insert failed", "event", eventName, "error", err)
		// Outbox entries are still attempted; the channels are independent.
	}

	for _, pr := range allowed {
		if d.prefs.AllowsChannel(pr.prefs, models.ChannelPush) {
			d.enqueuePush(pr.user, content, payload)
		}
		if d.prefs.AllowsChannel(pr.prefs, models.ChannelEmail) && pr.user.Email != "" {
			d.enqueue(pr.user.ID, models.ChannelEmail, models.ProviderEmail, content, payload)
		}
	}
	slog.Info("Dispatcher.EmitEvent: dispatched", "event", eventName, "recipients", len(allowed))
}

// enqueuePush picks the recipient's push provider by registered identity.
// A recipient with no identity on any push provider is skipped silently; the
// inbox record already exists.
func (d *Dispatcher) enqueuePush(u models.User, content Content, payload map[string]string) {
	tokens, err := d.store.ListDeviceTokens(u.ID)
	if err != nil {
		slog.Error("Dispatcher.enqueuePush: device lookup failed", "user_id", u.ID, "error", err)
		return
	}
	provider := pickPushProvider(tokens)
	if provider == models.ProviderNone {
		slog.Debug("Dispatcher.enqueuePush: no device identity, skipping", "user_id", u.ID)
		return
	}
	d.enqueue(u.ID, models.ChannelPush, provider, content, payload)
}

func (d *Dispatcher) enqueue(recipientID string, channel models.Channel, provider models.ProviderName, content Content, payload map[string]string) {
	entry := &models.OutboxEntry{
		RecipientID: recipientID,
		Channel:     channel,
		Provider:    provider,
		Title:       content.Title,
		Body:        content.Body,
		Payload:     payload,
		RelatedType: payload["related_type"],
		RelatedID:   payload["related_id"],
	}
	if err := d.store.CreateOutboxEntry(entry); err != nil {
		slog.Error("Dispatcher.enqueue: outbox insert failed", "recipient", recipientID, "channel", channel, "error", err)
	}
}

// pickPushProvider returns the first provider in priority order that has a
// registered identity, or ProviderNone.
func pickPushProvider(tokens []models.DeviceToken) models.ProviderName {
	for _, p := range pushProviderOrder {
		for _, t := range tokens {
			if t.Provider == p && t.Token != "" {
				return p
			}
		}
	}
	return models.ProviderNone
}
