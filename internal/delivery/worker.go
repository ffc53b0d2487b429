// Package delivery contains the out-of-band side of the engine: the delivery
// worker that drains the outbox through provider adapters, the sweep job that
// reclaims stuck entries and the retention job that purges old rows.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/provider"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/store"
)

const defaultSendTimeout = 10 * time.Second

// RetryCountdown returns the backoff before the next attempt:
// min(2^attempts * 30, 3600) seconds.
func RetryCountdown(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	// 2^7 * 30 already exceeds the cap; guard before shifting to avoid overflow.
	if attempts >= 7 {
		return time.Hour
	}
	d := time.Duration(30*(1<<attempts)) * time.Second
	if d > time.Hour {
		return time.Hour
	}
	return d
}

// Worker processes outbox entries: it resolves the provider adapter and
// delivery identity, performs the send, and advances the entry's state
// machine. All provider I/O in the system happens here.
type Worker struct {
	store        store.Store
	registry     *provider.Registry
	pollInterval time.Duration
	claimLimit   int
	sendTimeout  time.Duration
}

// NewWorker creates a delivery worker polling at the given interval.
func NewWorker(s store.Store, registry *provider.Registry, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Worker{
		store:        s,
		registry:     registry,
		pollInterval: pollInterval,
		claimLimit:   10,
		sendTimeout:  defaultSendTimeout,
	}
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("Worker.Run: starting delivery worker", "pollInterval", w.pollInterval, "providers", w.registry.Names())

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Worker.Run: stopping")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	entries, err := w.store.ListDueOutboxEntries(time.Now(), w.claimLimit)
	if err != nil {
		slog.Error("Worker.poll: claim failed", "error", err)
		return
	}
	for _, e := range entries {
		if err := w.Process(ctx, e.ID); err != nil {
			slog.Error("Worker.poll: process failed", "id", e.ID, "error", err)
		}
	}
}

// Process handles one outbox entry end to end. Terminal entries are a no-op,
// which is what makes concurrent workers racing on the same entry safe: the
// loser of the race observes sent/dead and leaves the row alone. A returned
// error means a store problem, not a delivery failure; delivery failures are
// absorbed into the entry's state. Retriable classification is informational:
// every failure takes the same counter path (retrying until attempts reach
// max, then dead), and a non-retriable one simply keeps failing until it
// dead-letters.
func (w *Worker) Process(ctx context.Context, id string) error {
	entry, err := w.store.GetOutboxEntry(id)
	if err != nil {
		if err == models.ErrEntryNotFound {
			slog.Debug("Worker.Process: entry vanished", "id", id)
			return nil
		}
		return fmt.Errorf("load outbox entry: %w", err)
	}
	if entry.Status.IsTerminal() {
		slog.Debug("Worker.Process: terminal entry, nothing to do", "id", id, "status", entry.Status)
		return nil
	}

	sendErr := w.deliver(ctx, entry)
	now := time.Now()
	if sendErr == nil {
		if err := w.store.MarkOutboxSent(entry.ID, now); err != nil {
			return fmt.Errorf("mark sent: %w", err)
		}
		slog.Info("Worker.Process: delivered", "id", entry.ID, "channel", entry.Channel, "provider", entry.Provider, "attempts", entry.Attempts)
		return nil
	}

	retriable := models.IsRetriable(sendErr)
	retryAt := now.Add(RetryCountdown(entry.Attempts))
	if err := w.store.MarkOutboxFailed(entry.ID, sendErr.Error(), retryAt); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	slog.Warn("Worker.Process: delivery failed",
		"id", entry.ID, "channel", entry.Channel, "provider", entry.Provider,
		"attempts", entry.Attempts+1, "max_attempts", entry.MaxAttempts,
		"retriable", retriable, "error", sendErr)
	return nil
}

// deliver resolves adapter and identity and performs the send. A panic inside
// an adapter is recovered and treated as a retriable failure so the entry
// stays on its counter path instead of wedging the worker.
func (w *Worker) deliver(ctx context.Context, entry *models.OutboxEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = models.NewProviderError(entry.Provider, true, "panic during delivery: %v", r)
		}
	}()

	adapter, rerr := w.registry.Resolve(entry.Provider)
	if rerr != nil {
		return models.NewProviderError(entry.Provider, false, "no adapter registered")
	}
	identity, ierr := w.resolveIdentity(entry)
	if ierr != nil {
		return ierr
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	_, err = adapter.Send(sendCtx, identity, entry.Title, entry.Body, entry.Payload)
	return err
}

// resolveIdentity looks up the delivery identity fresh at send time, so
// device token and email changes between enqueue and delivery are honored.
func (w *Worker) resolveIdentity(entry *models.OutboxEntry) (string, error) {
	switch entry.Channel {
	case models.ChannelPush:
		tokens, err := w.store.ListDeviceTokens(entry.RecipientID)
		if err != nil {
			return "", models.NewProviderError(entry.Provider, true, "device lookup failed: %v", err)
		}
		for _, t := range tokens {
			if t.Provider == entry.Provider && t.Token != "" {
				return t.Token, nil
			}
		}
		return "", models.NewProviderError(entry.Provider, false, "%v", models.ErrNoDeviceIdentity)

	case models.ChannelEmail:
		user, err := w.store.GetUser(entry.RecipientID)
		if err != nil {
			if err == models.ErrUserNotFound {
				return "", models.NewProviderError(entry.Provider, false, "recipient no longer exists")
			}
			return "", models.NewProviderError(entry.Provider, true, "recipient lookup failed: %v", err)
		}
		if user.Email == "" {
			return "", models.NewProviderError(entry.Provider, false, "%v", models.ErrEmptyRecipient)
		}
		return user.Email, nil
	}
	return "", models.NewProviderError(entry.Provider, false, "unsupported channel %q", entry.Channel)
}
