package delivery

import (
	"log/slog"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/store"
)

// Sweeper reclaims outbox entries that stopped moving: still queued or
// retrying but not updated within the staleness threshold, typically because
// a worker died mid-cycle. It only re-schedules; terminal states and attempt
// counters are never touched.
type Sweeper struct {
	outbox         store.OutboxRepo
	staleThreshold time.Duration
	batchLimit     int
}

// NewSweeper creates a sweeper with the given staleness threshold.
func NewSweeper(outbox store.OutboxRepo, staleThreshold time.Duration) *Sweeper {
	if staleThreshold <= 0 {
		staleThreshold = 5 * time.Minute
	}
	return &Sweeper{
		outbox:         outbox,
		staleThreshold: staleThreshold,
		batchLimit:     100,
	}
}

// Sweep performs one pass. Errors are logged, never propagated; the next
// cadence tick simply tries again.
func (s *Sweeper) Sweep() {
	staleBefore := time.Now().Add(-s.staleThreshold)
	n, err := s.outbox.RequeueStaleOutboxEntries(staleBefore, s.batchLimit)
	if err != nil {
		slog.Error("Sweeper.Sweep: requeue failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Sweeper.Sweep: requeued stale entries", "count", n)
	}
}
