package service

import (
	"context"
	"sync"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

// AccessService is the entitlement gate in front of the dashboard. Every
// decision is re-derived from the stores on each call; nothing is cached
// here, so repeated calls are idempotent.
type AccessService interface {
	// CanAccess refreshes the subscription mirror, runs the trial evaluation,
	// and combines both into a single decision. A failed sync is never
	// entitled ("sync-failed"): the gate fails closed.
	CanAccess(ctx context.Context, userID string) model.EntitlementDecision
	// Watch runs CanAccess in a bounded auto-refresh loop for "still loading"
	// UI. It emits a sync-pending decision before each timed retry and a
	// terminal decision once it succeeds or the attempt cap is reached, at
	// which point the client should show a manual-retry prompt.
	Watch(ctx context.Context, userID string) *WatchHandle
}

// WatchHandle is a cancellable handle to a running access watch.
type WatchHandle struct {
	decisions chan model.EntitlementDecision
	stop      chan struct{}
	stopOnce  sync.Once
}

// Decisions returns the stream of decisions. It is closed after the terminal
// decision has been delivered.
func (h *WatchHandle) Decisions() <-chan model.EntitlementDecision {
	return h.decisions
}

// Stop cancels any pending retry. Safe to call more than once; always call it
// when the consuming surface is torn down so no timer outlives the caller.
func (h *WatchHandle) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

type accessService struct {
	sync     SyncService
	trials   TrialService
	attempts int
	interval time.Duration
	after    func(time.Duration) <-chan time.Time
	logger   zerolog.Logger
}

// NewAccessService creates a new AccessService. attempts and interval bound
// the Watch retry loop and come from configuration.
func NewAccessService(syncSvc SyncService, trialSvc TrialService, attempts int, interval time.Duration, logger zerolog.Logger) AccessService {
	if attempts < 1 {
		attempts = 1
	}
	return &accessService{
		sync:     syncSvc,
		trials:   trialSvc,
		attempts: attempts,
		interval: interval,
		after:    time.After,
		logger:   logger.With().Str("service", "AccessService").Logger(),
	}
}

func (s *accessService) CanAccess(ctx context.Context, userID string) model.EntitlementDecision {
	sub, err := s.sync.Refresh(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Sync failed, denying access")
		return model.EntitlementDecision{Entitled: false, Reason: model.ReasonSyncFailed}
	}

	// Runs regardless of the outcome below: the evaluation carries the lazy
	// trial-used backfill.
	s.trials.Evaluate(ctx, userID)

	if sub.Entitling() {
		reason := model.ReasonActiveSubscription
		if sub.Status == model.StatusTrialing {
			reason = model.ReasonTrialing
		}
		return model.EntitlementDecision{Entitled: true, Reason: reason}
	}

	if s.trials.Exhausted(ctx, userID) {
		return model.EntitlementDecision{Entitled: false, Reason: model.ReasonTrialExhausted}
	}
	return model.EntitlementDecision{Entitled: false, Reason: model.ReasonNoSubscription}
}

func (s *accessService) Watch(ctx context.Context, userID string) *WatchHandle {
	h := &WatchHandle{
		// Buffered for the worst case so the goroutine can never leak behind
		// a consumer that stopped reading.
		decisions: make(chan model.EntitlementDecision, s.attempts+1),
		stop:      make(chan struct{}),
	}

	go func() {
		defer close(h.decisions)
		for attempt := 1; attempt <= s.attempts; attempt++ {
			decision := s.CanAccess(ctx, userID)
			if decision.Reason != model.ReasonSyncFailed {
				h.decisions <- decision
				return
			}
			if attempt == s.attempts {
				s.logger.Warn().Str("user_id", userID).Int("attempts", s.attempts).Msg("Sync retries exhausted, surfacing manual-retry state")
				h.decisions <- decision
				return
			}
			h.decisions <- model.EntitlementDecision{Entitled: false, Reason: model.ReasonSyncPending}
			select {
			case <-ctx.Done():
				return
			case <-h.stop:
				return
			case <-s.after(s.interval):
			}
		}
	}()

	return h
}
