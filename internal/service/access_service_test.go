package service

import (
	"context"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

func newAccessFixture(attempts int) (*accessService, *fakeSubRepo, *fakeTrialRepo, *fakeProvider) {
	subRepo := newFakeSubRepo()
	trialRepo := newFakeTrialRepo()
	provider := newFakeProvider()
	syncSvc := NewSyncService(subRepo, provider, zerolog.Nop())
	trialSvc := NewTrialService(subRepo, trialRepo, zerolog.Nop())
	svc := NewAccessService(syncSvc, trialSvc, attempts, 3*time.Second, zerolog.Nop()).(*accessService)
	// Fire timers immediately so tests never sleep.
	svc.after = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	return svc, subRepo, trialRepo, provider
}

func TestCanAccessDecisions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeSubRepo, *fakeTrialRepo, *fakeProvider)
		want  model.EntitlementDecision
	}{
		{
			name: "active subscription",
			setup: func(s *fakeSubRepo, _ *fakeTrialRepo, p *fakeProvider) {
				seedSubscription(s, "u1", "sub_1", model.StatusActive)
				p.remote["sub_1"] = &RemoteSubscription{ID: "sub_1", Status: model.StatusActive}
			},
			want: model.EntitlementDecision{Entitled: true, Reason: model.ReasonActiveSubscription},
		},
		{
			name: "trialing subscription",
			setup: func(s *fakeSubRepo, _ *fakeTrialRepo, p *fakeProvider) {
				seedSubscription(s, "u1", "sub_1", model.StatusTrialing)
				p.remote["sub_1"] = &RemoteSubscription{ID: "sub_1", Status: model.StatusTrialing}
			},
			want: model.EntitlementDecision{Entitled: true, Reason: model.ReasonTrialing},
		},
		{
			name: "active even with trial record present",
			setup: func(s *fakeSubRepo, tr *fakeTrialRepo, p *fakeProvider) {
				seedSubscription(s, "u1", "sub_1", model.StatusActive)
				p.remote["sub_1"] = &RemoteSubscription{ID: "sub_1", Status: model.StatusActive}
				tr.trials["u1"] = &model.TrialRecord{UserID: "u1", TrialUsed: true}
			},
			want: model.EntitlementDecision{Entitled: true, Reason: model.ReasonActiveSubscription},
		},
		{
			name:  "no records at all",
			setup: func(*fakeSubRepo, *fakeTrialRepo, *fakeProvider) {},
			want:  model.EntitlementDecision{Entitled: false, Reason: model.ReasonNoSubscription},
		},
		{
			name: "canceled subscription with used trial",
			setup: func(s *fakeSubRepo, tr *fakeTrialRepo, p *fakeProvider) {
				seedSubscription(s, "u1", "sub_1", model.StatusCanceled)
				p.remote["sub_1"] = &RemoteSubscription{ID: "sub_1", Status: model.StatusCanceled}
				tr.trials["u1"] = &model.TrialRecord{UserID: "u1", TrialUsed: true}
			},
			want: model.EntitlementDecision{Entitled: false, Reason: model.ReasonTrialExhausted},
		},
		{
			name: "provider unreachable",
			setup: func(s *fakeSubRepo, _ *fakeTrialRepo, p *fakeProvider) {
				seedSubscription(s, "u1", "sub_1", model.StatusActive)
				p.fetchErr = errBoom
			},
			want: model.EntitlementDecision{Entitled: false, Reason: model.ReasonSyncFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, subRepo, trialRepo, provider := newAccessFixture(3)
			tt.setup(subRepo, trialRepo, provider)
			got := svc.CanAccess(context.Background(), "u1")
			if got != tt.want {
				t.Errorf("CanAccess = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWatchStopsAfterAttemptCap(t *testing.T) {
	svc, subRepo, _, provider := newAccessFixture(3)
	seedSubscription(subRepo, "u1", "sub_1", model.StatusActive)
	provider.fetchErr = errBoom // permanent remote failure

	handle := svc.Watch(context.Background(), "u1")
	var decisions []model.EntitlementDecision
	for d := range handle.Decisions() {
		decisions = append(decisions, d)
	}

	if provider.fetchCalls != 3 {
		t.Errorf("provider fetched %d times, want exactly 3", provider.fetchCalls)
	}
	if len(decisions) != 3 {
		t.Fatalf("got %d decisions, want 3 (pending, pending, terminal): %+v", len(decisions), decisions)
	}
	for _, d := range decisions[:2] {
		if d.Reason != model.ReasonSyncPending || d.Entitled {
			t.Errorf("intermediate decision = %+v, want sync-pending", d)
		}
	}
	last := decisions[2]
	if last.Entitled || last.Reason != model.ReasonSyncFailed {
		t.Errorf("terminal decision = %+v, want sync-failed", last)
	}
	if !last.Terminal() {
		t.Error("final decision must be terminal so the UI shows the manual-retry prompt")
	}
}

func TestWatchDeliversSuccessImmediately(t *testing.T) {
	svc, subRepo, _, provider := newAccessFixture(3)
	seedSubscription(subRepo, "u1", "sub_1", model.StatusActive)
	provider.remote["sub_1"] = &RemoteSubscription{ID: "sub_1", Status: model.StatusActive}

	handle := svc.Watch(context.Background(), "u1")
	var decisions []model.EntitlementDecision
	for d := range handle.Decisions() {
		decisions = append(decisions, d)
	}
	if len(decisions) != 1 {
		t.Fatalf("got %d decisions, want 1: %+v", len(decisions), decisions)
	}
	if !decisions[0].Entitled {
		t.Errorf("decision = %+v, want entitled", decisions[0])
	}
	if provider.fetchCalls != 1 {
		t.Errorf("provider fetched %d times, want 1", provider.fetchCalls)
	}
}

func TestWatchRecoversMidLoop(t *testing.T) {
	svc, subRepo, _, provider := newAccessFixture(3)
	seedSubscription(subRepo, "u1", "sub_1", model.StatusActive)
	provider.fetchErr = errBoom
	provider.remote["sub_1"] = &RemoteSubscription{ID: "sub_1", Status: model.StatusActive}

	// Heal the provider after the first failed attempt.
	firstWait := true
	svc.after = func(time.Duration) <-chan time.Time {
		if firstWait {
			firstWait = false
			provider.mu.Lock()
			provider.fetchErr = nil
			provider.mu.Unlock()
		}
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	handle := svc.Watch(context.Background(), "u1")
	var decisions []model.EntitlementDecision
	for d := range handle.Decisions() {
		decisions = append(decisions, d)
	}
	if len(decisions) != 2 {
		t.Fatalf("got %d decisions, want 2 (pending, entitled): %+v", len(decisions), decisions)
	}
	if decisions[0].Reason != model.ReasonSyncPending {
		t.Errorf("first decision = %+v, want sync-pending", decisions[0])
	}
	if !decisions[1].Entitled {
		t.Errorf("second decision = %+v, want entitled", decisions[1])
	}
}

func TestWatchStopCancelsPendingRetry(t *testing.T) {
	svc, subRepo, _, provider := newAccessFixture(3)
	seedSubscription(subRepo, "u1", "sub_1", model.StatusActive)
	provider.fetchErr = errBoom

	// A timer that never fires, so the loop parks between attempts.
	svc.after = func(time.Duration) <-chan time.Time {
		return make(chan time.Time)
	}

	handle := svc.Watch(context.Background(), "u1")
	first, ok := <-handle.Decisions()
	if !ok || first.Reason != model.ReasonSyncPending {
		t.Fatalf("first decision = %+v (ok=%v), want sync-pending", first, ok)
	}

	handle.Stop()
	handle.Stop() // idempotent

	select {
	case _, ok := <-handle.Decisions():
		if ok {
			t.Fatal("received a decision after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("decision channel not closed after Stop")
	}
	if provider.fetchCalls != 1 {
		t.Errorf("provider fetched %d times after Stop, want 1", provider.fetchCalls)
	}
}
