package service

import (
	"context"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestEvaluateActiveSubscriptionSuppressesTrial(t *testing.T) {
	subRepo := newFakeSubRepo()
	trialRepo := newFakeTrialRepo()
	seedSubscription(subRepo, "u1", "sub_1", model.StatusActive)
	trialRepo.trials["u1"] = &model.TrialRecord{
		UserID:       "u1",
		TrialEndTime: timePtr(time.Now().Add(72 * time.Hour)),
	}

	svc := NewTrialService(subRepo, trialRepo, zerolog.Nop())
	status := svc.Evaluate(context.Background(), "u1")
	if status.InTrial || status.TrialEndTime != nil {
		t.Fatalf("active subscription must suppress trial, got %+v", status)
	}
	if trialRepo.markCalls != 0 {
		t.Errorf("trial record touched while subscription active: %d mark calls", trialRepo.markCalls)
	}
}

func TestEvaluateNoTrialRecord(t *testing.T) {
	svc := NewTrialService(newFakeSubRepo(), newFakeTrialRepo(), zerolog.Nop())
	status := svc.Evaluate(context.Background(), "u1")
	if status.InTrial || status.TrialEndTime != nil {
		t.Fatalf("expected empty status for user with no records, got %+v", status)
	}
}

func TestEvaluateExistingTrialNeverActive(t *testing.T) {
	subRepo := newFakeSubRepo()
	trialRepo := newFakeTrialRepo()
	end := time.Now().Add(48 * time.Hour)
	trialRepo.trials["u1"] = &model.TrialRecord{UserID: "u1", TrialEndTime: &end, TrialUsed: true}

	svc := NewTrialService(subRepo, trialRepo, zerolog.Nop())
	status := svc.Evaluate(context.Background(), "u1")
	// A future end time is display data only; the trial is still reported as
	// not active.
	if status.InTrial {
		t.Error("trial reported active; existing records count as consumed")
	}
	if status.TrialEndTime == nil || !status.TrialEndTime.Equal(end) {
		t.Errorf("trial end time not surfaced for display: %v", status.TrialEndTime)
	}
}

func TestEvaluateMarksUsedExactlyOnce(t *testing.T) {
	subRepo := newFakeSubRepo()
	trialRepo := newFakeTrialRepo()
	trialRepo.trials["u1"] = &model.TrialRecord{UserID: "u1"}

	svc := NewTrialService(subRepo, trialRepo, zerolog.Nop())

	first := svc.Evaluate(context.Background(), "u1")
	if trialRepo.markCalls != 1 {
		t.Fatalf("mark calls after first evaluate = %d, want 1", trialRepo.markCalls)
	}
	if !trialRepo.trials["u1"].TrialUsed {
		t.Fatal("trial_used not flipped")
	}

	second := svc.Evaluate(context.Background(), "u1")
	if trialRepo.markCalls != 1 {
		t.Errorf("mark calls after second evaluate = %d, want 1 (idempotent)", trialRepo.markCalls)
	}
	if first != second {
		t.Errorf("evaluate not idempotent: %+v vs %+v", first, second)
	}
}

func TestEvaluateDegradesOnStoreFailure(t *testing.T) {
	t.Run("subscription read fails", func(t *testing.T) {
		subRepo := newFakeSubRepo()
		subRepo.getErr = errBoom
		svc := NewTrialService(subRepo, newFakeTrialRepo(), zerolog.Nop())
		status := svc.Evaluate(context.Background(), "u1")
		if status.InTrial || status.TrialEndTime != nil {
			t.Fatalf("store failure must degrade to safe default, got %+v", status)
		}
	})
	t.Run("trial read fails", func(t *testing.T) {
		trialRepo := newFakeTrialRepo()
		trialRepo.getErr = errBoom
		svc := NewTrialService(newFakeSubRepo(), trialRepo, zerolog.Nop())
		status := svc.Evaluate(context.Background(), "u1")
		if status.InTrial || status.TrialEndTime != nil {
			t.Fatalf("store failure must degrade to safe default, got %+v", status)
		}
	})
	t.Run("mark-used fails", func(t *testing.T) {
		trialRepo := newFakeTrialRepo()
		end := time.Now().Add(time.Hour)
		trialRepo.trials["u1"] = &model.TrialRecord{UserID: "u1", TrialEndTime: &end}
		trialRepo.markErr = errBoom
		svc := NewTrialService(newFakeSubRepo(), trialRepo, zerolog.Nop())
		// The failed backfill must not break the status result.
		status := svc.Evaluate(context.Background(), "u1")
		if status.TrialEndTime == nil {
			t.Fatal("status lost on mark-used failure")
		}
	})
}

func TestExhausted(t *testing.T) {
	trialRepo := newFakeTrialRepo()
	trialRepo.trials["u1"] = &model.TrialRecord{UserID: "u1", TrialUsed: true}
	svc := NewTrialService(newFakeSubRepo(), trialRepo, zerolog.Nop())

	if !svc.Exhausted(context.Background(), "u1") {
		t.Error("expected exhausted=true for user with a trial record")
	}
	if svc.Exhausted(context.Background(), "u2") {
		t.Error("expected exhausted=false for user without a trial record")
	}
}
