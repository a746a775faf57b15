package service

import (
	"context"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// TrialService evaluates a user's one-shot trial record. It never grants a
// trial: grants happen at signup, outside this service. It only reads the
// record and marks it used.
type TrialService interface {
	// Evaluate never fails: absence of data is a normal terminal state, and
	// store failures degrade to the safe default (no trial), keeping access
	// decisions fail-closed.
	Evaluate(ctx context.Context, userID string) model.TrialStatus
	// Exhausted reports whether a trial record exists for the user. Used by
	// the access gate to distinguish "trial-exhausted" from "no-subscription".
	Exhausted(ctx context.Context, userID string) bool
}

type trialService struct {
	subRepo   repository.SubscriptionRepository
	trialRepo repository.TrialRepository
	logger    zerolog.Logger
}

// NewTrialService creates a new TrialService with a scoped logger.
func NewTrialService(subRepo repository.SubscriptionRepository, trialRepo repository.TrialRepository, logger zerolog.Logger) TrialService {
	return &trialService{
		subRepo:   subRepo,
		trialRepo: trialRepo,
		logger:    logger.With().Str("service", "TrialService").Logger(),
	}
}

func (s *trialService) Evaluate(ctx context.Context, userID string) model.TrialStatus {
	none := model.TrialStatus{}

	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read subscription during trial evaluation")
		return none
	}
	// A paid subscription suppresses trial semantics entirely, even when a
	// trial record exists.
	if sub.Entitling() {
		return none
	}

	trial, err := s.trialRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read trial record")
		return none
	}
	if trial == nil {
		return none
	}

	// An existing record counts as consumed for presentation purposes, even
	// when its end time is still in the future. TrialEndTime is surfaced for
	// display only; access is decided solely by subscription status.
	if !trial.TrialUsed {
		if err := s.trialRepo.MarkUsed(ctx, userID); err != nil {
			// Backfill only; re-attempted on the next evaluation.
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to mark trial used")
		}
	}

	return model.TrialStatus{InTrial: false, TrialEndTime: trial.TrialEndTime}
}

func (s *trialService) Exhausted(ctx context.Context, userID string) bool {
	trial, err := s.trialRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read trial record for exhaustion check")
		return false
	}
	return trial != nil
}
