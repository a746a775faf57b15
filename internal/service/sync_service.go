package service

import (
	"context"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// SyncService reconciles the local subscription mirror with the billing
// provider's canonical record.
type SyncService interface {
	// Refresh pulls the provider's current state and overwrites the local
	// mirror from it. Returns the merged record, or nil when the user has no
	// subscription row at all. Provider failures surface as *SyncError, store
	// failures as *StoreError; the engine itself never retries.
	Refresh(ctx context.Context, userID string) (*model.Subscription, error)
}

type syncService struct {
	subRepo  repository.SubscriptionRepository
	provider BillingProvider
	logger   zerolog.Logger
}

// NewSyncService creates a new SyncService with a scoped logger.
func NewSyncService(subRepo repository.SubscriptionRepository, provider BillingProvider, logger zerolog.Logger) SyncService {
	return &syncService{
		subRepo:  subRepo,
		provider: provider,
		logger:   logger.With().Str("service", "SyncService").Logger(),
	}
}

func (s *syncService) Refresh(ctx context.Context, userID string) (*model.Subscription, error) {
	local, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to read local subscription")
		return nil, &StoreError{Op: "read subscription", Err: err}
	}
	// Nothing to reconcile until a checkout has linked the record to a
	// provider subscription. An unsynced or absent record is returned as-is,
	// not treated as an error.
	if !local.Synced() {
		return local, nil
	}

	remote, err := s.provider.FetchSubscription(ctx, *local.StripeSubscriptionID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("stripe_subscription_id", *local.StripeSubscriptionID).Msg("Failed to fetch subscription from Stripe")
		return nil, &SyncError{Op: "fetch subscription", Err: err}
	}

	// Provider wins unconditionally. All mirrored fields are overwritten in
	// one write; local optimistic edits never survive a sync.
	local.Status = remote.Status
	local.CurrentPeriodEnd = remote.CurrentPeriodEnd
	local.CancelAtPeriodEnd = remote.CancelAtPeriodEnd

	if err := s.subRepo.Upsert(ctx, local); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to persist reconciled subscription")
		return nil, &StoreError{Op: "write subscription", Err: err}
	}
	return local, nil
}
