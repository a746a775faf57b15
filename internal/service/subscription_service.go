package service

import (
	"context"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// SubscriptionService exposes the user-initiated subscription operations.
// Cancel and reactivate request the transition from the billing provider and
// then reconcile; they never flip the local status themselves, so the mirror
// can only ever hold a status the provider agreed to.
type SubscriptionService interface {
	// Fetch reconciles and returns the user's subscription mirror, or nil
	// when the user has none.
	Fetch(ctx context.Context, userID string) (*model.Subscription, error)
	Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	Reactivate(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
}

type subscriptionService struct {
	sync     SyncService
	subRepo  repository.SubscriptionRepository
	provider BillingProvider
	logger   zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(syncSvc SyncService, subRepo repository.SubscriptionRepository, provider BillingProvider, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		sync:     syncSvc,
		subRepo:  subRepo,
		provider: provider,
		logger:   logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) Fetch(ctx context.Context, userID string) (*model.Subscription, error) {
	return s.sync.Refresh(ctx, userID)
}

func (s *subscriptionService) Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	if err := s.authorize(ctx, userID, subscriptionID); err != nil {
		return nil, err
	}
	if err := s.provider.CancelAtPeriodEnd(ctx, subscriptionID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("stripe_subscription_id", subscriptionID).Msg("Failed to request cancellation from Stripe")
		return nil, &SyncError{Op: "cancel subscription", Err: err}
	}
	// The provider has acknowledged the mutation, so this refresh observes
	// the post-cancel state.
	return s.sync.Refresh(ctx, userID)
}

func (s *subscriptionService) Reactivate(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	if err := s.authorize(ctx, userID, subscriptionID); err != nil {
		return nil, err
	}
	if err := s.provider.ReactivateSubscription(ctx, subscriptionID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("stripe_subscription_id", subscriptionID).Msg("Failed to request reactivation from Stripe")
		return nil, &SyncError{Op: "reactivate subscription", Err: err}
	}
	return s.sync.Refresh(ctx, userID)
}

// authorize rejects a mutation before any network call when the caller does
// not own a synchronized subscription with the given provider ID.
func (s *subscriptionService) authorize(ctx context.Context, userID, subscriptionID string) error {
	if subscriptionID == "" {
		return &ValidationError{Field: "subscription_id", Msg: "must not be empty"}
	}
	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		return &StoreError{Op: "read subscription", Err: err}
	}
	if !sub.Synced() {
		return &ValidationError{Field: "subscription_id", Msg: "no synchronized subscription for user"}
	}
	if *sub.StripeSubscriptionID != subscriptionID {
		return &ValidationError{Field: "subscription_id", Msg: "subscription does not belong to user"}
	}
	return nil
}
