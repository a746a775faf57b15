package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing the local
// subscription mirror.
type SubscriptionRepository interface {
	// GetByUserID returns (nil, nil) when the user has no subscription row.
	GetByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	// Upsert replaces the entire mirrored record in one statement. Reconciliation
	// relies on this being a full overwrite: partial-field merges would let a
	// local edit survive a sync.
	Upsert(ctx context.Context, sub *model.Subscription) error
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	const q = `
        SELECT user_id, status, stripe_subscription_id, current_period_end, cancel_at_period_end, created_at, updated_at
        FROM user_subscriptions
        WHERE user_id = $1
    `
	var sub model.Subscription
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&sub.UserID,
		&sub.Status,
		&sub.StripeSubscriptionID,
		&sub.CurrentPeriodEnd,
		&sub.CancelAtPeriodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	return &sub, nil
}

func (r *subscriptionRepo) Upsert(ctx context.Context, sub *model.Subscription) error {
	const q = `
        INSERT INTO user_subscriptions (user_id, status, stripe_subscription_id, current_period_end, cancel_at_period_end, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET status = EXCLUDED.status,
            stripe_subscription_id = EXCLUDED.stripe_subscription_id,
            current_period_end = EXCLUDED.current_period_end,
            cancel_at_period_end = EXCLUDED.cancel_at_period_end,
            updated_at = NOW();
    `
	_, err := r.pool.Exec(ctx, q, sub.UserID, sub.Status, sub.StripeSubscriptionID, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd)
	if err != nil {
		return fmt.Errorf("upsert subscription for user %s: %w", sub.UserID, err)
	}
	return nil
}
