package service

import (
	"context"
	"time"

	"app/internal/model"

	"github.com/stripe/stripe-go/v82"
	subscriptionpkg "github.com/stripe/stripe-go/v82/subscription"
)

// RemoteSubscription is a snapshot of the billing provider's canonical
// subscription object, reduced to the fields mirrored locally.
type RemoteSubscription struct {
	ID                string
	Status            model.SubscriptionStatus
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// BillingProvider is the boundary to the remote billing provider. Cancel and
// reactivate only request a transition remotely; local state is updated by a
// follow-up reconciliation, never directly, so the mirror can't drift from
// what the provider would report.
type BillingProvider interface {
	FetchSubscription(ctx context.Context, subscriptionID string) (*RemoteSubscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	ReactivateSubscription(ctx context.Context, subscriptionID string) error
}

type stripeProvider struct{}

// NewStripeProvider returns a BillingProvider backed by the Stripe API.
// stripe.Key must be set before use.
func NewStripeProvider() BillingProvider {
	return &stripeProvider{}
}

func (p *stripeProvider) FetchSubscription(ctx context.Context, subscriptionID string) (*RemoteSubscription, error) {
	params := &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}}
	sub, err := subscriptionpkg.Get(subscriptionID, params)
	if err != nil {
		return nil, err
	}
	return remoteFromStripe(sub), nil
}

func (p *stripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	_, err := subscriptionpkg.Update(subscriptionID, params)
	return err
}

func (p *stripeProvider) ReactivateSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(false),
	}
	_, err := subscriptionpkg.Update(subscriptionID, params)
	return err
}

// remoteFromStripe maps a Stripe subscription to the mirrored snapshot. The
// status string is carried verbatim. The period end lives on the first
// subscription item in the current API version.
func remoteFromStripe(sub *stripe.Subscription) *RemoteSubscription {
	remote := &RemoteSubscription{
		ID:                sub.ID,
		Status:            model.SubscriptionStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		remote.CurrentPeriodEnd = time.Unix(sub.Items.Data[0].CurrentPeriodEnd, 0)
	}
	return remote
}
