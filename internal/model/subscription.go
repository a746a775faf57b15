package model

import "time"

// SubscriptionStatus mirrors Stripe's subscription status vocabulary verbatim.
// No statuses are invented locally; the provider is the source of truth.
type SubscriptionStatus string

const (
	StatusActive            SubscriptionStatus = "active"
	StatusTrialing          SubscriptionStatus = "trialing"
	StatusCanceled          SubscriptionStatus = "canceled"
	StatusPastDue           SubscriptionStatus = "past_due"
	StatusIncomplete        SubscriptionStatus = "incomplete"
	StatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	StatusUnpaid            SubscriptionStatus = "unpaid"
)

// Subscription is the local mirror of a user's Stripe subscription.
// At most one row exists per user. The row is never deleted; a canceled
// subscription is kept around so the UI can offer a "Resubscribe" flow.
type Subscription struct {
	UserID               string             `db:"user_id" json:"user_id"`
	Status               SubscriptionStatus `db:"status" json:"status"`
	StripeSubscriptionID *string            `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	CurrentPeriodEnd     time.Time          `db:"current_period_end" json:"current_period_end"`
	CancelAtPeriodEnd    bool               `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// Synced reports whether the record has been reconciled with Stripe at
// least once. StripeSubscriptionID is set iff that has happened.
func (s *Subscription) Synced() bool {
	return s != nil && s.StripeSubscriptionID != nil && *s.StripeSubscriptionID != ""
}

// Entitling reports whether the status alone grants dashboard access.
func (s *Subscription) Entitling() bool {
	if s == nil {
		return false
	}
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// TrialRecord is a user's one-shot trial eligibility record.
// TrialUsed moves false -> true exactly once and is never reset, so a user
// can never receive a second trial no matter what happens to their
// subscription afterwards.
type TrialRecord struct {
	UserID       string     `db:"user_id" json:"user_id"`
	TrialEndTime *time.Time `db:"trial_end_time" json:"trial_end_time,omitempty"`
	TrialUsed    bool       `db:"trial_used" json:"trial_used"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// TrialStatus is the trial evaluator's answer for a user. TrialEndTime is
// surfaced for display only; access never derives from it.
type TrialStatus struct {
	InTrial      bool       `json:"in_trial"`
	TrialEndTime *time.Time `json:"trial_end_time,omitempty"`
}

// EntitlementReason explains an entitlement decision.
type EntitlementReason string

const (
	ReasonActiveSubscription EntitlementReason = "active-subscription"
	ReasonTrialing           EntitlementReason = "trialing"
	ReasonNoSubscription     EntitlementReason = "no-subscription"
	ReasonTrialExhausted     EntitlementReason = "trial-exhausted"
	ReasonSyncPending        EntitlementReason = "sync-pending"
	ReasonSyncFailed         EntitlementReason = "sync-failed"
)

// EntitlementDecision is the access gate's output. It is derived on every
// call and never persisted.
type EntitlementDecision struct {
	Entitled bool              `json:"entitled"`
	Reason   EntitlementReason `json:"reason"`
}

// Terminal reports whether the decision is final for the current page view,
// as opposed to a sync-pending state the caller may retry.
func (d EntitlementDecision) Terminal() bool {
	return d.Reason != ReasonSyncPending
}
