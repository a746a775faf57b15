package dto

import "time"

// SubscriptionResponseDTO is returned for subscription reads and mutations.
type SubscriptionResponseDTO struct {
	UserID               string     `json:"user_id"`
	Status               string     `json:"status"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// SubscriptionCancelDTO requests a cancel or reactivate of the caller's
// subscription by its provider ID.
type SubscriptionCancelDTO struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
}

// SubscriptionCheckoutDTO requests a Stripe Checkout session.
type SubscriptionCheckoutDTO struct {
	Plan string `json:"plan" validate:"required,oneof=monthly annual"`
}

// TrialStatusResponseDTO reports a user's trial state for display.
type TrialStatusResponseDTO struct {
	InTrial      bool       `json:"in_trial"`
	TrialEndTime *time.Time `json:"trial_end_time,omitempty"`
}

// EntitlementResponseDTO is the dashboard access decision for the
// authenticated user.
type EntitlementResponseDTO struct {
	Entitled bool   `json:"entitled"`
	Reason   string `json:"reason"`
}
