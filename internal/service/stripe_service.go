package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"app/internal/config"
	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	billingsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	customerpkg "github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeService manages Stripe integration: checkout, the customer portal,
// and the webhook endpoint that keeps the local mirror convergent.
type StripeService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	subRepo  repository.SubscriptionRepository
	provider BillingProvider
	events   repository.EventCache
	logger   zerolog.Logger
}

// NewStripeService initializes the Stripe key and returns the service with a
// scoped logger.
func NewStripeService(cfg *config.Config, userRepo repository.UserRepository, subRepo repository.SubscriptionRepository, provider BillingProvider, events repository.EventCache, logger zerolog.Logger) *StripeService {
	stripe.Key = cfg.StripeSecretKey
	lg := logger.With().Str("service", "StripeService").Logger()
	return &StripeService{cfg: cfg, userRepo: userRepo, subRepo: subRepo, provider: provider, events: events, logger: lg}
}

// getUserIDFromEvent resolves the user ID from webhook metadata, falling back
// to a customer-ID lookup for events created outside our checkout flow.
func (s *StripeService) getUserIDFromEvent(ctx context.Context, metadata map[string]string, customerID string) (string, error) {
	if userID, ok := metadata["user_id"]; ok && userID != "" {
		return userID, nil
	}
	if customerID == "" {
		return "", errors.New("cannot determine user: missing metadata and customer id")
	}
	s.logger.Warn().Str("stripe_customer_id", customerID).Msg("Missing user_id metadata; looking up user by customer ID")
	u, err := s.userRepo.GetUserByStripeCustomerID(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("failed to lookup user by Stripe customer ID: %w", err)
	}
	if u == nil {
		return "", fmt.Errorf("no user found for customer ID: %s", customerID)
	}
	return u.UserID, nil
}

// GetOrCreateCustomer ensures a Stripe Customer exists for a user.
func (s *StripeService) GetOrCreateCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}
	s.logger.Warn().Str("user_id", user.UserID).Msg("No Stripe customer ID found, creating customer as fallback")
	return s.CreateCustomer(ctx, user)
}

// CreateCustomer creates a new Stripe customer for a user
func (s *StripeService) CreateCustomer(ctx context.Context, user *model.User) (string, error) {
	params := &stripe.CustomerParams{
		Params:   stripe.Params{Context: ctx},
		Email:    stripe.String(user.Email),
		Name:     stripe.String(user.Name),
		Metadata: map[string]string{"user_id": user.UserID},
	}
	cust, err := customerpkg.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	if err := s.userRepo.UpdateStripeCustomerID(ctx, user.UserID, cust.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to store stripe customer id in user_profiles")
		return "", fmt.Errorf("store stripe customer id: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession creates a Stripe Checkout session. A completed
// checkout opens a fresh subscription cycle under a new provider
// subscription ID; the webhook links it to the local mirror.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID, plan string) (string, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user for checkout session")
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		s.logger.Error().Str("user_id", userID).Msg("User not found for checkout session")
		return "", fmt.Errorf("user not found: %s", userID)
	}
	customerID, err := s.GetOrCreateCustomer(ctx, user)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to get or create Stripe customer for checkout session")
		return "", err
	}
	var priceID string
	switch plan {
	case "monthly":
		priceID = s.cfg.StripePriceMonthly
	case "annual":
		priceID = s.cfg.StripePriceAnnual
	default:
		return "", &ValidationError{Field: "plan", Msg: fmt.Sprintf("unknown plan %q", plan)}
	}
	sessParams := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(priceID), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(stripe.CheckoutSessionModeSubscription),
		SuccessURL:         stripe.String(s.cfg.StripePortalReturnURL + "?status=success"),
		CancelURL:          stripe.String(s.cfg.StripePortalReturnURL + "?status=cancel"),
		Metadata:           map[string]string{"user_id": userID},
	}
	sess, err := checkoutsession.New(sessParams)
	if err != nil {
		s.logger.Error().Err(err).Str("plan", plan).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreatePortalSession creates a Stripe Customer Portal session
func (s *StripeService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch user for portal session")
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if user == nil || user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		s.logger.Error().Str("user_id", userID).Msg("No Stripe customer ID found for user when creating portal session")
		return "", fmt.Errorf("no stripe customer for user: %s", userID)
	}
	params := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(*user.StripeCustomerID),
		ReturnURL: stripe.String(s.cfg.StripePortalReturnURL),
	}
	sess, err := billingsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe billing portal session")
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// mirror fetches the canonical subscription from the provider and overwrites
// the local record from it. Every webhook event funnels through this one
// write path, so event handling is idempotent and the mirror never holds a
// state the provider disagrees with.
func (s *StripeService) mirror(ctx context.Context, userID, subscriptionID string) error {
	remote, err := s.provider.FetchSubscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("fetch subscription %s: %w", subscriptionID, err)
	}
	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("read local subscription for user %s: %w", userID, err)
	}
	if sub == nil {
		sub = &model.Subscription{UserID: userID}
	}
	sub.StripeSubscriptionID = &remote.ID
	sub.Status = remote.Status
	sub.CurrentPeriodEnd = remote.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = remote.CancelAtPeriodEnd
	return s.subRepo.Upsert(ctx, sub)
}

// HandleWebhook processes Stripe webhook events
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEventWithOptions(payload, sig, s.cfg.StripeWebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Str("event_id", event.ID).Msg("Stripe webhook received")

	ctx := r.Context()

	// Stripe delivers at least once. The mirror write is idempotent anyway,
	// so a dedupe-cache failure only costs a redundant provider fetch.
	if s.events != nil {
		seen, err := s.events.Seen(ctx, event.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("event_id", event.ID).Msg("Webhook dedupe check failed, processing anyway")
		} else if seen {
			s.logger.Info().Str("event_id", event.ID).Msg("Duplicate webhook event, skipping")
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			http.Error(w, "invalid checkout.session data", http.StatusBadRequest)
			return
		}
		if cs.Subscription == nil || cs.Subscription.ID == "" {
			s.logger.Error().Str("session_id", cs.ID).Msg("Checkout session has no subscription")
			http.Error(w, "checkout session has no subscription", http.StatusBadRequest)
			return
		}
		userID := cs.Metadata["user_id"]
		if userID == "" {
			s.logger.Error().Str("subscription_id", cs.Subscription.ID).Msg("Missing user_id in checkout session metadata")
			http.Error(w, "missing user_id in metadata", http.StatusBadRequest)
			return
		}
		if err := s.mirror(ctx, userID, cs.Subscription.ID); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to mirror subscription on checkout.session.completed")
			http.Error(w, "failed to save subscription", http.StatusInternalServerError)
			return
		}

	case "customer.subscription.updated", "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			s.logger.Error().Err(err).Msg("Invalid subscription payload")
			http.Error(w, "invalid subscription data", http.StatusBadRequest)
			return
		}
		customerID := ""
		if ss.Customer != nil {
			customerID = ss.Customer.ID
		}
		userID, err := s.getUserIDFromEvent(ctx, ss.Metadata, customerID)
		if err != nil {
			s.logger.Error().Err(err).Str("subscription_id", ss.ID).Msg("Failed to determine user ID from subscription")
			http.Error(w, "failed to identify user", http.StatusInternalServerError)
			return
		}
		// A deleted subscription is still fetchable and reports canceled; the
		// local row is overwritten, never removed, so the Resubscribe flow
		// keeps its history.
		if err := s.mirror(ctx, userID, ss.ID); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Str("subscription_id", ss.ID).Msg("Failed to mirror subscription update")
			http.Error(w, "failed to update subscription", http.StatusInternalServerError)
			return
		}

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			s.logger.Error().Err(err).Msg("Invalid invoice.payment_failed payload")
			http.Error(w, "invalid invoice data", http.StatusBadRequest)
			return
		}
		customerID := ""
		if invoice.Customer != nil {
			customerID = invoice.Customer.ID
		}
		userID, err := s.getUserIDFromEvent(ctx, invoice.Metadata, customerID)
		if err != nil {
			s.logger.Error().Err(err).Str("invoice_id", invoice.ID).Msg("Failed to determine user ID from invoice")
			http.Error(w, "failed to identify user", http.StatusInternalServerError)
			return
		}
		subID := subscriptionIDFromInvoice(&invoice)
		if subID == "" {
			// One-time invoice, nothing to mirror.
			s.logger.Info().Str("invoice_id", invoice.ID).Msg("Invoice has no subscription, skipping subscription update")
			w.WriteHeader(http.StatusOK)
			return
		}
		if err := s.mirror(ctx, userID, subID); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Str("subscription_id", subID).Msg("Failed to mirror subscription on invoice.payment_failed")
			http.Error(w, "failed to update subscription", http.StatusInternalServerError)
			return
		}

	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
	}
	w.WriteHeader(http.StatusOK)
}

// subscriptionIDFromInvoice digs the subscription ID out of invoice line
// items. Empty for one-time invoices.
func subscriptionIDFromInvoice(invoice *stripe.Invoice) string {
	if invoice.Lines == nil {
		return ""
	}
	for _, line := range invoice.Lines.Data {
		if line.Subscription != nil && line.Subscription.ID != "" {
			return line.Subscription.ID
		}
	}
	return ""
}
