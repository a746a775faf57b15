package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// SubscriptionHandler handles subscription, trial and access endpoints.
type SubscriptionHandler struct {
	subSvc    service.SubscriptionService
	trialSvc  service.TrialService
	accessSvc service.AccessService
	stripeSvc *service.StripeService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subSvc service.SubscriptionService, trialSvc service.TrialService, accessSvc service.AccessService, stripeSvc *service.StripeService, v *validator.Validate, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subSvc: subSvc, trialSvc: trialSvc, accessSvc: accessSvc, stripeSvc: stripeSvc, validate: v, logger: logger}
}

// RegisterRoutes registers the subscription endpoints.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/subscriptions", authMiddleware(http.HandlerFunc(h.Fetch)))
	mux.Handle("/subscriptions/cancel", authMiddleware(http.HandlerFunc(h.Cancel)))
	mux.Handle("/subscriptions/reactivate", authMiddleware(http.HandlerFunc(h.Reactivate)))
	mux.Handle("/subscriptions/trial", authMiddleware(http.HandlerFunc(h.Trial)))
	mux.Handle("/subscriptions/access", authMiddleware(http.HandlerFunc(h.Access)))
	mux.Handle("/subscriptions/checkout", authMiddleware(http.HandlerFunc(h.Checkout)))
	mux.Handle("/subscriptions/portal", authMiddleware(http.HandlerFunc(h.Portal)))
}

// Fetch godoc
// @Summary Fetch the caller's subscription
// @Description Reconciles the local subscription mirror with Stripe and returns it. Returns null when the user has no subscription.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Failure 502 {string} string "billing provider unavailable, try again"
// @Router /subscriptions [get]
func (h *SubscriptionHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sub, err := h.subSvc.Fetch(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err, "failed to fetch subscription")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if sub == nil {
		// No subscription yet is a normal state, not an error.
		if _, err := w.Write([]byte("null\n")); err != nil {
			h.logger.Error().Err(err).Msg("failed to write response")
		}
		return
	}
	h.encode(w, subscriptionToDTO(sub))
}

// Cancel godoc
// @Summary Request cancellation of the caller's subscription
// @Description Asks Stripe to cancel at period end, then re-syncs the local mirror. Local status is never flipped directly.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.SubscriptionCancelDTO true "Subscription cancel request"
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 502 {string} string "billing provider unavailable, try again"
// @Router /subscriptions/cancel [post]
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.subSvc.Cancel)
}

// Reactivate godoc
// @Summary Resume a subscription scheduled for cancellation
// @Description Clears cancel-at-period-end with Stripe, then re-syncs the local mirror.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.SubscriptionCancelDTO true "Subscription reactivate request"
// @Success 200 {object} dto.SubscriptionResponseDTO
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 502 {string} string "billing provider unavailable, try again"
// @Router /subscriptions/reactivate [post]
func (h *SubscriptionHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.subSvc.Reactivate)
}

func (h *SubscriptionHandler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.SubscriptionCancelDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	sub, err := op(r.Context(), userID, req.SubscriptionID)
	if err != nil {
		h.writeServiceError(w, err, "failed to update subscription")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	h.encode(w, subscriptionToDTO(sub))
}

// Trial godoc
// @Summary Report the caller's trial status
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.TrialStatusResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /subscriptions/trial [get]
func (h *SubscriptionHandler) Trial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	status := h.trialSvc.Evaluate(r.Context(), userID)
	w.Header().Set("Content-Type", "application/json")
	h.encode(w, dto.TrialStatusResponseDTO{InTrial: status.InTrial, TrialEndTime: status.TrialEndTime})
}

// Access godoc
// @Summary Decide whether the caller may access the dashboard
// @Description Combines subscription and trial state into one entitlement decision. A client seeing entitled=false should redirect away from gated surfaces.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.EntitlementResponseDTO
// @Failure 401 {string} string "unauthorized"
// @Router /subscriptions/access [get]
func (h *SubscriptionHandler) Access(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	decision := h.accessSvc.CanAccess(r.Context(), userID)
	w.Header().Set("Content-Type", "application/json")
	h.encode(w, dto.EntitlementResponseDTO{Entitled: decision.Entitled, Reason: string(decision.Reason)})
}

// Checkout godoc
// @Summary Initiate a Stripe Checkout session for plan upgrade
// @Description Creates a Stripe Checkout session and returns its URL.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.SubscriptionCheckoutDTO true "Subscription checkout request"
// @Success 200 {object} map[string]string "URL of the Stripe Checkout session"
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to create checkout session"
// @Router /subscriptions/checkout [post]
func (h *SubscriptionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.SubscriptionCheckoutDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	url, err := h.stripeSvc.CreateCheckoutSession(r.Context(), userID, req.Plan)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create checkout session")
		http.Error(w, "failed to create checkout session", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	h.encode(w, map[string]string{"url": url})
}

// Portal godoc
// @Summary Create a Stripe Customer Portal session
// @Description Generates a Stripe Customer Portal session URL for the authenticated user.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} map[string]string "URL of the Customer Portal session"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to create portal session"
// @Router /subscriptions/portal [get]
func (h *SubscriptionHandler) Portal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	url, err := h.stripeSvc.CreatePortalSession(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create portal session")
		http.Error(w, "failed to create portal session", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	h.encode(w, map[string]string{"url": url})
}

// writeServiceError maps typed service errors to responses. Raw provider and
// store errors never reach the client.
func (h *SubscriptionHandler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		http.Error(w, vErr.Error(), http.StatusBadRequest)
		return
	}
	var sErr *service.SyncError
	if errors.As(err, &sErr) {
		h.logger.Error().Err(err).Msg(msg)
		http.Error(w, "billing provider unavailable, try again", http.StatusBadGateway)
		return
	}
	h.logger.Error().Err(err).Msg(msg)
	http.Error(w, "something went wrong, try again", http.StatusInternalServerError)
}

func (h *SubscriptionHandler) encode(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func subscriptionToDTO(sub *model.Subscription) dto.SubscriptionResponseDTO {
	resp := dto.SubscriptionResponseDTO{
		UserID:               sub.UserID,
		Status:               string(sub.Status),
		StripeSubscriptionID: sub.StripeSubscriptionID,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		CreatedAt:            sub.CreatedAt,
		UpdatedAt:            sub.UpdatedAt,
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		resp.CurrentPeriodEnd = &end
	}
	return resp
}
