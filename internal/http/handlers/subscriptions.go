package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"enhancer/internal/audit"
	"enhancer/internal/domain"
	"enhancer/internal/usage"
)

var validPlans = map[string]struct{}{
	"basic": {},
	"pro":   {},
}

type subscriptionStatusResponse struct {
	Plan           string `json:"plan,omitempty"`
	Status         string `json:"status"`
	TrialRemaining *int   `json:"trial_remaining,omitempty"`
}

// SubscriptionsStatus reports the caller's plan, or the trial balance when
// no subscription exists.
func (a *App) SubscriptionsStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	sub, err := a.Store.GetSubscription(r.Context(), userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load subscription")
		return
	}
	if sub == nil {
		counters, err := a.Store.GetUsage(r.Context(), userID)
		if err != nil {
			a.error(w, http.StatusInternalServerError, "internal", "failed to load usage")
			return
		}
		remaining := usage.Remaining(counters[domain.MetricEditsCompleted])
		a.json(w, http.StatusOK, subscriptionStatusResponse{
			Status:         "trial",
			TrialRemaining: &remaining,
		})
		return
	}
	a.json(w, http.StatusOK, subscriptionStatusResponse{Plan: sub.Plan, Status: sub.Status})
}

// SubscriptionsCheckout records a pending subscription for a valid plan.
// The actual payment flow belongs to the billing collaborator; activation
// arrives through SubscriptionsActivate.
func (a *App) SubscriptionsCheckout(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	plan := chi.URLParam(r, "plan")
	if _, ok := validPlans[plan]; !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid plan")
		return
	}

	sub, err := a.Store.SetSubscription(r.Context(), userID, plan, domain.SubscriptionStatusPending)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to start checkout")
		return
	}
	a.Audit.Event(audit.ActionSubscriptionCheckout, userID, map[string]any{"plan": plan})
	a.json(w, http.StatusOK, sub)
}

type activateRequest struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

// SubscriptionsActivate is the billing collaborator's entry point: it marks
// a subscription active after payment settles and tells the user's live
// channels.
func (a *App) SubscriptionsActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.UserID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "user_id required")
		return
	}
	if _, ok := validPlans[req.Plan]; !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid plan")
		return
	}

	sub, err := a.Store.SetSubscription(r.Context(), req.UserID, req.Plan, domain.SubscriptionStatusActive)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to activate subscription")
		return
	}

	a.Registry.Send(req.UserID, "subscription_updated", map[string]any{
		"plan":   sub.Plan,
		"status": sub.Status,
	})
	a.Audit.Event(audit.ActionSubscriptionActivated, req.UserID, map[string]any{"plan": req.Plan})
	a.json(w, http.StatusOK, sub)
}

// UsageSummary reports the caller's raw usage counters and trial balance.
func (a *App) UsageSummary(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	counters, err := a.Store.GetUsage(r.Context(), userID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load usage")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"usage":           counters,
		"trial_remaining": usage.Remaining(counters[domain.MetricEditsCompleted]),
	})
}
