package httpapi

import (
	"net/http"

	"github.com/speakify/backend/internal/store"
)

// conversionListLimit bounds the dashboard history query.
const conversionListLimit = 100

func (r *Router) handleGetMe(w http.ResponseWriter, req *http.Request) {
	authUser := getAuthUser(req.Context())

	user, err := r.store.GetUserByID(req.Context(), authUser.ID)
	if err != nil {
		http.Error(w, `{"error": "user not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleGetUsage returns the numbers the usage dashboard renders.
func (r *Router) handleGetUsage(w http.ResponseWriter, req *http.Request) {
	authUser := getAuthUser(req.Context())

	uq, err := r.store.GetUserQuota(req.Context(), authUser.ID)
	if err != nil {
		http.Error(w, `{"error": "failed to get user data"}`, http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"subscription_tier":   uq.SubscriptionTier,
		"tokens_used":         uq.TokensUsed,
		"monthly_token_limit": uq.MonthlyTokenLimit,
		"unlimited":           uq.MonthlyTokenLimit == nil,
	}
	if uq.MonthlyTokenLimit != nil {
		remaining := *uq.MonthlyTokenLimit - uq.TokensUsed
		if remaining < 0 {
			remaining = 0
		}
		resp["tokens_remaining"] = remaining
		if *uq.MonthlyTokenLimit > 0 {
			resp["percent_used"] = float64(uq.TokensUsed) / float64(*uq.MonthlyTokenLimit) * 100
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) handleListConversions(w http.ResponseWriter, req *http.Request) {
	authUser := getAuthUser(req.Context())

	conversions, err := r.store.ListConversionsByUser(req.Context(), authUser.ID, conversionListLimit)
	if err != nil {
		r.logger.Printf("conversions: list failed for user %s: %v", authUser.ID, err)
		http.Error(w, `{"error": "database error"}`, http.StatusInternalServerError)
		return
	}
	if conversions == nil {
		conversions = []store.Conversion{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversions": conversions})
}
