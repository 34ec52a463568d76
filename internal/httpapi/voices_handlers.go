package httpapi

import (
	"net/http"

	"github.com/speakify/backend/internal/quota"
)

// handleListVoices returns the cached voice catalog filtered for the
// caller's tier. Anonymous callers and callers whose subscription cannot
// be read see the free-tier list.
func (r *Router) handleListVoices(w http.ResponseWriter, req *http.Request) {
	premium := false
	if authUser := getAuthUser(req.Context()); authUser != nil {
		uq, err := r.store.GetUserQuota(req.Context(), authUser.ID)
		if err != nil {
			r.logger.Printf("voices: failed to read subscription for user %s: %v", authUser.ID, err)
		} else {
			premium = uq.SubscriptionTier == quota.TierPremium
		}
	}

	writeJSON(w, http.StatusOK, r.catalog.Voices(req.Context(), premium))
}
