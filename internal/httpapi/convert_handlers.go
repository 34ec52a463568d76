package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/speakify/backend/internal/eventlog"
	"github.com/speakify/backend/internal/quota"
	"github.com/speakify/backend/internal/store"
	"github.com/speakify/backend/internal/synthesis"
)

// convertRequest accepts both field spellings the web client has used over
// time (text/input_text, voice/voice_id).
type convertRequest struct {
	Text      string `json:"text"`
	InputText string `json:"input_text"`
	Voice     string `json:"voice"`
	VoiceID   string `json:"voice_id"`
}

func (cr convertRequest) text() string {
	if cr.Text != "" {
		return cr.Text
	}
	return cr.InputText
}

func (cr convertRequest) voice() string {
	if cr.Voice != "" {
		return cr.Voice
	}
	return cr.VoiceID
}

// handleConvert validates a submission, applies the quota policy, forwards
// the job to the synthesis provider and records the resulting task.
func (r *Router) handleConvert(w http.ResponseWriter, req *http.Request) {
	var body convertRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	text := body.text()
	voice := body.voice()
	if text == "" || voice == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "text and voice are required",
		})
		return
	}

	requested := quota.Tokens(text)

	authUser := getAuthUser(req.Context())
	userID := ""
	if authUser != nil {
		userID = authUser.ID
	}

	decision := r.quota.CheckAndReserve(req.Context(), userID, requested)
	if !decision.Allowed {
		if decision.Reason == quota.ReasonLookupFailed {
			http.Error(w, `{"error": "failed to get user data"}`, http.StatusInternalServerError)
			return
		}

		// No task exists yet, so the denial is attributed to the user alone.
		r.eventLog.LogAsync("", userID, eventlog.EventQuotaDenied, map[string]any{
			"limit":     decision.Limit,
			"used":      decision.Used,
			"requested": decision.Requested,
		})

		denied := map[string]any{
			"error":     "Token limit exceeded",
			"limit":     decision.Limit,
			"requested": decision.Requested,
		}
		// Anonymous callers have no running total; the limit is per request.
		if authUser != nil {
			denied["used"] = decision.Used
		}
		writeJSON(w, http.StatusForbidden, denied)
		return
	}

	outputName := "speakify_" + uuid.NewString()
	result, err := r.synth.Convert(req.Context(), text, voice, outputName)
	if err != nil {
		r.logger.Printf("convert: provider call failed: %v", err)
		writeProviderError(w, err)
		return
	}

	// The job is already running upstream and cannot be cancelled from here,
	// so a failed insert must not fail the user-visible response.
	if authUser != nil {
		insertErr := r.store.InsertConversion(req.Context(), store.Conversion{
			UserID:     authUser.ID,
			Text:       text,
			VoiceID:    voice,
			TokenCount: requested,
			AudioURL:   "",
			TaskID:     result.TaskID,
			Progress:   0,
			Status:     synthesis.StatusProcessing,
		})
		if insertErr != nil {
			r.logger.Printf("convert: failed to record conversion %s: %v", result.TaskID, insertErr)
			captureError(req, insertErr, "failed to record conversion")
		}
	}

	r.eventLog.LogAsync(result.TaskID, userID, eventlog.EventConversionSubmitted, map[string]any{
		"voice":       voice,
		"token_count": requested,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"task_id":                result.TaskID,
		"message":                result.Message,
		"status_endpoint":        result.StatusEndpoint,
		"status_check_url":       "/api/status/" + result.TaskID,
		"initial_progress":       0,
		"estimated_time_seconds": (len(text) + 99) / 100,
	})
}

// writeProviderError maps the synthesis error taxonomy onto HTTP responses.
// Provider-reported statuses pass through so callers can tell a 404 from a
// genuine server failure; malformed bodies keep their raw content for
// diagnostics.
func writeProviderError(w http.ResponseWriter, err error) {
	var apiErr *synthesis.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.StatusCode, map[string]string{"error": apiErr.Message})
		return
	}

	var protoErr *synthesis.ProtocolError
	if errors.As(err, &protoErr) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to parse provider response: " + protoErr.Body,
		})
		return
	}

	var transportErr *synthesis.TransportError
	if errors.As(err, &transportErr) {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "network error when calling provider: " + transportErr.Err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
