package httpapi

import (
	"net/http"

	"github.com/speakify/backend/internal/eventlog"
	"github.com/speakify/backend/internal/synthesis"
)

// statusResponse is the provider's status enriched with the derived fields
// the web client renders from.
type statusResponse struct {
	Status             string  `json:"status"`
	Progress           int     `json:"progress"`
	OutputFile         string  `json:"output_file,omitempty"`
	Error              string  `json:"error,omitempty"`
	ProgressPercentage int     `json:"progress_percentage"`
	IsComplete         bool    `json:"is_complete"`
	IsProcessing       bool    `json:"is_processing"`
	HasError           bool    `json:"has_error"`
	AudioURL           *string `json:"audio_url"`
}

// handleStatus performs one poll of the provider's status endpoint and,
// for authenticated callers, propagates the result into their conversion row.
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) {
	taskID := req.PathValue("taskId")
	if taskID == "" {
		http.Error(w, `{"error": "task id is required"}`, http.StatusBadRequest)
		return
	}

	snap, err := r.poller.PollOnce(req.Context(), taskID)
	if err != nil {
		r.logger.Printf("status: poll failed for task %s: %v", taskID, err)
		writeProviderError(w, err)
		return
	}

	authUser := getAuthUser(req.Context())
	if authUser != nil {
		updateErr := r.store.UpdateConversionStatus(req.Context(), taskID, authUser.ID, snap.Status, snap.Progress, snap.AudioURL)
		if updateErr != nil {
			// The snapshot is still valid for the caller, so log only.
			r.logger.Printf("status: failed to update conversion %s: %v", taskID, updateErr)
			captureError(req, updateErr, "failed to update conversion status")
		}
	}

	userID := ""
	if authUser != nil {
		userID = authUser.ID
	}
	switch snap.Status {
	case synthesis.StatusCompleted:
		r.eventLog.LogAsync(taskID, userID, eventlog.EventConversionCompleted, map[string]any{
			"output_file": snap.OutputFile,
		})
	case synthesis.StatusFailed:
		r.eventLog.LogAsync(taskID, userID, eventlog.EventConversionFailed, map[string]any{
			"error": snap.Message,
		})
	}

	resp := statusResponse{
		Status:             snap.Status,
		Progress:           snap.Progress,
		OutputFile:         snap.OutputFile,
		Error:              snap.Message,
		ProgressPercentage: snap.Progress,
		IsComplete:         snap.Status == synthesis.StatusCompleted,
		IsProcessing:       snap.Status == synthesis.StatusProcessing,
		HasError:           snap.Message != "",
	}
	if snap.AudioURL != "" {
		resp.AudioURL = &snap.AudioURL
	}
	writeJSON(w, http.StatusOK, resp)
}
