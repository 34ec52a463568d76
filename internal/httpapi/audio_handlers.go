package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/speakify/backend/internal/synthesis"
)

// maxUpstreamErrorBytes limits how much of an upstream error body we buffer.
const maxUpstreamErrorBytes = 4096

// handleAudio proxies a finished audio artifact from the provider's store.
// The upstream status is propagated so "not found yet" stays distinguishable
// from a server failure.
func (r *Router) handleAudio(w http.ResponseWriter, req *http.Request) {
	filename := req.PathValue("filename")
	if filename == "" {
		http.Error(w, `{"error": "filename is required"}`, http.StatusBadRequest)
		return
	}

	resp, err := r.synth.Audio(req.Context(), filename)
	if err != nil {
		r.logger.Printf("audio: fetch failed for %s: %v", filename, err)
		var transportErr *synthesis.TransportError
		if errors.As(err, &transportErr) {
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": "network error when fetching audio: " + transportErr.Err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamErrorBytes))
		var upstream struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		msg := ""
		if json.Unmarshal(body, &upstream) == nil {
			msg = upstream.Message
			if msg == "" {
				msg = upstream.Error
			}
		}
		if msg == "" {
			msg = fmt.Sprintf("audio fetch failed with status %d", resp.StatusCode)
		}
		writeJSON(w, resp.StatusCode, map[string]string{"error": msg})
		return
	}

	// Filenames may be reused and artifacts are transient, so nothing in
	// between is allowed to cache this response.
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		r.logger.Printf("audio: streaming %s aborted: %v", filename, err)
	}
}
