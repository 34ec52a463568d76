package synthesis

import (
	"context"
	"net/http"
)

// Task status values reported by the provider.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Voice describes one provider voice. Field names mirror the provider's JSON.
type Voice struct {
	Artist             string `json:"Artist"`
	Language           string `json:"Language"`
	Country            string `json:"Country"`
	Gender             string `json:"Gender"`
	ContentCategories  string `json:"Content_Categories"`
	VoicePersonalities string `json:"Voice_Personalities"`
	Voice              string `json:"Voice"`
}

// ConvertResult is the provider's answer to a conversion request.
type ConvertResult struct {
	TaskID         string `json:"task_id"`
	Message        string `json:"message"`
	StatusEndpoint string `json:"status_endpoint"`
}

// StatusResult is one snapshot of a running task as reported by the provider.
type StatusResult struct {
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	OutputFile string `json:"output_file"`
	Error      string `json:"error"`
}

// Client defines the interface for the external synthesis provider.
type Client interface {
	// Convert submits a text-to-speech job and returns its task identifier.
	Convert(ctx context.Context, text, voice, outputName string) (ConvertResult, error)

	// Status fetches the current state of a task.
	Status(ctx context.Context, taskID string) (StatusResult, error)

	// Voices fetches the provider's voice catalog.
	Voices(ctx context.Context) ([]Voice, error)

	// Audio fetches a finished audio artifact. The caller owns the response
	// body and must close it.
	Audio(ctx context.Context, filename string) (*http.Response, error)
}
