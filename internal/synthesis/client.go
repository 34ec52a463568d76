package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultBaseURL = "https://api.speakify.eu.org/api/v1"

// maxResponseBytes bounds how much of a provider response we buffer for
// JSON endpoints. Audio is streamed and not subject to this limit.
const maxResponseBytes = 1 << 20

// Transport selects how Convert encodes its request body. The provider has
// accepted both encodings at different points in time, so it is configuration
// rather than a constant.
type Transport string

const (
	TransportForm Transport = "form"
	TransportJSON Transport = "json"
)

// Config holds configuration for the provider HTTP client.
type Config struct {
	BaseURL    string
	Transport  Transport
	HTTPClient *http.Client
}

// HTTPClient implements the Client interface against the provider's REST API.
type HTTPClient struct {
	baseURL    string
	transport  Transport
	httpClient *http.Client
}

// NewHTTPClient creates a new provider client.
func NewHTTPClient(cfg Config) *HTTPClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	transport := cfg.Transport
	if transport == "" {
		transport = TransportForm
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPClient{
		baseURL:    baseURL,
		transport:  transport,
		httpClient: httpClient,
	}
}

// convertRequest is the JSON shape of a conversion submission.
type convertRequest struct {
	InputText  string `json:"input_text"`
	Voice      string `json:"voice"`
	OutputName string `json:"output_name"`
}

// Convert submits a text-to-speech job. A response that is not well-formed
// JSON is rejected as a ProtocolError with the raw body preserved.
func (c *HTTPClient) Convert(ctx context.Context, text, voice, outputName string) (ConvertResult, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch c.transport {
	case TransportJSON:
		payload, err := json.Marshal(convertRequest{
			InputText:  text,
			Voice:      voice,
			OutputName: outputName,
		})
		if err != nil {
			return ConvertResult{}, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	default:
		form := url.Values{}
		form.Set("input_text", text)
		form.Set("voice", voice)
		form.Set("output_name", outputName)
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", body)
	if err != nil {
		return ConvertResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	var result ConvertResult
	if err := c.doJSON(httpReq, &result); err != nil {
		return ConvertResult{}, err
	}
	if result.TaskID == "" {
		return ConvertResult{}, &ProtocolError{StatusCode: http.StatusOK, Body: "response missing task_id"}
	}
	return result, nil
}

// Status fetches the current state of a task.
func (c *HTTPClient) Status(ctx context.Context, taskID string) (StatusResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+url.PathEscape(taskID), nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	var result StatusResult
	if err := c.doJSON(httpReq, &result); err != nil {
		return StatusResult{}, err
	}
	if result.Status == "" {
		return StatusResult{}, &ProtocolError{StatusCode: http.StatusOK, Body: "response missing status"}
	}
	return result, nil
}

// Voices fetches the provider's voice catalog.
func (c *HTTPClient) Voices(ctx context.Context) ([]Voice, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var voices []Voice
	if err := c.doJSON(httpReq, &voices); err != nil {
		return nil, err
	}
	return voices, nil
}

// Audio fetches a finished audio artifact. The response is returned as-is so
// the caller can stream the body and propagate the upstream status code.
func (c *HTTPClient) Audio(ctx context.Context, filename string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/audio/"+url.PathEscape(filename), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

// doJSON executes the request and decodes the body into out. Non-2xx
// responses with a parseable error body become APIErrors; anything the
// provider sends that does not parse becomes a ProtocolError.
func (c *HTTPClient) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(body, &apiErr); err != nil {
			return &ProtocolError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProtocolError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}
