package synthesis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConvert_FormTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/convert" {
			t.Errorf("path = %q, want /convert", req.URL.Path)
		}
		if ct := req.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %q, want form encoding", ct)
		}
		if err := req.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if got := req.PostForm.Get("input_text"); got != "hello world" {
			t.Errorf("input_text = %q, want %q", got, "hello world")
		}
		if got := req.PostForm.Get("voice"); got != "en-US-EmmaNeural" {
			t.Errorf("voice = %q, want %q", got, "en-US-EmmaNeural")
		}
		if got := req.PostForm.Get("output_name"); got != "speakify_test" {
			t.Errorf("output_name = %q, want %q", got, "speakify_test")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"task_id": "task-1", "message": "queued", "status_endpoint": "/status/task-1"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL, Transport: TransportForm})
	result, err := c.Convert(context.Background(), "hello world", "en-US-EmmaNeural", "speakify_test")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if result.TaskID != "task-1" {
		t.Errorf("task_id = %q, want %q", result.TaskID, "task-1")
	}
	if result.Message != "queued" {
		t.Errorf("message = %q, want %q", result.Message, "queued")
	}
}

func TestConvert_JSONTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if ct := req.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(req.Body)
		want := `{"input_text":"hi","voice":"v1","output_name":"out"}`
		if string(body) != want {
			t.Errorf("body = %s, want %s", body, want)
		}
		_, _ = w.Write([]byte(`{"task_id": "task-2"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL, Transport: TransportJSON})
	result, err := c.Convert(context.Background(), "hi", "v1", "out")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if result.TaskID != "task-2" {
		t.Errorf("task_id = %q, want %q", result.TaskID, "task-2")
	}
}

func TestConvert_MalformedResponseIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway timeout</html>`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	_, err := c.Convert(context.Background(), "hi", "v1", "out")

	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("error = %v, want ProtocolError", err)
	}
	if protoErr.Body != "<html>gateway timeout</html>" {
		t.Errorf("raw body not preserved: %q", protoErr.Body)
	}
}

func TestConvert_MissingTaskIDIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message": "ok"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	_, err := c.Convert(context.Background(), "hi", "v1", "out")

	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("error = %v, want ProtocolError", err)
	}
}

func TestConvert_ProviderErrorKeepsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "rate limited"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	_, err := c.Convert(context.Background(), "hi", "v1", "out")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", apiErr.StatusCode)
	}
	if apiErr.Message != "rate limited" {
		t.Errorf("message = %q, want %q", apiErr.Message, "rate limited")
	}
}

func TestConvert_NetworkFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // refuse connections

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	_, err := c.Convert(context.Background(), "hi", "v1", "out")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want TransportError", err)
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/status/task-1" {
			t.Errorf("path = %q, want /status/task-1", req.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status": "processing", "progress": 42}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	st, err := c.Status(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Status != StatusProcessing {
		t.Errorf("status = %q, want %q", st.Status, StatusProcessing)
	}
	if st.Progress != 42 {
		t.Errorf("progress = %d, want 42", st.Progress)
	}
}

func TestStatus_MissingStatusIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"progress": 10}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	_, err := c.Status(context.Background(), "task-1")

	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("error = %v, want ProtocolError", err)
	}
}

func TestVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/voices" {
			t.Errorf("path = %q, want /voices", req.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"Artist": "Emma", "Language": "English", "Voice": "en-US-EmmaNeural"},
			{"Artist": "Hamed", "Language": "Arabic", "Voice": "ar-SA-HamedNeural"}
		]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	voices, err := c.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("got %d voices, want 2", len(voices))
	}
	if voices[1].Language != "Arabic" {
		t.Errorf("voices[1].Language = %q, want Arabic", voices[1].Language)
	}
}

func TestAudio_PassesResponseThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/audio/x.mp3" {
			t.Errorf("path = %q, want /audio/x.mp3", req.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "File not found"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Config{BaseURL: srv.URL})
	resp, err := c.Audio(context.Background(), "x.mp3")
	if err != nil {
		t.Fatalf("Audio failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 passed through untouched", resp.StatusCode)
	}
}
