// Package poller tracks a synthesis task until it reaches a terminal state.
package poller

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/speakify/backend/internal/synthesis"
)

// DefaultInterval matches the cadence the web client has always used.
// There is no backoff; the provider's status endpoint is cheap.
const DefaultInterval = 2 * time.Second

// Snapshot is the outcome of a single status poll.
type Snapshot struct {
	Status     string
	Progress   int
	OutputFile string

	// AudioURL points at our audio relay, set only once the task completed
	// with an output file.
	AudioURL string

	// Message carries the provider's failure message verbatim when the task
	// failed, or a generic fallback if the provider gave none.
	Message string
}

// Terminal reports whether no further polls are needed.
func (s Snapshot) Terminal() bool {
	return s.Status == synthesis.StatusCompleted || s.Status == synthesis.StatusFailed
}

// Poller drives the task status state machine:
// processing -> processing (repeat) or processing -> {completed, failed}.
type Poller struct {
	client          synthesis.Client
	audioPathPrefix string
	interval        time.Duration
	logger          *log.Logger
}

// New creates a poller. audioPathPrefix is prepended to the provider's
// output_file to form the relay URL, e.g. "/api/audio/".
func New(client synthesis.Client, audioPathPrefix string, interval time.Duration, logger *log.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		client:          client,
		audioPathPrefix: audioPathPrefix,
		interval:        interval,
		logger:          logger,
	}
}

// PollOnce queries the task status a single time and maps the provider's
// answer into a Snapshot. Provider errors pass through untouched so callers
// can distinguish transport from protocol failures.
func (p *Poller) PollOnce(ctx context.Context, taskID string) (Snapshot, error) {
	st, err := p.client.Status(ctx, taskID)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Status:     st.Status,
		Progress:   st.Progress,
		OutputFile: st.OutputFile,
	}

	switch st.Status {
	case synthesis.StatusCompleted:
		if st.OutputFile != "" {
			snap.AudioURL = p.audioPathPrefix + st.OutputFile
		}
	case synthesis.StatusFailed:
		snap.Message = st.Error
		if snap.Message == "" {
			snap.Message = "conversion failed"
		}
	}
	return snap, nil
}

// Watch polls until the task reaches a terminal state or ctx is cancelled.
// Transient transport failures are swallowed and retried on the next tick;
// any other error stops the watch. onProgress, if non-nil, is invoked for
// every successful poll including the terminal one.
func (p *Poller) Watch(ctx context.Context, taskID string, onProgress func(Snapshot)) (Snapshot, error) {
	for {
		snap, err := p.PollOnce(ctx, taskID)
		switch {
		case err == nil:
			if onProgress != nil {
				onProgress(snap)
			}
			if snap.Terminal() {
				return snap, nil
			}
		case isTransient(err):
			p.logger.Printf("poller: transient error for task %s, retrying: %v", taskID, err)
		default:
			return Snapshot{}, err
		}

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

func isTransient(err error) bool {
	var te *synthesis.TransportError
	return errors.As(err, &te)
}
