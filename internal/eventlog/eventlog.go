// Package eventlog records conversion lifecycle events for later debugging.
package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType represents the type of conversion lifecycle event
type EventType string

const (
	EventConversionSubmitted EventType = "conversion_submitted"
	EventConversionCompleted EventType = "conversion_completed"
	EventConversionFailed    EventType = "conversion_failed"
	EventQuotaDenied         EventType = "quota_denied"
)

// Logger writes conversion events to the database. Events are advisory;
// a failed insert never affects the request that produced it.
type Logger struct {
	db *pgxpool.Pool
}

// New creates a new event logger
func New(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

// Log writes an event synchronously. Either id may be empty and is stored
// as NULL: quota denials happen before a task exists, anonymous submissions
// have no user. An event with neither id would be unattributable, so it is
// skipped.
func (l *Logger) Log(ctx context.Context, taskID, userID string, eventType EventType, data map[string]any) error {
	if l.db == nil || (taskID == "" && userID == "") {
		return nil
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	var task *string
	if taskID != "" {
		task = &taskID
	}
	var user *string
	if userID != "" {
		user = &userID
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO conversion_events (task_id, user_id, event_type, event_data)
		VALUES ($1, $2, $3, $4)
	`, task, user, string(eventType), dataJSON)

	return err
}

// LogAsync logs an event without blocking the caller
func (l *Logger) LogAsync(taskID, userID string, eventType EventType, data map[string]any) {
	if l.db == nil || (taskID == "" && userID == "") {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, taskID, userID, eventType, data)
	}()
}
