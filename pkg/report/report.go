// Package report publishes run events to NATS so a remote consumer (a
// dashboard, another service) can follow a judgement run. The in-process
// event channel remains the authoritative interface; this bridge is a tee.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/wehubfusion/Minos/pkg/engine"
	"github.com/wehubfusion/Minos/pkg/row"
	"go.uber.org/zap"
)

// Envelope is the wire form of a run event. Exactly one of the payload
// field groups is populated, according to Type.
type Envelope struct {
	Type      string    `json:"type"` // "row" | "worker_log" | "progress" | "done"
	RunID     string    `json:"runId"`
	Timestamp time.Time `json:"timestamp"`

	Row *row.Row `json:"row,omitempty"`

	WorkerID int    `json:"workerId,omitempty"`
	Message  string `json:"message,omitempty"`

	Current int `json:"current,omitempty"`
	Total   int `json:"total,omitempty"`

	FailedLines []int `json:"failedLines,omitempty"`
	Cancelled   bool  `json:"cancelled,omitempty"`
}

// NewEnvelope wraps an engine event for publishing.
func NewEnvelope(runID string, ev engine.Event) (Envelope, error) {
	env := Envelope{RunID: runID, Timestamp: time.Now().UTC()}

	switch e := ev.(type) {
	case engine.RowUpdated:
		env.Type = "row"
		r := e.Row
		env.Row = &r
	case engine.WorkerLog:
		env.Type = "worker_log"
		env.WorkerID = e.WorkerID
		env.Message = e.Message
	case engine.Progress:
		env.Type = "progress"
		env.Current = e.Current
		env.Total = e.Total
	case engine.Done:
		env.Type = "done"
		env.FailedLines = e.FailedLines
		env.Cancelled = e.Cancelled
	default:
		return Envelope{}, fmt.Errorf("unknown event type %T", ev)
	}

	return env, nil
}

// Config holds configuration for the event bridge.
type Config struct {
	// URL is the NATS server URL, e.g. "nats://localhost:4222".
	URL string

	// Subject is the subject run events are published to.
	// Default: "minos.events".
	Subject string

	// MaxRetries is the maximum number of publish retry attempts.
	// Default: 3.
	MaxRetries int

	// RetryDelay is the delay between publish retries. Default: 1s.
	RetryDelay time.Duration

	// Logger is the zap logger instance. Required.
	Logger *zap.Logger
}

// Bridge publishes run events to a NATS subject with bounded retries.
type Bridge struct {
	conn       *nats.Conn
	subject    string
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewBridge connects to NATS and returns an event bridge.
func NewBridge(config Config) (*Bridge, error) {
	if config.URL == "" {
		return nil, errors.New("NATS URL cannot be empty")
	}
	if config.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.Subject == "" {
		config.Subject = "minos.events"
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}

	conn, err := nats.Connect(config.URL,
		nats.Name("minos-event-bridge"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Bridge{
		conn:       conn,
		subject:    config.Subject,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
		logger:     config.Logger,
	}, nil
}

// Publish sends one event envelope, retrying transient publish failures.
func (b *Bridge) Publish(ctx context.Context, runID string, ev engine.Event) error {
	env, err := NewEnvelope(runID, ev)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode event envelope: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = b.conn.Publish(b.subject, data); lastErr == nil {
			return nil
		}
		b.logger.Warn("event publish failed",
			zap.String("subject", b.subject),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}
	return fmt.Errorf("failed to publish event after %d attempts: %w", b.maxRetries+1, lastErr)
}

// Tee mirrors an event stream while publishing every event. The returned
// channel preserves order and closes when the source closes. Publish
// failures are logged, never fatal: the in-process stream is authoritative.
func (b *Bridge) Tee(ctx context.Context, runID string, events <-chan engine.Event) <-chan engine.Event {
	out := make(chan engine.Event, cap(events))
	go func() {
		defer close(out)
		for ev := range events {
			if err := b.Publish(ctx, runID, ev); err != nil {
				b.logger.Warn("dropping event from bridge", zap.Error(err))
			}
			out <- ev
		}
	}()
	return out
}

// Close flushes and closes the NATS connection.
func (b *Bridge) Close() {
	if err := b.conn.Flush(); err != nil {
		b.logger.Warn("failed to flush NATS connection", zap.Error(err))
	}
	b.conn.Close()
}
