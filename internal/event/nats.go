// internal/event/nats.go
// Package event provides NATS JetStream implementation for event publishing.
// It streams download task lifecycle events for audit trails and downstream consumers.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
	"github.com/red-avtovo/r-trans-bot/internal/model"
)

// Publisher defines the event publishing operations emitted by the bot.
type Publisher interface {
	// Task lifecycle events
	PublishTaskCreated(ctx context.Context, task model.DownloadTask) error
	PublishTaskRemoved(ctx context.Context, userID int64, torrentHash string) error

	// Close closes the publisher connection
	Close() error
}

// noop is a no-op implementation of Publisher for when NATS is not configured.
// It allows the bot to run without event streaming.
type noop struct{}

// Close implements Publisher
func (n *noop) Close() error { return nil }

// PublishTaskCreated implements Publisher
func (n *noop) PublishTaskCreated(ctx context.Context, task model.DownloadTask) error {
	return nil
}

// PublishTaskRemoved implements Publisher
func (n *noop) PublishTaskRemoved(ctx context.Context, userID int64, torrentHash string) error {
	return nil
}

// natsPub is the NATS JetStream implementation of Publisher.
type natsPub struct {
	nc *nats.Conn
	js nats.JetStreamContext

	// Deduplication fields
	taskDedup map[string]time.Time // task ID to last publish time
	mutex     sync.RWMutex
}

// NewPublisher connects to NATS at the given URL. An empty URL or a failed
// connection yields a no-op publisher so the bot keeps working without event
// streaming.
func NewPublisher(url string) Publisher {
	if url == "" {
		return &noop{}
	}

	nc, err := nats.Connect(url)
	if err != nil {
		slog.Warn("NATS connect failed, using noop publisher", "error", err)
		return &noop{}
	}

	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	if err := initStreams(js); err != nil {
		slog.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return &noop{}
	}

	return &natsPub{
		nc:        nc,
		js:        js,
		taskDedup: make(map[string]time.Time),
	}
}

// initStreams initializes the TB_TASKS stream used for task lifecycle events.
func initStreams(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      "TB_TASKS",
		Subjects:  []string{"bot.tasks.*"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Discard:   nats.DiscardOld,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create TB_TASKS stream: %w", err)
	}

	return nil
}

// EventEnvelope represents the standard event envelope structure.
// All events published to NATS are wrapped in this envelope.
type EventEnvelope struct {
	Type          string      `json:"type"`
	Version       string      `json:"version"`
	OccurredAt    time.Time   `json:"occurredAt"`
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload"`
}

// taskRemovedPayload carries the identifying fields of a removed torrent.
type taskRemovedPayload struct {
	UserID      int64  `json:"userId"`
	TorrentHash string `json:"torrentHash"`
}

// Close closes the NATS connection.
func (p *natsPub) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// shouldDedup reports whether an event with this key was published within
// the last 2 minutes.
func (p *natsPub) shouldDedup(key string) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if lastTime, exists := p.taskDedup[key]; exists {
		return time.Since(lastTime) < 2*time.Minute
	}

	return false
}

// updateDedup records a successful publish for the key and prunes stale entries.
func (p *natsPub) updateDedup(key string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	cutoff := time.Now().Add(-5 * time.Minute)
	for k, t := range p.taskDedup {
		if t.Before(cutoff) {
			delete(p.taskDedup, k)
		}
	}

	p.taskDedup[key] = time.Now()
}

// publish wraps the payload in an envelope and publishes it to the subject.
func (p *natsPub) publish(subject, eventType string, payload interface{}) error {
	envelope := EventEnvelope{
		Type:          eventType,
		Version:       "1.0.0",
		OccurredAt:    time.Now().UTC(),
		CorrelationID: ulid.Make().String(),
		Payload:       payload,
	}

	b, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(subject, b)
	return err
}

// PublishTaskCreated publishes a task created event to the TB_TASKS stream.
func (p *natsPub) PublishTaskCreated(ctx context.Context, task model.DownloadTask) error {
	key := task.ID.String()
	if p.shouldDedup(key) {
		return nil
	}

	if err := p.publish("bot.tasks.created", "bot.tasks.created", task); err != nil {
		return err
	}

	p.updateDedup(key)
	return nil
}

// PublishTaskRemoved publishes a task removed event to the TB_TASKS stream.
func (p *natsPub) PublishTaskRemoved(ctx context.Context, userID int64, torrentHash string) error {
	key := fmt.Sprintf("%d:%s", userID, torrentHash)
	if p.shouldDedup(key) {
		return nil
	}

	if err := p.publish("bot.tasks.removed", "bot.tasks.removed", taskRemovedPayload{
		UserID:      userID,
		TorrentHash: torrentHash,
	}); err != nil {
		return err
	}

	p.updateDedup(key)
	return nil
}
