package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotRunning = errors.New("queue not running")
	ErrNoJob      = errors.New("no job registered")
)

// Job defines a queue job handler.
type Job interface {
	// Name returns the unique identifier of the job.
	Name() string

	// Type returns the type of message that the job handles.
	Type() string

	// Handle processes one message. A returned error schedules a retry until
	// the retry limit is reached.
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Queue accepts messages and dispatches them to registered jobs.
type Queue interface {
	RegisterJob(job Job)
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
	Start() error
	Stop(ctx context.Context) error
}

// Config contains the configuration for the queue.
type Config struct {
	Workers    int           // number of workers
	QueueSize  int           // buffer of the in-process queue
	RetryLimit int           // number of maximum retries
	RetryDelay time.Duration // time delay between retries
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.QueueSize <= 0 {
		out.QueueSize = 64
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 10 * time.Second
	}
	return out
}

// Message is the envelope stored in the queue.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func newMessage(id, msgType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Message{ID: id, Type: msgType, Payload: raw, EnqueuedAt: time.Now().UTC()}, nil
}

// ParsePayload decodes a job payload into T.
func ParsePayload[T any](payload json.RawMessage) (*T, error) {
	var result T
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &result, nil
}
