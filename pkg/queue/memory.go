package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinCast/pkg/logger"

	"github.com/google/uuid"
)

// MemoryQueue runs jobs in process on a buffered channel. Messages do not
// survive a restart.
type MemoryQueue struct {
	logger *logger.Logger
	config Config

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	msgs    chan Message
	dead    []Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMemoryQueue creates an in-process queue.
func NewMemoryQueue(lgr *logger.Logger, cfg *Config) *MemoryQueue {
	c := cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &MemoryQueue{
		logger: lgr,
		config: c,
		jobs:   make(map[string]Job),
		msgs:   make(chan Message, c.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (q *MemoryQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	q.jobs[job.Type()] = job
	q.logger.Info("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	q.running = true
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("memory queue started", logger.Int("workers", q.config.Workers))
	return nil
}

func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { q.wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		q.logger.Info("memory queue stopped")
		return nil
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	q.mu.RLock()
	running := q.running
	_, known := q.jobs[msgType]
	q.mu.RUnlock()
	if !running {
		return "", ErrNotRunning
	}
	if !known {
		return "", fmt.Errorf("%w for type: %s", ErrNoJob, msgType)
	}

	msg, err := newMessage(uuid.NewString(), msgType, payload)
	if err != nil {
		return "", err
	}
	select {
	case q.msgs <- msg:
		return msg.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// DeadLetters returns messages that exhausted their retries.
func (q *MemoryQueue) DeadLetters() []Message {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]Message(nil), q.dead...)
}

func (q *MemoryQueue) worker(id int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.msgs:
			q.process(msg)
		}
	}
}

func (q *MemoryQueue) process(msg Message) {
	q.mu.RLock()
	job, ok := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !ok {
		q.logger.Error("no job found", logger.String("type", msg.Type), logger.String("id", msg.ID))
		return
	}

	err := job.Handle(q.ctx, msg.Payload)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	q.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= q.config.RetryLimit {
		q.mu.Lock()
		q.dead = append(q.dead, msg)
		q.mu.Unlock()
		return
	}
	msg.Attempts++
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case <-q.ctx.Done():
		case <-time.After(q.config.RetryDelay):
			select {
			case q.msgs <- msg:
			case <-q.ctx.Done():
			}
		}
	}()
}

var _ Queue = (*MemoryQueue)(nil)
