package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"FinCast/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is a Redis list queue with a sorted-set retry schedule and a
// dead letter list.
type RedisQueue struct {
	logger    *logger.Logger
	config    Config
	client    *redis.Client
	keyPrefix string

	mu        sync.RWMutex
	jobs      map[string]Job
	isRunning bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

// NewRedisQueue creates a new Redis queue.
func NewRedisQueue(lgr *logger.Logger, cfg *Config, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:    lgr,
		config:    cfg.withDefaults(),
		client:    client,
		keyPrefix: "fincast:queue",
		jobs:      make(map[string]Job),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// RegisterJob registers a single job.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry processor.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return fmt.Errorf("queue already running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	r.isRunning = true

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryProcessor()

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop gracefully stops the queue.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.logger.Info("stopping redis queue...")
	r.cancel()
	r.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		r.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		r.logger.Info("redis queue stopped gracefully")
		return nil
	}
}

// Enqueue pushes a message and returns its id.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	r.mu.RLock()
	running := r.isRunning
	_, known := r.jobs[msgType]
	r.mu.RUnlock()
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
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return "", fmt.Errorf("lpush: %w", err)
	}
	return msg.ID, nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.logger.Debug("queue worker started", logger.Int("worker_id", id))

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("queue worker stopping", logger.Int("worker_id", id))
			return
		default:
			r.processNext()
		}
	}
}

func (r *RedisQueue) processNext() {
	result, err := r.client.BRPop(r.ctx, time.Second, r.queueKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return
		}
		r.logger.Error("brpop error", logger.Error(err))
		select {
		case <-r.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		r.logger.Error("unmarshal message", logger.Error(err))
		return
	}
	r.process(msg)
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, exists := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !exists {
		r.logger.Error("no job found",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	start := time.Now()
	err := job.Handle(r.ctx, msg.Payload)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		r.logger.Warn("message cancelled",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("elapsed_ms", time.Since(start)))
		return
	}

	r.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= r.config.RetryLimit {
		r.logger.Error("max retries reached", logger.String("id", msg.ID), logger.String("job", job.Name()))
		r.push(r.deadLetterKey(), msg)
		return
	}
	msg.Attempts++
	r.scheduleRetry(msg, time.Now().Add(r.config.RetryDelay))
}

func (r *RedisQueue) push(key string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal message", logger.Error(err))
		return
	}
	if err := r.client.LPush(context.Background(), key, data).Err(); err != nil {
		r.logger.Error("lpush", logger.String("key", key), logger.Error(err))
	}
}

func (r *RedisQueue) scheduleRetry(msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal retry", logger.Error(err))
		return
	}
	err = r.client.ZAdd(context.Background(), r.retryKey(), redis.Z{
		Score:  float64(at.Unix()),
		Member: data,
	}).Err()
	if err != nil {
		r.logger.Error("zadd retry", logger.Error(err))
	}
}

func (r *RedisQueue) retryProcessor() {
	defer r.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.promoteRetries()
		}
	}
}

// promoteRetries moves due retries back onto the main list.
func (r *RedisQueue) promoteRetries() {
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("fetch retry messages", logger.Error(err))
		}
		return
	}

	for _, member := range due {
		pipe := r.client.TxPipeline()
		pipe.ZRem(r.ctx, r.retryKey(), member)
		pipe.LPush(r.ctx, r.queueKey(), member)
		if _, err := pipe.Exec(r.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.logger.Error("move retry to queue", logger.Error(err))
		}
	}
}

func (r *RedisQueue) queueKey() string      { return r.keyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string      { return r.keyPrefix + ":retry" }
func (r *RedisQueue) deadLetterKey() string { return r.keyPrefix + ":dlq" }

var _ Queue = (*RedisQueue)(nil)
