package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"FinCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoPayload struct {
	Symbol string `json:"symbol"`
}

type recordingJob struct {
	mu       sync.Mutex
	seen     []string
	failures int
	done     chan struct{}
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "echo" }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	p, err := ParsePayload[echoPayload](payload)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failures > 0 {
		j.failures--
		return errors.New("transient")
	}
	j.seen = append(j.seen, p.Symbol)
	close(j.done)
	return nil
}

func TestMemoryQueueRetriesUntilSuccess(t *testing.T) {
	q := NewMemoryQueue(logger.NewNop(), &Config{Workers: 1, RetryLimit: 3, RetryDelay: time.Millisecond})
	job := &recordingJob{failures: 2, done: make(chan struct{})}
	q.RegisterJob(job)

	_, err := q.Enqueue(context.Background(), "echo", echoPayload{Symbol: "AAPL"})
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	id, err := q.Enqueue(context.Background(), "echo", echoPayload{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case <-job.done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not complete")
	}
	job.mu.Lock()
	assert.Equal(t, []string{"AAPL"}, job.seen)
	job.mu.Unlock()
	assert.Empty(t, q.DeadLetters())
}

type failingJob struct{ calls chan struct{} }

func (failingJob) Name() string { return "failing" }
func (failingJob) Type() string { return "fail" }
func (j failingJob) Handle(context.Context, json.RawMessage) error {
	j.calls <- struct{}{}
	return errors.New("permanent")
}

func TestMemoryQueueDeadLetters(t *testing.T) {
	q := NewMemoryQueue(logger.NewNop(), &Config{RetryLimit: 1, RetryDelay: time.Millisecond})
	job := failingJob{calls: make(chan struct{}, 4)}
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	_, err := q.Enqueue(context.Background(), "unknown", nil)
	assert.ErrorIs(t, err, ErrNoJob)

	_, err = q.Enqueue(context.Background(), "fail", echoPayload{Symbol: "X"})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		select {
		case <-job.calls:
		case <-time.After(5 * time.Second):
			t.Fatal("missing attempt")
		}
	}
	assert.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, q.DeadLetters()[0].Attempts)
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload[echoPayload](json.RawMessage(`{"symbol":"MSFT"}`))
	require.NoError(t, err)
	assert.Equal(t, "MSFT", p.Symbol)

	_, err = ParsePayload[echoPayload](nil)
	assert.Error(t, err)
	_, err = ParsePayload[echoPayload](json.RawMessage(`[`))
	assert.Error(t, err)
}
