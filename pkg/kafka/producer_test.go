package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestProducerPublishEncodesValues(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "gzip")
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, "results", []byte("AAPL"), map[string]int{"n": 1}))
	require.NoError(t, p.Publish(ctx, "results", nil, "plain"))
	require.NoError(t, p.PublishBatch(ctx, "logs", []Message{{Value: []byte("a")}, {Value: []byte("b")}}))

	require.Len(t, w.msgs, 4)
	assert.Equal(t, `{"n":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "AAPL", string(w.msgs[0].Key))
	assert.Equal(t, "plain", string(w.msgs[1].Value))
	assert.Equal(t, "logs", w.msgs[3].Topic)
}

func TestProducerPublishErrors(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&recordingWriter{err: boom}, "gzip")

	err := p.Publish(context.Background(), "results", nil, "x")
	assert.ErrorIs(t, err, boom)

	err = p.Publish(context.Background(), "results", nil, func() {})
	assert.ErrorContains(t, err, "marshal value")

	assert.NoError(t, p.PublishBatch(context.Background(), "results", nil))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}
