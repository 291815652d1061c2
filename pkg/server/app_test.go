package server

import (
	"context"
	"errors"
	"testing"

	xhttp "FinCast/pkg/http"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestShutdownOrder(t *testing.T) {
	var order []string
	q := queue.NewMemoryQueue(applogger.NewNop(), &queue.Config{Workers: 1})
	require.NoError(t, q.Start())

	boom := errors.New("broker gone")
	app := New(nil, xhttp.NewServer(nil, nil, xhttp.WithMetricsPath("")), q,
		WithCloser("publisher", closerFunc(func() error { order = append(order, "publisher"); return boom })),
		WithCloser("cache", closerFunc(func() error { order = append(order, "cache"); return nil })),
		WithCloser("nil", nil),
	)

	err := app.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"publisher", "cache"}, order)

	_, err = q.Enqueue(context.Background(), "any", nil)
	assert.ErrorIs(t, err, queue.ErrNotRunning)
}
