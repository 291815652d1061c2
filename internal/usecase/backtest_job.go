package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/logger"
	"FinCast/pkg/queue"

	"github.com/google/uuid"
)

// BacktestJobType is the queue message type of asynchronous backtests.
const BacktestJobType = "backtest"

var _ queue.Job = (*BacktestJobHandler)(nil)

// BacktestRunner is the part of ForecastService a backtest job needs.
type BacktestRunner interface {
	Backtest(ctx context.Context, symbol string, configs []models.BacktestConfig) (*models.ComparisonResult, error)
}

// BacktestJobHandler runs queued backtests and records their status.
type BacktestJobHandler struct {
	runner BacktestRunner
	status domrepo.JobStatusStore
	q      queue.Queue
	log    *logger.Logger
	now    func() time.Time
}

func NewBacktestJobHandler(runner BacktestRunner, status domrepo.JobStatusStore, q queue.Queue, l *logger.Logger) *BacktestJobHandler {
	if l == nil {
		l = logger.NewNop()
	}
	return &BacktestJobHandler{runner: runner, status: status, q: q, log: l, now: func() time.Time { return time.Now().UTC() }}
}

func (h *BacktestJobHandler) Name() string { return "backtest-comparison" }

func (h *BacktestJobHandler) Type() string { return BacktestJobType }

// Submit stores a queued status and enqueues the job.
func (h *BacktestJobHandler) Submit(ctx context.Context, req models.BacktestRequest) (*models.BacktestJobStatus, error) {
	now := h.now()
	st := &models.BacktestJobStatus{
		ID:        uuid.NewString(),
		Symbol:    NormalizeSymbol(req.Symbol),
		State:     models.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.status.SaveStatus(ctx, st); err != nil {
		return nil, err
	}
	if _, err := h.q.Enqueue(ctx, BacktestJobType, models.BacktestJob{ID: st.ID, Request: req}); err != nil {
		return nil, fmt.Errorf("enqueue backtest: %w", err)
	}
	h.log.Info("backtest job queued", logger.String("job_id", st.ID), logger.String("symbol", st.Symbol))
	return st, nil
}

// Status returns the latest status of job id.
func (h *BacktestJobHandler) Status(ctx context.Context, id string) (*models.BacktestJobStatus, error) {
	return h.status.GetStatus(ctx, id)
}

// Handle runs one backtest. A failed backtest is a terminal job state and is
// not retried; only status store errors are returned to the queue.
func (h *BacktestJobHandler) Handle(ctx context.Context, payload json.RawMessage) error {
	job, err := queue.ParsePayload[models.BacktestJob](payload)
	if err != nil {
		return err
	}
	st, err := h.status.GetStatus(ctx, job.ID)
	if err != nil {
		now := h.now()
		st = &models.BacktestJobStatus{ID: job.ID, Symbol: NormalizeSymbol(job.Request.Symbol), CreatedAt: now}
	}
	if st.State == models.JobDone || st.State == models.JobFailed {
		return nil
	}

	st.State = models.JobRunning
	st.UpdatedAt = h.now()
	if err := h.status.SaveStatus(ctx, st); err != nil {
		return err
	}

	cmp, runErr := h.runner.Backtest(ctx, job.Request.Symbol, job.Request.Configs())
	st.Result = cmp
	st.UpdatedAt = h.now()
	if runErr != nil {
		st.State = models.JobFailed
		st.Error = runErr.Error()
		h.log.Warn("backtest job failed", logger.String("job_id", job.ID), logger.Error(runErr))
	} else {
		st.State = models.JobDone
		h.log.Info("backtest job done", logger.String("job_id", job.ID), logger.Int("runs", len(cmp.Runs)))
	}
	return h.status.SaveStatus(ctx, st)
}
