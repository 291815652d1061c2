package models

import "time"

// JobState is the lifecycle state of an asynchronous backtest.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// BacktestJob is the queued payload of an asynchronous backtest.
type BacktestJob struct {
	ID      string          `json:"id"`
	Request BacktestRequest `json:"request"`
}

// BacktestJobStatus is the polled view of an asynchronous backtest.
type BacktestJobStatus struct {
	ID        string            `json:"id"`
	Symbol    string            `json:"symbol"`
	State     JobState          `json:"state"`
	Result    *ComparisonResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
