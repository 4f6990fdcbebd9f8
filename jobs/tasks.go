package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStatementIngest parses a stored statement and inserts its records.
	TaskStatementIngest = "statement:ingest"
	// TaskReportsWarmup rebuilds and caches the loan reports.
	TaskReportsWarmup = "reports:warmup"
)

// StatementIngestPayload points at an uploaded statement on disk.
type StatementIngestPayload struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// ReportsWarmupPayload carries no options yet; it exists so the task body
// stays a JSON object.
type ReportsWarmupPayload struct{}

// NewStatementIngestTask constructs an Asynq task for an uploaded document.
func NewStatementIngestTask(payload StatementIngestPayload) (*asynq.Task, error) {
	if payload.Path == "" {
		return nil, fmt.Errorf("jobs: %s: empty path", TaskStatementIngest)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementIngest, data), nil
}

// NewReportsWarmupTask constructs the warmup task used by the scheduler.
func NewReportsWarmupTask() (*asynq.Task, error) {
	data, err := json.Marshal(ReportsWarmupPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}
