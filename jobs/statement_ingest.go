package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/brokerledger/brokerledger/internal/ingest"
	jobmetrics "github.com/brokerledger/brokerledger/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// StatementIngestJob runs the ingest pipeline for queued uploads.
type StatementIngestJob struct {
	Ingester ingest.FileIngester
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Timeout  time.Duration
	// Remove deletes an upload once it will not be retried.
	Remove func(path string) error
}

// NewStatementIngestJob wires dependencies for the ingest handler.
func NewStatementIngestJob(ingester ingest.FileIngester, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatementIngestJob {
	return &StatementIngestJob{
		Ingester: ingester,
		Logger:   logger,
		Metrics:  metrics,
		Timeout:  2 * time.Minute,
		Remove:   os.Remove,
	}
}

// Handle processes TaskStatementIngest tasks. Documents that cannot be
// parsed are not retried.
func (j *StatementIngestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Ingester == nil {
		return errors.New("statement ingest: handler not configured")
	}
	var payload StatementIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Path == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskStatementIngest)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("id", payload.ID), slog.String("path", payload.Path))
	logger.Info("starting statement ingest")

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	summary, err := j.Ingester.IngestFile(ctx, payload.Path)
	if err != nil {
		if ingest.IsDocumentError(err) {
			logger.Warn("statement rejected", slog.Any("error", err))
			j.removeUpload(logger, payload.Path)
			resultErr = fmt.Errorf("%w: %w", asynq.SkipRetry, err)
			return resultErr
		}
		logger.Error("statement ingest", slog.Any("error", err))
		resultErr = err
		return resultErr
	}

	logger.Info("completed statement ingest",
		slog.Int("parsed", summary.Parsed),
		slog.Int("inserted", summary.Inserted),
		slog.Int("skipped", summary.Skipped))
	j.removeUpload(logger, payload.Path)
	return resultErr
}

func (j *StatementIngestJob) removeUpload(logger *slog.Logger, path string) {
	if j.Remove == nil {
		return
	}
	if err := j.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("remove upload", slog.Any("error", err))
	}
}

func (j *StatementIngestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStatementIngest))
	}
	return slog.Default().With(slog.String("job", TaskStatementIngest))
}

func (j *StatementIngestJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
