package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/brokerledger/brokerledger/internal/jobs"
)

// ReportsWarmupSpec runs the warmup at the top of every hour.
const ReportsWarmupSpec = "0 * * * *"

// Warmer builds and caches reports.
type Warmer interface {
	Warm(ctx context.Context) error
}

// ReportsWarmupJob pre-populates the report cache.
type ReportsWarmupJob struct {
	Reports Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(reports Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskReportsWarmup tasks. The payload is ignored.
func (j *ReportsWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()

	scopeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := j.Reports.Warm(scopeCtx); err != nil {
		resultErr = err
		logger.Error("warm reports", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed reports warmup", slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportsWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
