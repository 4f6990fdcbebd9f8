package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/brokerledger/brokerledger/internal/ingest"
	jobmetrics "github.com/brokerledger/brokerledger/internal/jobs"
	"github.com/brokerledger/brokerledger/internal/ledger"
	"github.com/brokerledger/brokerledger/internal/platform/cache"
	"github.com/brokerledger/brokerledger/internal/platform/db"
	"github.com/brokerledger/brokerledger/internal/reporting"
	"github.com/brokerledger/brokerledger/internal/statement"
	"github.com/brokerledger/brokerledger/internal/statement/pdf"
)

// Services holds the long-lived components shared by the server, the worker
// and the operator commands.
type Services struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Ledger  *ledger.Repository
	Reports *reporting.Service
	Ingest  *ingest.Service
}

// NewServices connects to PostgreSQL and Redis and wires the domain
// services. Redis is optional: when it cannot be reached reports are built
// on every request.
func NewServices(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *jobmetrics.Metrics) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return nil, err
	}

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	}

	repo := ledger.NewRepository(pool, ledger.TransactionSchema(), logger)
	reports := reporting.NewService(repo, reporting.NewCache(redisClient, cfg.ReportCacheTTL), logger)
	tools := cfg.ExtractionTools()
	ingester, err := ingest.NewService(ingest.Config{
		Parser: statement.NewParser(statement.WithLogger(logger)),
		Open: func(path string) (statement.Source, error) {
			doc, err := pdf.Open(path, tools)
			if err != nil {
				return nil, err
			}
			return doc, nil
		},
		Store:       repo,
		Invalidator: reports,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		pool.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	return &Services{Pool: pool, Redis: redisClient, Ledger: repo, Reports: reports, Ingest: ingester}, nil
}

// Close releases the connection pool and the Redis client.
func (s *Services) Close() {
	if s == nil {
		return
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
