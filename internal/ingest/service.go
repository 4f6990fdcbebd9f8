// Package ingest turns statement documents into stored ledger records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/brokerledger/brokerledger/internal/jobs"
	"github.com/brokerledger/brokerledger/internal/ledger"
	"github.com/brokerledger/brokerledger/internal/statement"
)

// Opener prepares the document at path for extraction.
type Opener func(path string) (statement.Source, error)

// Store persists parsed records.
type Store interface {
	InsertRecords(ctx context.Context, records []statement.Record) (ledger.InsertResult, error)
}

// Invalidator is notified after new records land in the store.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Summary reports the outcome of one ingested document.
type Summary struct {
	Path     string `json:"path,omitempty"`
	Parsed   int    `json:"parsed"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

// Config wires the service dependencies. Invalidator, Metrics and Logger
// are optional.
type Config struct {
	Parser      *statement.Parser
	Open        Opener
	Store       Store
	Invalidator Invalidator
	Metrics     *jobmetrics.Metrics
	Logger      *slog.Logger
}

// Service parses documents and stores their records.
type Service struct {
	parser      *statement.Parser
	open        Opener
	store       Store
	invalidator Invalidator
	metrics     *jobmetrics.Metrics
	logger      *slog.Logger
	validate    *validator.Validate
}

// NewService constructs the ingestion service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("ingest: store required")
	}
	if cfg.Parser == nil {
		cfg.Parser = statement.NewParser()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		parser:      cfg.Parser,
		open:        cfg.Open,
		store:       cfg.Store,
		invalidator: cfg.Invalidator,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		validate:    validator.New(),
	}, nil
}

// IngestFile opens the document at path and ingests it.
func (s *Service) IngestFile(ctx context.Context, path string) (Summary, error) {
	if s.open == nil {
		return Summary{}, errors.New("ingest: document opener not configured")
	}
	src, err := s.open(path)
	if err != nil {
		return Summary{Path: path}, err
	}
	sum, err := s.Ingest(ctx, src)
	sum.Path = path
	return sum, err
}

// Ingest parses src and inserts its records. A document that fails to parse
// stores nothing.
func (s *Service) Ingest(ctx context.Context, src statement.Source) (Summary, error) {
	records, err := s.parser.Parse(ctx, src)
	if err != nil {
		return Summary{}, err
	}
	for i := range records {
		if err := s.validate.Struct(records[i]); err != nil {
			return Summary{}, &statement.RowError{Row: i + 1, Err: fmt.Errorf("%w: %v", statement.ErrValueFormat, err)}
		}
	}
	s.metrics.AddRecords(jobmetrics.OutcomeParsed, len(records))

	res, err := s.store.InsertRecords(ctx, records)
	s.metrics.AddRecords(jobmetrics.OutcomeInserted, res.Inserted)
	s.metrics.AddRecords(jobmetrics.OutcomeSkipped, res.Skipped)
	sum := Summary{Parsed: len(records), Inserted: res.Inserted, Skipped: res.Skipped}
	if err != nil {
		return sum, fmt.Errorf("ingest: store records: %w", err)
	}

	if res.Inserted > 0 && s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("invalidate reports", slog.Any("error", err))
		}
	}
	s.logger.Info("statement ingested",
		slog.Int("parsed", sum.Parsed),
		slog.Int("inserted", sum.Inserted),
		slog.Int("skipped", sum.Skipped))
	return sum, nil
}

// IngestFiles ingests several documents with at most limit in flight. The
// first failure cancels the remaining work.
func (s *Service) IngestFiles(ctx context.Context, paths []string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 1
	}
	out := make([]Summary, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			sum, err := s.IngestFile(gctx, path)
			out[i] = sum
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}
	return out, g.Wait()
}

// IsDocumentError reports whether err is caused by the document itself
// rather than by infrastructure. Retrying such errors cannot succeed.
func IsDocumentError(err error) bool {
	return errors.Is(err, statement.ErrDocumentFormat) ||
		errors.Is(err, statement.ErrTableExtraction) ||
		errors.Is(err, statement.ErrFieldReconstruction) ||
		errors.Is(err, statement.ErrValueFormat)
}
