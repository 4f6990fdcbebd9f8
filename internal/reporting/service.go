package reporting

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	reportsKey   = "reporting:reports"
	buildTimeout = 2 * time.Minute
)

// Source supplies the grouped dataset reports are built from.
type Source interface {
	DailyAmounts(ctx context.Context) ([]DailyAmounts, error)
}

// Service builds reports from a Source, caching the result until the ledger
// changes.
type Service struct {
	source Source
	cache  *Cache
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService wires a Source with a Cache helper. cache may be nil.
func NewService(source Source, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Reports returns every report for the current ledger version. Concurrent
// callers share one build.
func (s *Service) Reports(ctx context.Context) (Reports, error) {
	key, err := s.cache.BuildKey(ctx, reportsKey)
	if err != nil {
		return Reports{}, err
	}
	ch := s.group.DoChan(key, func() (any, error) {
		// The build outlives the caller that started it; others may be waiting.
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		var out Reports
		err := s.cache.FetchJSON(bctx, key, &out, s.load)
		return out, err
	})
	select {
	case <-ctx.Done():
		return Reports{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Reports{}, res.Err
		}
		return res.Val.(Reports), nil
	}
}

func (s *Service) load(ctx context.Context) (any, error) {
	started := s.now()
	groups, err := s.source.DailyAmounts(ctx)
	if err != nil {
		return nil, err
	}
	reports := Build(groups, s.now())
	s.logger.Debug("reports built",
		slog.Int("groups", len(groups)),
		slog.Int("brokers", reports.Brokers.Len()),
		slog.Duration("took", s.now().Sub(started)))
	return reports, nil
}

// BrokerReport returns the per-broker daily, weekly and monthly buckets.
func (s *Service) BrokerReport(ctx context.Context) (BrokerReport, error) {
	r, err := s.Reports(ctx)
	return r.Brokers, err
}

// TotalsReport returns the summed loan amount per day.
func (s *Service) TotalsReport(ctx context.Context) (TotalsReport, error) {
	r, err := s.Reports(ctx)
	return r.Totals, err
}

// TierReport returns tier counts per day.
func (s *Service) TierReport(ctx context.Context) (TierReport, error) {
	r, err := s.Reports(ctx)
	return r.Tiers, err
}

// Invalidate drops cached reports after the ledger changes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Warm builds the reports for the current version if they are not cached.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.Reports(ctx)
	return err
}

// ListenForInvalidation follows cache version bumps published by other
// processes until ctx is cancelled.
func (s *Service) ListenForInvalidation(ctx context.Context) error {
	return s.cache.ListenForInvalidation(ctx, BumpChannel)
}
