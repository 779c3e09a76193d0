package cache

import (
	"context"
	"time"

	"salesjournal/internal/domain"
)

// ReportCache stores computed summaries. Keys already encode the ledger
// revision, so entries never need explicit invalidation.
type ReportCache interface {
	Get(ctx context.Context, key string) (*domain.AggregationResult, bool, error)
	Set(ctx context.Context, key string, value *domain.AggregationResult, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) (*domain.AggregationResult, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *domain.AggregationResult, _ time.Duration) error {
	return nil
}
