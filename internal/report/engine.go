package report

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"salesjournal/internal/cache"
	"salesjournal/internal/domain"
	"salesjournal/internal/xid"
)

// Engine computes period summaries, reusing cached results for an unchanged ledger.
type Engine struct {
	cache    cache.ReportCache
	cacheTTL time.Duration
	location *time.Location
	instance string
}

func NewEngine(cacheStore cache.ReportCache, cacheTTL time.Duration, location *time.Location) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if location == nil {
		location = time.UTC
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		location: location,
		instance: xid.New("engine"),
	}
}

// Summarize aggregates ledger over r. revision identifies the ledger state the
// slice was taken at.
func (e *Engine) Summarize(ctx context.Context, revision uint64, ledger []domain.Transaction, r domain.DateRange) domain.AggregationResult {
	granularity := GranularityFor(r)
	cacheKey := e.buildCacheKey(revision, r, granularity)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		return *cached
	}

	result := Aggregate(ledger, r, Options{Granularity: granularity, Location: e.location})
	_ = e.cache.Set(ctx, cacheKey, &result, e.cacheTTL)
	return result
}

func (e *Engine) buildCacheKey(revision uint64, r domain.DateRange, granularity Granularity) string {
	parts := []string{
		e.instance,
		fmt.Sprintf("rev:%d", revision),
		r.String(),
		string(granularity),
		e.location.String(),
	}
	hash := blake2b.Sum256([]byte(strings.Join(parts, "|")))
	return "salesjournal:report:" + hex.EncodeToString(hash[:])
}
