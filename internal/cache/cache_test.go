package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesjournal/internal/domain"
)

func sampleResult() *domain.AggregationResult {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return &domain.AggregationResult{
		Range:       domain.DateRange{Start: day, End: day},
		Granularity: "hour",
		TotalSales:  decimal.RequireFromString("10.5"),
		TotalUnits:  3,
		TotalOrders: 1,
		Series:      []domain.SeriesPoint{{Label: "09:00", Value: decimal.RequireFromString("10.5")}},
		CategoryBreakdown: []domain.CategoryTotal{
			{Name: "Beverages", Value: decimal.RequireFromString("10.5")},
		},
		TopProducts: []domain.ProductUnits{{Name: "Coffee", Qty: 3}},
	}
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c ReportCache = NoopReportCache{}
	require.NoError(t, c.Set(context.Background(), "k", sampleResult(), time.Minute))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheExpiresEntries(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	c := NewMemoryReportCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "k", sampleResult(), 30*time.Second))

	got, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.TotalUnits)

	now = now.Add(31 * time.Second)
	_, ok, err = c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("SALESJOURNAL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set SALESJOURNAL_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx := context.Background()
	c := NewRedisReportCache(addr, "", 0)
	require.NoError(t, c.Ping(ctx))
	t.Cleanup(func() { _ = c.Close() })

	key := fmt.Sprintf("salesjournal:test:%d", time.Now().UnixNano())
	require.NoError(t, c.Set(ctx, key, sampleResult(), 5*time.Second))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.TotalSales.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, "2024-03-04..2024-03-04", got.Range.String())
	assert.Equal(t, "Coffee", got.TopProducts[0].Name)
}
