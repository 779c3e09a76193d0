package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salesjournal/internal/domain"
)

type Granularity string

const (
	ByDay  Granularity = "day"
	ByHour Granularity = "hour"
)

const (
	UnknownCategory = "unknown"
	DefaultTopN     = 5
)

type Options struct {
	Granularity Granularity
	// Location is used to read the hour of day from transaction ids.
	Location *time.Location
	TopN     int
}

func (o Options) withDefaults() Options {
	if o.Granularity == "" {
		o.Granularity = ByDay
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	return o
}

// GranularityFor buckets single-day ranges by hour and longer ranges by day.
func GranularityFor(r domain.DateRange) Granularity {
	if r.Days() <= 1 {
		return ByHour
	}
	return ByDay
}

// Aggregate summarizes the transactions whose date falls inside r. It does not
// modify its input and returns the same result for the same arguments.
func Aggregate(transactions []domain.Transaction, r domain.DateRange, opts Options) domain.AggregationResult {
	opts = opts.withDefaults()

	result := domain.AggregationResult{
		Range:             r,
		Granularity:       string(opts.Granularity),
		TotalSales:        decimal.Zero,
		Series:            []domain.SeriesPoint{},
		CategoryBreakdown: []domain.CategoryTotal{},
		TopProducts:       []domain.ProductUnits{},
	}

	buckets := make(map[string]decimal.Decimal)
	categoryIndex := make(map[string]int)
	productIndex := make(map[string]int)
	products := make([]domain.ProductUnits, 0)

	for _, tx := range transactions {
		day, ok := ledgerDay(tx.Date)
		if !ok || !r.Contains(day) {
			continue
		}

		result.TotalOrders++
		result.TotalSales = result.TotalSales.Add(tx.TotalPrice)
		result.TotalUnits += tx.Quantity

		key := bucketKey(tx, day, opts)
		buckets[key] = buckets[key].Add(tx.TotalPrice)

		category := strings.TrimSpace(tx.Category)
		if category == "" {
			category = UnknownCategory
		}
		if idx, seen := categoryIndex[category]; seen {
			result.CategoryBreakdown[idx].Value = result.CategoryBreakdown[idx].Value.Add(tx.TotalPrice)
		} else {
			categoryIndex[category] = len(result.CategoryBreakdown)
			result.CategoryBreakdown = append(result.CategoryBreakdown, domain.CategoryTotal{Name: category, Value: tx.TotalPrice})
		}

		if idx, seen := productIndex[tx.ItemName]; seen {
			products[idx].Qty += tx.Quantity
		} else {
			productIndex[tx.ItemName] = len(products)
			products = append(products, domain.ProductUnits{Name: tx.ItemName, Qty: tx.Quantity})
		}
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		result.Series = append(result.Series, domain.SeriesPoint{Label: key, Value: buckets[key]})
	}

	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Qty > products[j].Qty
	})
	if len(products) > opts.TopN {
		products = products[:opts.TopN]
	}
	result.TopProducts = append(result.TopProducts, products...)

	return result
}

// ledgerDay reads a ledger date, accepting either a plain date or a full timestamp.
func ledgerDay(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if d, err := time.Parse(domain.DateLayout, raw); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return domain.CalendarDay(ts), true
	}
	return time.Time{}, false
}

func bucketKey(tx domain.Transaction, day time.Time, opts Options) string {
	if opts.Granularity != ByHour {
		return day.Format(domain.DateLayout)
	}
	if tx.ID <= 0 {
		return "00:00"
	}
	return fmt.Sprintf("%02d:00", tx.CreatedAt().In(opts.Location).Hour())
}
