package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// DateLayout is the calendar date format used by ledger records and query parameters.
const DateLayout = "2006-01-02"

// CustomItemDescription is stamped on every catalog entry registered through RecordCustomItem.
const CustomItemDescription = "Extra spending item"

type Product struct {
	ItemName    string          `json:"itemName"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Inventory   int             `json:"inventory"`
}

func (p Product) Available() bool {
	return p.Inventory > 0
}

// ProductListing is a catalog entry as presented to the sales form.
type ProductListing struct {
	Product
	Available bool `json:"available"`
}

type Transaction struct {
	ID         int64           `json:"id"`
	Date       string          `json:"date"`
	ItemName   string          `json:"itemName"`
	Category   string          `json:"category"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// CreatedAt recovers the creation instant encoded in the transaction id.
func (t Transaction) CreatedAt() time.Time {
	return time.UnixMilli(t.ID)
}

type SaleRequest struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
	Date     string `json:"date"`
}

type CustomItemRequest struct {
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type PreviewRequest struct {
	ItemName  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// SameItemName reports whether two item names collide in the catalog.
func SameItemName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// DateRange is an inclusive span of calendar days. Both ends are UTC midnights.
type DateRange struct {
	Start time.Time
	End   time.Time
}

type dateRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (r DateRange) Contains(day time.Time) bool {
	return !day.Before(r.Start) && !day.After(r.End)
}

// Days is the number of calendar days covered, counting both ends.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{
		Start: r.Start.Format(DateLayout),
		End:   r.End.Format(DateLayout),
	})
}

func (r *DateRange) UnmarshalJSON(data []byte) error {
	var raw dateRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := ParseDate(raw.Start)
	if err != nil {
		return err
	}
	end, err := ParseDate(raw.End)
	if err != nil {
		return err
	}
	r.Start, r.End = start, end
	return nil
}

type SeriesPoint struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

type CategoryTotal struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

type ProductUnits struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type AggregationResult struct {
	Range             DateRange       `json:"range"`
	Granularity       string          `json:"granularity"`
	TotalSales        decimal.Decimal `json:"totalSales"`
	TotalUnits        int             `json:"totalUnits"`
	TotalOrders       int             `json:"totalOrders"`
	Series            []SeriesPoint   `json:"series"`
	CategoryBreakdown []CategoryTotal `json:"categoryBreakdown"`
	TopProducts       []ProductUnits  `json:"topProducts"`
}

// ParseDate parses a YYYY-MM-DD calendar date into a UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return parsed, nil
}

// CalendarDay drops the clock and zone of t, keeping the wall-clock date.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
