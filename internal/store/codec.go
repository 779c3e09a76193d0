package store

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
	"github.com/shopspring/decimal"

	"salesjournal/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var plainCodec = NewCodec(0)

// Codec serializes collections for the KV. Payloads larger than the
// threshold are zstd-compressed; Decode* accept both forms.
type Codec struct {
	threshold int

	once    sync.Once
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	initErr error
}

// NewCodec returns a codec compressing payloads above compressAbove bytes.
// Zero or negative disables compression.
func NewCodec(compressAbove int) *Codec {
	return &Codec{threshold: compressAbove}
}

func (c *Codec) init() error {
	c.once.Do(func() {
		c.enc, c.initErr = zstd.NewWriter(nil)
		if c.initErr != nil {
			return
		}
		c.dec, c.initErr = zstd.NewReader(nil)
	})
	return c.initErr
}

func (c *Codec) Encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if c.threshold <= 0 || len(payload) <= c.threshold {
		return payload, nil
	}
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("init zstd: %w", err)
	}
	return c.enc.EncodeAll(payload, make([]byte, 0, len(payload)/2)), nil
}

func (c *Codec) DecodeProducts(raw []byte) ([]domain.Product, error) {
	records, err := c.records(raw)
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(records))
	for _, rec := range records {
		name := rec.text("itemName")
		if strings.TrimSpace(name) == "" {
			continue
		}
		products = append(products, domain.Product{
			ItemName:    name,
			Category:    rec.text("category"),
			Description: rec.text("description"),
			UnitPrice:   rec.money("unitPrice"),
			Inventory:   rec.count("inventory"),
		})
	}
	return products, nil
}

func (c *Codec) DecodeTransactions(raw []byte) ([]domain.Transaction, error) {
	records, err := c.records(raw)
	if err != nil {
		return nil, err
	}
	transactions := make([]domain.Transaction, 0, len(records))
	for _, rec := range records {
		transactions = append(transactions, domain.Transaction{
			ID:         rec.id("id"),
			Date:       rec.text("date"),
			ItemName:   rec.text("itemName"),
			Category:   rec.text("category"),
			UnitPrice:  rec.money("unitPrice"),
			Quantity:   rec.count("quantity"),
			TotalPrice: rec.money("totalPrice"),
		})
	}
	return transactions, nil
}

// DecodeProducts decodes a persisted catalog, coercing malformed numbers to zero.
func DecodeProducts(raw []byte) ([]domain.Product, error) {
	return plainCodec.DecodeProducts(raw)
}

// DecodeTransactions decodes a persisted ledger, coercing malformed numbers to zero.
func DecodeTransactions(raw []byte) ([]domain.Transaction, error) {
	return plainCodec.DecodeTransactions(raw)
}

func (c *Codec) decompress(raw []byte) ([]byte, error) {
	if !bytes.HasPrefix(raw, zstdMagic) {
		return raw, nil
	}
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("init zstd: %w", err)
	}
	out, err := c.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	return out, nil
}

type record map[string]jsoniter.RawMessage

func (c *Codec) records(raw []byte) ([]record, error) {
	payload, err := c.decompress(raw)
	if err != nil {
		return nil, err
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, nil
	}

	var items []jsoniter.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	out := make([]record, 0, len(items))
	for _, item := range items {
		var rec record
		if err := json.Unmarshal(item, &rec); err != nil || rec == nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r record) text(key string) string {
	raw, ok := r[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}

// money reads a non-negative decimal. Missing, NaN and non-numeric values are zero.
func (r record) money(key string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(r.text(key)))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

var (
	maxCount = decimal.NewFromInt(math.MaxInt32)
	minID    = decimal.NewFromInt(math.MinInt64)
	maxID    = decimal.NewFromInt(math.MaxInt64)
)

// count reads a non-negative whole number. Values beyond MaxInt32 are zero.
func (r record) count(key string) int {
	d := r.money(key)
	if d.GreaterThan(maxCount) {
		return 0
	}
	return int(d.IntPart())
}

// id reads an integer id. Values outside the int64 range are zero.
func (r record) id(key string) int64 {
	d, err := decimal.NewFromString(strings.TrimSpace(r.text(key)))
	if err != nil || d.LessThan(minID) || d.GreaterThan(maxID) {
		return 0
	}
	return d.IntPart()
}
