package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"salesjournal/internal/domain"
	"salesjournal/internal/logger"
	"salesjournal/internal/period"
	"salesjournal/internal/report"
	"salesjournal/internal/store"
)

var tracer = otel.Tracer("salesjournal/service")

type Service struct {
	store    *store.Store
	reports  *report.Engine
	location *time.Location
	now      func() time.Time
	log      *logger.Logger
}

type Options struct {
	Location *time.Location
	Now      func() time.Time
	Logger   *logger.Logger
}

func New(st *store.Store, reports *report.Engine, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if reports == nil {
		reports = report.NewEngine(nil, 0, opts.Location)
	}

	return &Service{
		store:    st,
		reports:  reports,
		location: opts.Location,
		now:      opts.Now,
		log:      opts.Logger.WithComponent("service"),
	}
}

// Today is the current calendar date in the configured timezone.
func (s *Service) Today() time.Time {
	return domain.CalendarDay(s.now().In(s.location))
}

// NewSelection returns a period selection anchored at today.
func (s *Service) NewSelection() *period.Selection {
	return period.NewSelection(s.Today())
}

// Now is the current instant in the configured timezone, for quick-selects.
func (s *Service) Now() time.Time {
	return s.now().In(s.location)
}

func (s *Service) ListProducts(_ context.Context) []domain.ProductListing {
	products := s.store.Products()
	listings := make([]domain.ProductListing, 0, len(products))
	for _, p := range products {
		listings = append(listings, domain.ProductListing{Product: p, Available: p.Available()})
	}
	return listings
}

func (s *Service) FindProduct(_ context.Context, name string) (domain.Product, error) {
	return s.store.FindByName(name)
}

// RecordSale sells quantity units of an existing catalog item. An empty date
// means today.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleRequest) (domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "service.RecordSale",
		trace.WithAttributes(
			attribute.String("sale.item_name", req.ItemName),
			attribute.Int("sale.quantity", req.Quantity),
		))
	defer span.End()

	tx, err := s.recordSale(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sale rejected")
		s.log.WithContext(ctx).Infow("sale rejected", "item_name", req.ItemName, "quantity", req.Quantity, "error", err)
		return domain.Transaction{}, err
	}

	span.SetAttributes(attribute.Int64("sale.id", tx.ID))
	s.log.WithContext(ctx).Infow("sale recorded",
		"id", tx.ID,
		"item_name", tx.ItemName,
		"quantity", tx.Quantity,
		"total_price", tx.TotalPrice.String(),
		"date", tx.Date,
	)
	return tx, nil
}

func (s *Service) recordSale(req domain.SaleRequest) (domain.Transaction, error) {
	if req.Quantity <= 0 {
		return domain.Transaction{}, domain.ErrInvalidQuantity
	}

	date := s.Today()
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := domain.ParseDate(req.Date)
		if err != nil {
			return domain.Transaction{}, err
		}
		date = parsed
	}

	name := strings.TrimSpace(req.ItemName)
	if name == "" {
		return domain.Transaction{}, domain.ErrProductNotFound
	}
	return s.store.Sell(name, req.Quantity, date.Format(domain.DateLayout))
}

// RecordCustomItem adds stock for a new ad-hoc item. It never creates a
// transaction.
func (s *Service) RecordCustomItem(ctx context.Context, req domain.CustomItemRequest) (domain.Product, error) {
	ctx, span := tracer.Start(ctx, "service.RecordCustomItem",
		trace.WithAttributes(attribute.String("item.name", req.Name)))
	defer span.End()

	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	if name == "" || category == "" || !req.UnitPrice.IsPositive() {
		span.SetStatus(codes.Error, "invalid item")
		return domain.Product{}, domain.ErrInvalidItem
	}
	if req.Quantity <= 0 {
		span.SetStatus(codes.Error, "invalid quantity")
		return domain.Product{}, domain.ErrInvalidQuantity
	}

	created, err := s.store.RegisterCustomItem(domain.Product{
		ItemName:    name,
		Category:    category,
		Description: domain.CustomItemDescription,
		UnitPrice:   req.UnitPrice,
		Inventory:   req.Quantity,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "register failed")
		return domain.Product{}, err
	}

	s.log.WithContext(ctx).Infow("custom item registered",
		"item_name", created.ItemName,
		"category", created.Category,
		"inventory", created.Inventory,
	)
	return created, nil
}

func (s *Service) ListTransactions(_ context.Context) []domain.Transaction {
	return s.store.Transactions()
}

// DeleteTransaction removes a ledger entry if present. Inventory is not restored.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) {
	removed := s.store.DeleteTransaction(id)
	s.log.WithContext(ctx).Infow("transaction delete", "id", id, "removed", removed)
}

// ClearAllTransactions empties the ledger and returns how many entries were removed.
// Callers are responsible for obtaining confirmation first.
func (s *Service) ClearAllTransactions(ctx context.Context) int {
	cleared := s.store.ClearTransactions()
	s.log.WithContext(ctx).Warnw("ledger cleared", "transactions", cleared)
	return cleared
}

// PreviewTotal is the running total shown while a sale is being entered. It is
// zero for unknown items and non-positive quantities.
func (s *Service) PreviewTotal(_ context.Context, req domain.PreviewRequest) decimal.Decimal {
	if req.Quantity <= 0 {
		return decimal.Zero
	}
	qty := decimal.NewFromInt(int64(req.Quantity))
	if req.UnitPrice.IsPositive() {
		return req.UnitPrice.Mul(qty)
	}
	product, err := s.store.FindByName(strings.TrimSpace(req.ItemName))
	if err != nil {
		return decimal.Zero
	}
	return product.UnitPrice.Mul(qty)
}

// Summary aggregates the current ledger over r.
func (s *Service) Summary(ctx context.Context, r domain.DateRange) domain.AggregationResult {
	ctx, span := tracer.Start(ctx, "service.Summary",
		trace.WithAttributes(attribute.String("report.range", r.String())))
	defer span.End()

	ledger, revision := s.store.Ledger()
	result := s.reports.Summarize(ctx, revision, ledger, r)
	span.SetAttributes(attribute.Int("report.orders", result.TotalOrders))
	return result
}
