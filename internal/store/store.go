package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"salesjournal/internal/domain"
	"salesjournal/internal/logger"
	"salesjournal/internal/xid"
)

// Store owns the product catalog and the transaction ledger. Every mutation
// runs under one lock and is mirrored to the KV after it succeeds in memory.
type Store struct {
	mu           sync.RWMutex
	products     []domain.Product
	transactions []domain.Transaction
	revision     uint64

	kv     KV
	codec  *Codec
	mirror *Mirror
	ids    *xid.Sequence
	log    *logger.Logger
}

type Options struct {
	Codec          *Codec
	IDs            *xid.Sequence
	PersistTimeout time.Duration
	Logger         *logger.Logger
}

func New(kv KV, opts Options) *Store {
	if opts.Codec == nil {
		opts.Codec = plainCodec
	}
	if opts.IDs == nil {
		opts.IDs = xid.NewSequence(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	log := opts.Logger.WithComponent("store")
	return &Store{
		products:     []domain.Product{},
		transactions: []domain.Transaction{},
		kv:           kv,
		codec:        opts.Codec,
		mirror:       NewMirror(kv, opts.PersistTimeout, log),
		ids:          opts.IDs,
		log:          log,
	}
}

// Seed loads the persisted catalog, or seed when none was persisted, and the
// persisted ledger. Nothing is written back.
func (s *Store) Seed(ctx context.Context, seed []domain.Product) error {
	products := cloneProducts(seed)
	raw, persistedCatalog, err := s.kv.Load(ctx, ProductsKey)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if persistedCatalog {
		products, err = s.codec.DecodeProducts(raw)
		if err != nil {
			return fmt.Errorf("decode catalog: %w", err)
		}
	}

	transactions := []domain.Transaction{}
	raw, ok, err := s.kv.Load(ctx, TransactionsKey)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if ok {
		transactions, err = s.codec.DecodeTransactions(raw)
		if err != nil {
			return fmt.Errorf("decode ledger: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = products
	s.transactions = transactions
	s.revision++
	for _, tx := range transactions {
		s.ids.Observe(tx.ID)
	}
	s.log.Infow("state loaded", "products", len(products), "transactions", len(transactions), "persisted_catalog", persistedCatalog, "persisted_ledger", ok)
	return nil
}

func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products)
}

func (s *Store) FindByName(name string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(name)
	if idx < 0 {
		return domain.Product{}, fmt.Errorf("%w: %q", domain.ErrProductNotFound, name)
	}
	return s.products[idx], nil
}

// RegisterCustomItem appends product to the catalog unless its name clashes,
// ignoring case, with an existing entry.
func (s *Store) RegisterCustomItem(product domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if domain.SameItemName(existing.ItemName, product.ItemName) {
			return domain.Product{}, fmt.Errorf("%w: %q", domain.ErrDuplicateItem, existing.ItemName)
		}
	}
	s.products = append(s.products, product)
	s.persistCatalogLocked()
	return product, nil
}

func (s *Store) DecrementStock(name string, qty int) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.decrementLocked(name, qty)
	if err != nil {
		return domain.Product{}, err
	}
	s.persistCatalogLocked()
	return product, nil
}

// Sell decrements stock for name and appends the matching transaction as one
// step. A rejected decrement leaves both collections untouched.
func (s *Store) Sell(name string, qty int, date string) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, err := s.decrementLocked(name, qty)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx := domain.Transaction{
		ID:         s.ids.Next(),
		Date:       date,
		ItemName:   product.ItemName,
		Category:   product.Category,
		UnitPrice:  product.UnitPrice,
		Quantity:   qty,
		TotalPrice: product.UnitPrice.Mul(decimal.NewFromInt(int64(qty))),
	}
	s.transactions = append(s.transactions, tx)
	s.revision++

	s.persistCatalogLocked()
	s.persistLedgerLocked()
	return tx, nil
}

func (s *Store) Transactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTransactions(s.transactions)
}

// Ledger returns a copy of the ledger together with the revision it was taken at.
func (s *Store) Ledger() ([]domain.Transaction, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTransactions(s.transactions), s.revision
}

// Revision increases on every ledger change.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// DeleteTransaction removes the transaction with id. Stock is not restored.
func (s *Store) DeleteTransaction(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, tx := range s.transactions {
		if tx.ID != id {
			continue
		}
		s.transactions = append(s.transactions[:i:i], s.transactions[i+1:]...)
		s.revision++
		s.persistLedgerLocked()
		return true
	}
	return false
}

func (s *Store) ClearTransactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := len(s.transactions)
	s.transactions = []domain.Transaction{}
	s.revision++
	s.persistLedgerLocked()
	return cleared
}

// Resync re-enqueues both collections if a background write failed since the
// last call. It reports whether anything was re-enqueued.
func (s *Store) Resync() bool {
	if !s.mirror.TakeFailed() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.persistCatalogLocked()
	s.persistLedgerLocked()
	return true
}

// Flush waits for pending background writes.
func (s *Store) Flush() {
	s.mirror.Flush()
}

func (s *Store) Close() error {
	return s.mirror.Close()
}

func (s *Store) indexOf(name string) int {
	for i, p := range s.products {
		if p.ItemName == name {
			return i
		}
	}
	return -1
}

func (s *Store) decrementLocked(name string, qty int) (domain.Product, error) {
	if qty <= 0 {
		return domain.Product{}, domain.ErrInvalidQuantity
	}
	idx := s.indexOf(strings.TrimSpace(name))
	if idx < 0 {
		return domain.Product{}, fmt.Errorf("%w: %q", domain.ErrProductNotFound, name)
	}
	product := s.products[idx]
	if qty > product.Inventory {
		return domain.Product{}, fmt.Errorf("%w: available %d", domain.ErrInsufficientStock, product.Inventory)
	}
	product.Inventory -= qty
	s.products[idx] = product
	return product, nil
}

func (s *Store) persistCatalogLocked() {
	payload, err := s.codec.Encode(s.products)
	if err != nil {
		s.log.Errorw("encode catalog", "error", err)
		return
	}
	s.mirror.Enqueue(ProductsKey, payload)
}

func (s *Store) persistLedgerLocked() {
	payload, err := s.codec.Encode(s.transactions)
	if err != nil {
		s.log.Errorw("encode ledger", "error", err)
		return
	}
	s.mirror.Enqueue(TransactionsKey, payload)
}

func cloneProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, len(in))
	copy(out, in)
	return out
}

func cloneTransactions(in []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(in))
	copy(out, in)
	return out
}
