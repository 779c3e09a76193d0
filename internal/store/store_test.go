package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"salesjournal/internal/domain"
	"salesjournal/internal/logger"
	"salesjournal/internal/store/memory"
	"salesjournal/internal/xid"
)

const fixedMillis = 1_710_000_000_000

func testSeed() []domain.Product {
	return []domain.Product{
		{ItemName: "Coffee", Category: "Beverages", Description: "Hot brewed coffee", UnitPrice: decimal.RequireFromString("3.5"), Inventory: 10},
		{ItemName: "Croissant", Category: "Bakery", Description: "Butter croissant", UnitPrice: decimal.RequireFromString("2.95"), Inventory: 2},
	}
}

func newTestStore(t *testing.T, kv KV) *Store {
	t.Helper()
	s := New(kv, Options{IDs: xid.NewSequence(func() time.Time { return time.UnixMilli(fixedMillis) })})
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Seed(context.Background(), testSeed()))
	return s
}

func TestSellDecrementsStockAndAppendsTransaction(t *testing.T) {
	kv := memory.New()
	s := newTestStore(t, kv)

	tx, err := s.Sell("Coffee", 3, "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, int64(fixedMillis), tx.ID)
	assert.Equal(t, "Beverages", tx.Category)
	assert.Equal(t, "10.5", tx.TotalPrice.String())

	product, err := s.FindByName("Coffee")
	require.NoError(t, err)
	assert.Equal(t, 7, product.Inventory)
	require.Len(t, s.Transactions(), 1)

	s.Flush()
	raw, ok, err := kv.Load(context.Background(), ProductsKey)
	require.NoError(t, err)
	require.True(t, ok)
	persisted, err := DecodeProducts(raw)
	require.NoError(t, err)
	assert.Equal(t, 7, persisted[0].Inventory)

	raw, ok, err = kv.Load(context.Background(), TransactionsKey)
	require.NoError(t, err)
	require.True(t, ok)
	ledger, err := DecodeTransactions(raw)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.True(t, ledger[0].TotalPrice.Equal(decimal.RequireFromString("10.5")))
}

func TestSellRejectsInsufficientStockWithoutSideEffects(t *testing.T) {
	kv := memory.New()
	s := newTestStore(t, kv)
	before := s.Revision()

	_, err := s.Sell("Croissant", 3, "2024-03-04")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "available 2")

	product, err := s.FindByName("Croissant")
	require.NoError(t, err)
	assert.Equal(t, 2, product.Inventory)
	assert.Empty(t, s.Transactions())
	assert.Equal(t, before, s.Revision())

	s.Flush()
	assert.Zero(t, kv.Writes())
}

func TestSellUnknownProduct(t *testing.T) {
	s := newTestStore(t, memory.New())

	_, err := s.Sell("Ghost Item", 1, "2024-03-04")
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Empty(t, s.Transactions())
}

func TestDecrementStockExactInventory(t *testing.T) {
	s := newTestStore(t, memory.New())

	product, err := s.DecrementStock("Croissant", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Inventory)
	assert.False(t, product.Available())

	_, err = s.DecrementStock("Croissant", 1)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestRegisterCustomItemRejectsDuplicateInAnyCase(t *testing.T) {
	s := newTestStore(t, memory.New())

	for _, name := range []string{"Coffee", "coffee", "COFFEE", " cOfFeE "} {
		_, err := s.RegisterCustomItem(domain.Product{ItemName: name, Category: "Misc", UnitPrice: decimal.NewFromInt(1), Inventory: 1})
		require.ErrorIs(t, err, domain.ErrDuplicateItem, name)
	}
	assert.Len(t, s.Products(), 2)

	created, err := s.RegisterCustomItem(domain.Product{ItemName: "Paper Cups", Category: "Supplies", UnitPrice: decimal.NewFromInt(5), Inventory: 4})
	require.NoError(t, err)
	assert.Equal(t, "Paper Cups", created.ItemName)
	assert.Len(t, s.Products(), 3)
	assert.Empty(t, s.Transactions())
}

func TestSeedPrefersPersistedState(t *testing.T) {
	kv := memory.NewSeeded(map[string][]byte{
		ProductsKey:     []byte(`[{"itemName":"Tea","category":"Beverages","description":"","unitPrice":2,"inventory":5}]`),
		TransactionsKey: []byte(`[{"id":1800000000000,"date":"2027-01-15","itemName":"Tea","category":"Beverages","unitPrice":2,"quantity":1,"totalPrice":2}]`),
	})
	s := newTestStore(t, kv)

	products := s.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "Tea", products[0].ItemName)
	_, err := s.FindByName("Coffee")
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	tx, err := s.Sell("Tea", 1, "2027-01-16")
	require.NoError(t, err)
	assert.Greater(t, tx.ID, int64(1800000000000))
}

func TestSeedLogsWhichCollectionsWerePersisted(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	kv := memory.NewSeeded(map[string][]byte{
		TransactionsKey: []byte(`[{"id":1800000000000,"date":"2027-01-15","itemName":"Coffee","category":"Beverages","unitPrice":3.5,"quantity":1,"totalPrice":3.5}]`),
	})
	s := New(kv, Options{Logger: &logger.Logger{SugaredLogger: zap.New(core).Sugar()}})
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Seed(context.Background(), testSeed()))

	loaded := logs.FilterMessage("state loaded").All()
	require.Len(t, loaded, 1)
	fields := loaded[0].ContextMap()
	assert.Equal(t, false, fields["persisted_catalog"])
	assert.Equal(t, true, fields["persisted_ledger"])
	assert.Len(t, s.Products(), 2)
}

func TestSeedWithoutPersistedStateWritesNothing(t *testing.T) {
	kv := memory.New()
	s := newTestStore(t, kv)

	assert.Len(t, s.Products(), 2)
	s.Flush()
	assert.Zero(t, kv.Writes())
}

func TestDeleteTransactionKeepsInventory(t *testing.T) {
	s := newTestStore(t, memory.New())

	tx, err := s.Sell("Coffee", 4, "2024-03-04")
	require.NoError(t, err)

	assert.False(t, s.DeleteTransaction(tx.ID+999))
	assert.Len(t, s.Transactions(), 1)

	before := s.Revision()
	assert.True(t, s.DeleteTransaction(tx.ID))
	assert.Empty(t, s.Transactions())
	assert.Greater(t, s.Revision(), before)

	product, err := s.FindByName("Coffee")
	require.NoError(t, err)
	assert.Equal(t, 6, product.Inventory)
}

func TestClearTransactions(t *testing.T) {
	s := newTestStore(t, memory.New())

	_, err := s.Sell("Coffee", 1, "2024-03-04")
	require.NoError(t, err)
	_, err = s.Sell("Coffee", 1, "2024-03-05")
	require.NoError(t, err)

	assert.Equal(t, 2, s.ClearTransactions())
	assert.Empty(t, s.Transactions())
	assert.Equal(t, 0, s.ClearTransactions())
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	s := New(memory.New(), Options{})
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Seed(context.Background(), testSeed()))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Sell("Coffee", 1, "2024-03-04"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	product, err := s.FindByName("Coffee")
	require.NoError(t, err)
	assert.Equal(t, 0, product.Inventory)

	ids := make(map[int64]struct{})
	for _, tx := range s.Transactions() {
		ids[tx.ID] = struct{}{}
	}
	assert.Len(t, ids, 10)
}

func TestSeedPropagatesLoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := NewMockKV(ctrl)
	kv.EXPECT().Load(gomock.Any(), ProductsKey).Return(nil, false, errors.New("connection refused"))

	s := New(kv, Options{})
	t.Cleanup(func() { _ = s.Close() })

	err := s.Seed(context.Background(), testSeed())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load catalog")
}

func TestResyncAfterFailedWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	kv := NewMockKV(ctrl)
	kv.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, false, nil).Times(2)
	kv.EXPECT().Save(gomock.Any(), ProductsKey, gomock.Any()).Return(errors.New("disk full"))
	kv.EXPECT().Save(gomock.Any(), ProductsKey, gomock.Any()).Return(nil)
	kv.EXPECT().Save(gomock.Any(), TransactionsKey, gomock.Any()).Return(nil).Times(2)

	s := New(kv, Options{})
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Seed(context.Background(), testSeed()))

	_, err := s.Sell("Coffee", 1, "2024-03-04")
	require.NoError(t, err)
	s.Flush()

	assert.True(t, s.Resync())
	s.Flush()
	assert.False(t, s.Resync())

	product, err := s.FindByName("Coffee")
	require.NoError(t, err)
	assert.Equal(t, 9, product.Inventory)
}
