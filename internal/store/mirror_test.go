package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedKV blocks every Save until release is closed.
type gatedKV struct {
	release chan struct{}
	started chan struct{}

	mu     sync.Mutex
	saves  int
	values map[string]string
}

func newGatedKV() *gatedKV {
	return &gatedKV{
		release: make(chan struct{}),
		started: make(chan struct{}, 16),
		values:  make(map[string]string),
	}
}

func (g *gatedKV) Load(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (g *gatedKV) Save(_ context.Context, key string, value []byte) error {
	g.started <- struct{}{}
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves++
	g.values[key] = string(value)
	return nil
}

func TestMirrorCoalescesWritesWhileBusy(t *testing.T) {
	kv := newGatedKV()
	m := NewMirror(kv, 0, nil)
	t.Cleanup(func() { _ = m.Close() })

	m.Enqueue(TransactionsKey, []byte("v1"))
	<-kv.started

	for _, v := range []string{"v2", "v3", "v4", "v5"} {
		m.Enqueue(TransactionsKey, []byte(v))
	}
	close(kv.release)
	m.Flush()

	kv.mu.Lock()
	defer kv.mu.Unlock()
	assert.Equal(t, 2, kv.saves)
	assert.Equal(t, "v5", kv.values[TransactionsKey])
}

func TestMirrorCloseDrainsPending(t *testing.T) {
	kv := newGatedKV()
	close(kv.release)
	m := NewMirror(kv, 0, nil)

	m.Enqueue(ProductsKey, []byte("catalog"))
	m.Enqueue(TransactionsKey, []byte("ledger"))
	require.NoError(t, m.Close())

	kv.mu.Lock()
	defer kv.mu.Unlock()
	assert.Equal(t, "catalog", kv.values[ProductsKey])
	assert.Equal(t, "ledger", kv.values[TransactionsKey])

	m.Enqueue(ProductsKey, []byte("late"))
	assert.Equal(t, "catalog", kv.values[ProductsKey])
}
