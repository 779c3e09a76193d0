package store

import (
	"context"
	"sync"
	"time"

	"salesjournal/internal/logger"
)

// Mirror writes snapshots to a KV in the background. Only the latest value
// per key is kept while a write is in flight, so bursts of mutations collapse
// into one write per key.
type Mirror struct {
	kv      KV
	timeout time.Duration
	log     *logger.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	pending  map[string][]byte
	inflight bool
	failed   bool
	closed   bool

	wake chan struct{}
	done chan struct{}
}

func NewMirror(kv KV, timeout time.Duration, log *logger.Logger) *Mirror {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	m := &Mirror{
		kv:      kv,
		timeout: timeout,
		log:     log,
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	go m.run()
	return m
}

// Enqueue schedules value to be written under key and returns immediately.
func (m *Mirror) Enqueue(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.log.Warnw("mirror closed, dropping snapshot", "key", key)
		return
	}
	m.pending[key] = value
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every enqueued snapshot has been handed to the KV.
func (m *Mirror) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.pending) > 0 || m.inflight {
		m.cond.Wait()
	}
}

// TakeFailed reports whether a write failed since the last call and resets the flag.
func (m *Mirror) TakeFailed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	failed := m.failed
	m.failed = false
	return failed
}

// Close writes what is pending and stops the writer.
func (m *Mirror) Close() error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.wake)
	}
	m.mu.Unlock()

	<-m.done
	return nil
}

func (m *Mirror) run() {
	defer close(m.done)
	for range m.wake {
		m.drain()
	}
	m.drain()
}

func (m *Mirror) drain() {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.inflight = false
			m.cond.Broadcast()
			m.mu.Unlock()
			return
		}
		batch := m.pending
		m.pending = make(map[string][]byte)
		m.inflight = true
		m.mu.Unlock()

		for key, value := range batch {
			m.write(key, value)
		}
	}
}

func (m *Mirror) write(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if err := m.kv.Save(ctx, key, value); err != nil {
		m.log.Warnw("snapshot write failed", "key", key, "bytes", len(value), "error", err)
		m.mu.Lock()
		m.failed = true
		m.mu.Unlock()
		return
	}
	m.log.Debugw("snapshot written", "key", key, "bytes", len(value))
}
