package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Constants for memoizer configuration
const (
	DefaultTTL           = 10 * time.Minute
	DefaultCapacity      = 100
	defaultSweepInterval = 30 * time.Second
	minimumSweepInterval = 10 * time.Millisecond
)

// ComputationError wraps a failure that surfaced through the
// memoization layer. The underlying error stays reachable via Unwrap,
// so domain error codes survive the wrapping.
type ComputationError struct {
	Cache string
	Key   string
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("cache %s: computation for key %q failed: %v", e.Cache, e.Key, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// Memoizer is a bounded-lifetime, bounded-size cache with
// single-flight-per-key semantics. A live entry is returned without
// invoking the compute function; otherwise exactly one computation per
// key runs at a time and concurrent callers receive its result. Failed
// computations are never inserted, so the next call retries from
// scratch.
type Memoizer[V any] struct {
	name     string
	ttl      time.Duration
	capacity int
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front = most recently used

	group   singleflight.Group
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

type memoEntry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
}

// MemoizerOption is a functional option for configuring a Memoizer
type MemoizerOption[V any] func(*Memoizer[V])

// WithTTL sets the entry time-to-live, measured from insertion
func WithTTL[V any](ttl time.Duration) MemoizerOption[V] {
	return func(m *Memoizer[V]) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithCapacity sets the maximum entry count
func WithCapacity[V any](capacity int) MemoizerOption[V] {
	return func(m *Memoizer[V]) {
		if capacity > 0 {
			m.capacity = capacity
		}
	}
}

// WithLogger sets the logger for the memoizer
func WithLogger[V any](logger *zap.Logger) MemoizerOption[V] {
	return func(m *Memoizer[V]) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMemoizer creates a memoizer named for log correlation and starts
// its background sweeper.
func NewMemoizer[V any](name string, opts ...MemoizerOption[V]) *Memoizer[V] {
	m := &Memoizer[V]{
		name:     name,
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		logger:   zap.NewNop(),
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.sweepExpired()

	return m
}

// GetOrCompute returns the live cached value for key, or runs compute
// to produce one. Concurrent callers for the same key share a single
// in-flight computation. A caller whose context ends stops waiting,
// but the computation runs to completion and populates the cache for
// the remaining waiters.
func (m *Memoizer[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	var zero V

	if v, ok := m.lookup(key); ok {
		return v, nil
	}

	// The computation must not die with the first caller, so it runs
	// on a context detached from cancellation.
	computeCtx := context.WithoutCancel(ctx)

	ch := m.group.DoChan(key, func() (any, error) {
		// A concurrent flight may have inserted between lookup and here.
		if v, ok := m.lookup(key); ok {
			return v, nil
		}
		v, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}
		m.insert(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			m.logger.Warn("cached computation failed",
				zap.String("cache", m.name),
				zap.String("key", key),
				zap.Error(res.Err))
			return zero, &ComputationError{Cache: m.name, Key: key, Err: res.Err}
		}
		return res.Val.(V), nil
	}
}

// Peek reports whether a live entry exists without touching LRU order
// or invoking any computation.
func (m *Memoizer[V]) Peek(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return false
	}
	return !m.expired(elem.Value.(*memoEntry[V]))
}

// Invalidate drops the entry for key if one exists.
func (m *Memoizer[V]) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		m.removeLocked(elem)
	}
}

// Len returns the number of entries currently held, expired or not.
func (m *Memoizer[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Stats returns hit/miss counters
func (m *Memoizer[V]) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&m.hits), atomic.LoadInt64(&m.misses)
}

// Close stops the background sweeper. Safe to call more than once.
func (m *Memoizer[V]) Close() error {
	if atomic.CompareAndSwapInt32(&m.stopped, 0, 1) {
		close(m.stopCh)
	}
	return nil
}

// lookup returns the live value for key and refreshes its LRU position.
// Expired entries are evicted on sight and treated as absent.
func (m *Memoizer[V]) lookup(key string) (V, bool) {
	var zero V

	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		atomic.AddInt64(&m.misses, 1)
		return zero, false
	}
	entry := elem.Value.(*memoEntry[V])
	if m.expired(entry) {
		m.removeLocked(elem)
		atomic.AddInt64(&m.misses, 1)
		return zero, false
	}
	m.lru.MoveToFront(elem)
	atomic.AddInt64(&m.hits, 1)
	return entry.value, true
}

// insert stores a freshly computed value, evicting the least-recently
// used entry when the cache is full. A recomputation replaces the old
// entry rather than mutating it.
func (m *Memoizer[V]) insert(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		m.removeLocked(elem)
	}
	for m.lru.Len() >= m.capacity {
		oldest := m.lru.Back()
		if oldest == nil {
			break
		}
		m.logger.Debug("evicting least-recently-used entry",
			zap.String("cache", m.name),
			zap.String("key", oldest.Value.(*memoEntry[V]).key))
		m.removeLocked(oldest)
	}
	entry := &memoEntry[V]{key: key, value: value, insertedAt: time.Now()}
	m.entries[key] = m.lru.PushFront(entry)
}

func (m *Memoizer[V]) expired(e *memoEntry[V]) bool {
	return time.Since(e.insertedAt) >= m.ttl
}

func (m *Memoizer[V]) removeLocked(elem *list.Element) {
	entry := elem.Value.(*memoEntry[V])
	m.lru.Remove(elem)
	delete(m.entries, entry.key)
}

// sweepExpired periodically removes expired entries so a cold cache
// does not pin memory until the next access.
func (m *Memoizer[V]) sweepExpired() {
	interval := m.ttl / 2
	if interval > defaultSweepInterval {
		interval = defaultSweepInterval
	}
	if interval < minimumSweepInterval {
		interval = minimumSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.doSweep()
		}
	}
}

func (m *Memoizer[V]) doSweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int
	for elem := m.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if m.expired(elem.Value.(*memoEntry[V])) {
			m.removeLocked(elem)
			removed++
		}
		elem = prev
	}
	if removed > 0 {
		m.logger.Debug("swept expired cache entries",
			zap.String("cache", m.name),
			zap.Int("removed", removed))
	}
}
