package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dompet/internal/core"
)

// LoadFunc reads one ledger in full from the backing store.
type LoadFunc func(ctx context.Context, key string) ([]core.Transaction, error)

// LedgerCache keeps each ledger's transactions for a short TTL. Concurrent
// misses for the same ledger share one load. Every Invalidate bumps the
// ledger's generation; a load started under an older generation is returned
// to its callers but never stored.
type LedgerCache struct {
	lru   *LRUCache[[]core.Transaction]
	group singleflight.Group
	load  LoadFunc

	mu          sync.Mutex
	generations map[string]uint64
}

func NewLedgerCache(load LoadFunc, maxLedgers int, ttl time.Duration) *LedgerCache {
	return &LedgerCache{
		lru:         NewLRUCache[[]core.Transaction](maxLedgers, ttl),
		load:        load,
		generations: make(map[string]uint64),
	}
}

func (c *LedgerCache) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[key]
}

// store caches txs only if no invalidation happened since gen was read.
func (c *LedgerCache) store(key string, gen uint64, txs []core.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key] == gen {
		c.lru.Set(key, txs)
	}
}

// Transactions returns the cached ledger or loads it. Callers must not
// modify the returned slice.
func (c *LedgerCache) Transactions(ctx context.Context, key string) ([]core.Transaction, error) {
	if txs, ok := c.lru.Get(key); ok {
		return txs, nil
	}
	gen := c.generation(key)
	flight := key + "@" + strconv.FormatUint(gen, 10)
	v, err, _ := c.group.Do(flight, func() (any, error) {
		txs, err := c.load(ctx, key)
		if err != nil {
			return nil, err
		}
		c.store(key, gen, txs)
		return txs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.Transaction), nil
}

// Invalidate drops a ledger after a write. Loads already in flight keep
// running but their result is not cached.
func (c *LedgerCache) Invalidate(key string) {
	c.mu.Lock()
	c.generations[key]++
	c.lru.Delete(key)
	c.mu.Unlock()
}

func (c *LedgerCache) CleanExpired() int { return c.lru.CleanExpired() }

func (c *LedgerCache) Size() int { return c.lru.Size() }
