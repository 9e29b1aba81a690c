package cart

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"github.com/kevin07696/order-payment-service/internal/domain/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	cartCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_cache_hits_total",
		Help: "Total number of cart cache hits",
	})

	cartCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_cache_misses_total",
		Help: "Total number of cart cache misses",
	}, []string{"reason"}) // expired, not_found, error

	cartCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cart_cache_size",
		Help: "Current number of carts in cache",
	})

	cartCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_cache_evictions_total",
		Help: "Total number of cart cache evictions due to size limit",
	})
)

// Cache is a read-through TTL cache of carts keyed by user ID.
// Eviction is approximate LRU over the last access time.
type Cache struct {
	cache  sync.Map // map[uuid.UUID]*cachedCart
	store  ports.CartStore
	logger *zap.Logger
	now    func() time.Time

	ttl     time.Duration
	maxSize int

	mu sync.Mutex

	// fetches tracks store reads in flight per user. Invalidate bumps the
	// generation so a read that started before it is not cached.
	fetchMu sync.Mutex
	fetches map[uuid.UUID]*fetchGeneration
}

type fetchGeneration struct {
	gen      uint64
	inFlight int
}

type cachedCart struct {
	cart       *domain.Cart
	expiresAt  time.Time
	accessedAt time.Time
	mu         sync.RWMutex
}

var _ ports.CartCache = (*Cache)(nil)

// NewCache creates a new cart cache
func NewCache(store ports.CartStore, logger *zap.Logger, ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		store:   store,
		logger:  logger,
		now:     time.Now,
		ttl:     ttl,
		maxSize: maxSize,
		fetches: make(map[uuid.UUID]*fetchGeneration),
	}
}

// Get returns the user's cart from cache or loads it from the store
func (c *Cache) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	if val, ok := c.cache.Load(userID); ok {
		cached := val.(*cachedCart)
		now := c.now()

		cached.mu.RLock()
		valid := now.Before(cached.expiresAt)
		cart := cached.cart
		cached.mu.RUnlock()

		if valid {
			cached.mu.Lock()
			cached.accessedAt = now
			cached.mu.Unlock()

			cartCacheHits.Inc()
			return cart, nil
		}
		cartCacheMisses.WithLabelValues("expired").Inc()
	} else {
		cartCacheMisses.WithLabelValues("not_found").Inc()
	}

	return c.fetchAndCache(ctx, userID)
}

func (c *Cache) fetchAndCache(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	gen := c.beginFetch(userID)
	cart, err := c.store.GetCart(ctx, userID)
	if err != nil {
		c.endFetch(userID)
		cartCacheMisses.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}

	now := c.now()
	c.fetchMu.Lock()
	stale := c.fetches[userID].gen != gen
	if !stale {
		c.cache.Store(userID, &cachedCart{
			cart:       cart,
			expiresAt:  now.Add(c.ttl),
			accessedAt: now,
		})
	}
	c.finishFetchLocked(userID)
	c.fetchMu.Unlock()

	if stale {
		c.logger.Debug("Cart invalidated during fetch, not caching",
			zap.String("user_id", userID.String()),
		)
		return cart, nil
	}
	c.evictIfNeeded()

	c.logger.Debug("Cached cart",
		zap.String("user_id", userID.String()),
		zap.Int("items", len(cart.Items)),
	)
	return cart, nil
}

func (c *Cache) beginFetch(userID uuid.UUID) uint64 {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	f, ok := c.fetches[userID]
	if !ok {
		f = &fetchGeneration{}
		c.fetches[userID] = f
	}
	f.inFlight++
	return f.gen
}

func (c *Cache) endFetch(userID uuid.UUID) {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	c.finishFetchLocked(userID)
}

func (c *Cache) finishFetchLocked(userID uuid.UUID) {
	f := c.fetches[userID]
	f.inFlight--
	if f.inFlight == 0 {
		delete(c.fetches, userID)
	}
}

// Invalidate removes a user's cart from the cache. A read already in flight
// for the user will return its result without caching it.
func (c *Cache) Invalidate(userID uuid.UUID) {
	c.fetchMu.Lock()
	if f, ok := c.fetches[userID]; ok {
		f.gen++
	}
	c.cache.Delete(userID)
	c.fetchMu.Unlock()
	c.updateCacheSize()

	c.logger.Debug("Invalidated cart cache entry",
		zap.String("user_id", userID.String()),
	)
}

// Len returns the number of cached carts, expired entries included
func (c *Cache) Len() int {
	size := 0
	c.cache.Range(func(key, value interface{}) bool {
		size++
		return true
	})
	return size
}

// evictIfNeeded drops the least recently read entries once maxSize is exceeded
func (c *Cache) evictIfNeeded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.Len()
	if c.maxSize <= 0 || size <= c.maxSize {
		c.updateCacheSize()
		return
	}

	type entry struct {
		userID     uuid.UUID
		accessedAt time.Time
	}
	entries := make([]entry, 0, size)
	c.cache.Range(func(key, value interface{}) bool {
		cached := value.(*cachedCart)
		cached.mu.RLock()
		entries = append(entries, entry{userID: key.(uuid.UUID), accessedAt: cached.accessedAt})
		cached.mu.RUnlock()
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].accessedAt.Before(entries[j].accessedAt)
	})

	// Evict down to maxSize plus 10% headroom
	evictCount := (size - c.maxSize) + (c.maxSize / 10)
	for i := 0; i < evictCount && i < len(entries); i++ {
		c.cache.Delete(entries[i].userID)
		cartCacheEvictions.Inc()
	}

	c.updateCacheSize()
}

func (c *Cache) updateCacheSize() {
	cartCacheSize.Set(float64(c.Len()))
}
