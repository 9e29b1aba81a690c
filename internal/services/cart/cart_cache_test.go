package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"github.com/kevin07696/order-payment-service/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCache_ReadThrough(t *testing.T) {
	store := mocks.NewInMemoryCartStore()
	userID := uuid.New()
	store.AddItem(userID, domain.CartItem{ProductID: uuid.New(), Quantity: 2, UnitPrice: 75000})

	cache := NewCache(store, zaptest.NewLogger(t), time.Minute, 10)

	first, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)
	second, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, int64(150000), first.Total())
	assert.Same(t, first, second, "second read should be served from cache")
	_, gets := store.Calls()
	assert.Equal(t, 1, gets)
}

func TestCache_Expiry(t *testing.T) {
	store := mocks.NewInMemoryCartStore()
	userID := uuid.New()
	cache := NewCache(store, zaptest.NewLogger(t), time.Minute, 10)

	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	_, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = cache.Get(context.Background(), userID)
	require.NoError(t, err)

	_, gets := store.Calls()
	assert.Equal(t, 2, gets, "expired entry should be reloaded")
}

func TestCache_Invalidate(t *testing.T) {
	store := mocks.NewInMemoryCartStore()
	userID := uuid.New()
	store.AddItem(userID, domain.CartItem{ProductID: uuid.New(), Quantity: 1, UnitPrice: 1000})
	cache := NewCache(store, zaptest.NewLogger(t), time.Minute, 10)

	cart, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)
	require.False(t, cart.IsEmpty())

	require.NoError(t, store.ClearCart(context.Background(), userID))
	cache.Invalidate(userID)

	cart, err = cache.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCache_EvictsLeastRecentlyRead(t *testing.T) {
	store := mocks.NewInMemoryCartStore()
	cache := NewCache(store, zaptest.NewLogger(t), time.Hour, 2)

	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	oldest, middle, newest := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{oldest, middle, newest} {
		_, err := cache.Get(context.Background(), id)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, cache.Len())
	_, ok := cache.cache.Load(oldest)
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = cache.cache.Load(newest)
	assert.True(t, ok)
}

// racingStore clears the cart and invalidates the cache after reading it,
// as a concurrent payment confirmation would between the read and the store
type racingStore struct {
	*mocks.InMemoryCartStore
	cache *Cache
}

func (s *racingStore) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.InMemoryCartStore.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.InMemoryCartStore.ClearCart(ctx, userID); err != nil {
		return nil, err
	}
	s.cache.Invalidate(userID)
	return cart, nil
}

func TestCache_InvalidateDuringFetchIsNotOverwritten(t *testing.T) {
	userID := uuid.New()
	store := &racingStore{InMemoryCartStore: mocks.NewInMemoryCartStore()}
	store.AddItem(userID, domain.CartItem{ProductID: uuid.New(), Quantity: 1, UnitPrice: 1000})
	cache := NewCache(store, zaptest.NewLogger(t), time.Minute, 10)
	store.cache = cache

	stale, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, stale.IsEmpty(), "the in-flight read still returns what it saw")
	assert.Equal(t, 0, cache.Len(), "the pre-invalidation read must not be cached")

	fresh, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, fresh.IsEmpty())
	_, gets := store.Calls()
	assert.Equal(t, 2, gets, "the next read goes back to the store")
}

func TestCache_FetchWithoutInvalidateIsCached(t *testing.T) {
	store := mocks.NewInMemoryCartStore()
	userID := uuid.New()
	cache := NewCache(store, zaptest.NewLogger(t), time.Minute, 10)

	_, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.Len())
	assert.Empty(t, cache.fetches, "no reads left in flight")
}
