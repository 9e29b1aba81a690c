package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"github.com/kevin07696/order-payment-service/internal/domain/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var cartClearTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cart_clear_total",
	Help: "Total number of post-payment cart clears by result",
}, []string{"result"}) // success, error, breaker_open

// ClearerConfig configures the post-payment cart clearer
type ClearerConfig struct {
	// Timeout bounds a single call to the cart store
	Timeout time.Duration
	// MaxFailures is the number of consecutive failures before the breaker opens
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// DefaultClearerConfig returns sensible defaults
func DefaultClearerConfig() ClearerConfig {
	return ClearerConfig{
		Timeout:     3 * time.Second,
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// Clearer empties a user's cart after a confirmed payment and drops the cached copy.
// Calls to the cart store go through a circuit breaker so a failing store does not
// hold up payment confirmations.
type Clearer struct {
	store   ports.CartStore
	cache   ports.CartCache
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *zap.Logger
	timeout time.Duration
}

// NewClearer creates a new cart clearer
func NewClearer(store ports.CartStore, cache ports.CartCache, cfg ClearerConfig, logger *zap.Logger) *Clearer {
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "cart-store",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Clearer{
		store:   store,
		cache:   cache,
		breaker: breaker,
		logger:  logger,
		timeout: cfg.Timeout,
	}
}

// Clear removes every item from the user's cart.
// The cache entry is dropped even when the store call fails.
// Errors are returned as domain.ErrSideEffectFailure for the caller to log.
func (c *Clearer) Clear(ctx context.Context, userID uuid.UUID) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.store.ClearCart(ctx, userID)
	})

	if c.cache != nil {
		c.cache.Invalidate(userID)
	}

	if err != nil {
		result := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "breaker_open"
		}
		cartClearTotal.WithLabelValues(result).Inc()

		return domain.WrapError(domain.ErrorCodeSideEffectFailure, "failed to clear cart", err).
			WithDetail("user_id", userID.String())
	}

	cartClearTotal.WithLabelValues("success").Inc()
	c.logger.Info("Cleared cart after payment",
		zap.String("user_id", userID.String()),
	)
	return nil
}

// State reports the breaker state for health output
func (c *Clearer) State() string {
	return c.breaker.State().String()
}
