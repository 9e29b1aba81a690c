package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/domain"
)

// OrderRepository defines the interface for order persistence.
// Implementations return domain.ErrOrderNotFound when a lookup does not resolve.
type OrderRepository interface {
	// Create inserts a new order
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)

	// GetByPaymentRef retrieves an order by the transaction reference sent to the processor
	GetByPaymentRef(ctx context.Context, ref string) (*domain.Order, error)

	// CompareAndSwapPayment applies update only if the stored payment status still equals expected.
	// It returns false, nil when another writer got there first.
	CompareAndSwapPayment(ctx context.Context, id uuid.UUID, expected domain.PaymentStatus, update domain.PaymentUpdate) (bool, error)
}
