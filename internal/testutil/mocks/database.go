// Package mocks provides shared fakes and mocks for testing.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"github.com/kevin07696/order-payment-service/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// InMemoryOrderRepository is a goroutine-safe order store with the same
// compare-and-swap semantics as the Postgres repository.
type InMemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order

	// Writes counts successful conditional writes
	Writes int
}

var _ ports.OrderRepository = (*InMemoryOrderRepository)(nil)

// NewInMemoryOrderRepository creates an empty store
func NewInMemoryOrderRepository(orders ...*domain.Order) *InMemoryOrderRepository {
	r := &InMemoryOrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
	for _, o := range orders {
		r.orders[o.ID] = cloneOrder(o)
	}
	return r
}

func (r *InMemoryOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *InMemoryOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *InMemoryOrderRepository) GetByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentRef == ref {
			return cloneOrder(o), nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *InMemoryOrderRepository) CompareAndSwapPayment(ctx context.Context, id uuid.UUID, expected domain.PaymentStatus, update domain.PaymentUpdate) (bool, error) {
	if err := domain.ValidatePaymentUpdate(expected, update); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok || o.PaymentStatus != expected {
		return false, nil
	}

	o.PaymentStatus = update.PaymentStatus
	if update.Status != nil {
		o.Status = *update.Status
	}
	if update.PaymentRef != "" {
		o.PaymentRef = update.PaymentRef
	}
	if update.PaymentCode != "" {
		o.PaymentCode = update.PaymentCode
	}
	if o.TransactionID == "" {
		o.TransactionID = update.TransactionID
	}
	if update.Meta != nil {
		o.PaymentMeta = append(o.PaymentMeta, *update.Meta)
	}
	o.UpdatedAt = time.Now()
	r.Writes++
	return true, nil
}

// Order returns a copy of the stored order, or nil
func (r *InMemoryOrderRepository) Order(id uuid.UUID) *domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil
	}
	return cloneOrder(o)
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.PaymentMeta = append([]domain.PaymentMetaEntry(nil), o.PaymentMeta...)
	return &c
}

// MockOrderRepository is a testify mock of ports.OrderRepository for error paths
type MockOrderRepository struct {
	mock.Mock
}

var _ ports.OrderRepository = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) CompareAndSwapPayment(ctx context.Context, id uuid.UUID, expected domain.PaymentStatus, update domain.PaymentUpdate) (bool, error) {
	args := m.Called(ctx, id, expected, update)
	return args.Bool(0), args.Error(1)
}
