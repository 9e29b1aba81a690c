// Package fixtures provides test data builders.
package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/domain"
)

// OrderBuilder provides a fluent API for building test orders.
type OrderBuilder struct {
	order *domain.Order
}

// NewOrder creates a pending VNPay order for 150,000 VND.
func NewOrder() *OrderBuilder {
	now := time.Now()
	return &OrderBuilder{
		order: &domain.Order{
			ID:            uuid.New(),
			UserID:        uuid.New(),
			OrderNumber:   "ORD-20261018-0001",
			Total:         150000,
			Status:        domain.OrderStatusPending,
			PaymentStatus: domain.PaymentStatusPending,
			PaymentCode:   domain.PaymentCodeVNPay,
			PaymentRef:    "ORD202610180001",
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

func (b *OrderBuilder) WithID(id uuid.UUID) *OrderBuilder {
	b.order.ID = id
	return b
}

func (b *OrderBuilder) WithUserID(userID uuid.UUID) *OrderBuilder {
	b.order.UserID = userID
	return b
}

// WithOrderNumber sets the order number and the payment reference derived from it.
func (b *OrderBuilder) WithOrderNumber(number, ref string) *OrderBuilder {
	b.order.OrderNumber = number
	b.order.PaymentRef = ref
	return b
}

func (b *OrderBuilder) WithTotal(total int64) *OrderBuilder {
	b.order.Total = total
	return b
}

func (b *OrderBuilder) WithStatus(status domain.OrderStatus) *OrderBuilder {
	b.order.Status = status
	return b
}

func (b *OrderBuilder) WithPaymentStatus(status domain.PaymentStatus) *OrderBuilder {
	b.order.PaymentStatus = status
	return b
}

func (b *OrderBuilder) WithTransactionID(id string) *OrderBuilder {
	b.order.TransactionID = id
	return b
}

// WithoutPaymentRef clears the reference, as for an order never sent to the processor.
func (b *OrderBuilder) WithoutPaymentRef() *OrderBuilder {
	b.order.PaymentRef = ""
	b.order.PaymentCode = ""
	return b
}

// Build returns the constructed order.
func (b *OrderBuilder) Build() *domain.Order {
	return b.order
}

// PaidOrder creates an order already settled by a previous callback.
func PaidOrder() *domain.Order {
	return NewOrder().
		WithStatus(domain.OrderStatusConfirmed).
		WithPaymentStatus(domain.PaymentStatusPaid).
		WithTransactionID("14000001").
		Build()
}

// FailedOrder creates an order whose last payment attempt failed.
func FailedOrder() *domain.Order {
	return NewOrder().WithPaymentStatus(domain.PaymentStatusFailed).Build()
}
