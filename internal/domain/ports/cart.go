package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/domain"
)

// CartStore is the durable cart owned by the storefront
type CartStore interface {
	// GetCart returns the user's cart; an unknown user has an empty cart
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)

	// ClearCart removes every item in the user's cart
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

// CartCache holds recently read carts keyed by user
type CartCache interface {
	Invalidate(userID uuid.UUID)
}
