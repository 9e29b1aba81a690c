package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"github.com/kevin07696/order-payment-service/internal/domain/ports"
)

// CartRepository implements ports.CartStore on PostgreSQL
type CartRepository struct {
	db ports.DBPort
}

var _ ports.CartStore = (*CartRepository)(nil)

// NewCartRepository creates a new cart repository
func NewCartRepository(db ports.DBPort) *CartRepository {
	return &CartRepository{db: db}
}

// GetCart returns the user's cart; an unknown user has an empty cart
func (r *CartRepository) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	ctx, cancel := r.db.QueryContext(ctx)
	defer cancel()

	rows, err := r.db.GetDB().Query(ctx, `
		SELECT product_id, quantity, unit_price
		FROM cart_items
		WHERE user_id = $1
		ORDER BY added_at, product_id`, userID)
	if err != nil {
		return nil, mapError(err, "get cart")
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CartItem, error) {
		var item domain.CartItem
		err := row.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice)
		return item, err
	})
	if err != nil {
		return nil, mapError(err, "scan cart")
	}

	return &domain.Cart{UserID: userID, Items: items}, nil
}

// ClearCart removes every item in the user's cart
func (r *CartRepository) ClearCart(ctx context.Context, userID uuid.UUID) error {
	ctx, cancel := r.db.QueryContext(ctx)
	defer cancel()

	if _, err := r.db.GetDB().Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return mapError(err, "clear cart").WithDetail("user_id", userID.String())
	}
	return nil
}

// AddItem adds quantity of a product to the cart, keeping the latest unit price
func (r *CartRepository) AddItem(ctx context.Context, userID uuid.UUID, item domain.CartItem) error {
	ctx, cancel := r.db.QueryContext(ctx)
	defer cancel()

	_, err := r.db.GetDB().Exec(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity,
			unit_price = EXCLUDED.unit_price`,
		userID, item.ProductID, item.Quantity, item.UnitPrice)
	if err != nil {
		return mapError(err, "add cart item")
	}
	return nil
}
