package domain

import (
	"github.com/google/uuid"
)

// CartItem is one product line in a user's cart
type CartItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int32     `json:"quantity"`
	UnitPrice int64     `json:"unitPrice"`
}

// Cart is the storefront cart the payment flow empties on success
type Cart struct {
	Items  []CartItem `json:"items"`
	UserID uuid.UUID  `json:"userId"`
}

// Total returns the sum of line prices
func (c *Cart) Total() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// IsEmpty returns true if the cart has no items
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
