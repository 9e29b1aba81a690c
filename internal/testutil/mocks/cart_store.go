package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/kevin07696/order-payment-service/internal/domain"
	"github.com/kevin07696/order-payment-service/internal/domain/ports"
)

// InMemoryCartStore is a goroutine-safe cart store with failure injection
type InMemoryCartStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID][]domain.CartItem

	// ClearErr, when set, is returned by every ClearCart call
	ClearErr error
	// ClearCalls counts ClearCart invocations
	ClearCalls int
	// GetCalls counts GetCart invocations
	GetCalls int
}

var _ ports.CartStore = (*InMemoryCartStore)(nil)

// NewInMemoryCartStore creates an empty cart store
func NewInMemoryCartStore() *InMemoryCartStore {
	return &InMemoryCartStore{carts: make(map[uuid.UUID][]domain.CartItem)}
}

// AddItem puts a product line in the user's cart
func (s *InMemoryCartStore) AddItem(userID uuid.UUID, item domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = append(s.carts[userID], item)
}

func (s *InMemoryCartStore) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetCalls++
	return &domain.Cart{
		UserID: userID,
		Items:  append([]domain.CartItem(nil), s.carts[userID]...),
	}, nil
}

func (s *InMemoryCartStore) ClearCart(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ClearCalls++
	if s.ClearErr != nil {
		return s.ClearErr
	}
	delete(s.carts, userID)
	return nil
}

// ItemCount returns the number of lines in the user's cart
func (s *InMemoryCartStore) ItemCount(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts[userID])
}

// Calls returns the current ClearCart and GetCart counters
func (s *InMemoryCartStore) Calls() (clear, get int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ClearCalls, s.GetCalls
}
