package cart

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[string]map[string]int{}}
}

func (s *MemoryStore) Items(_ context.Context, userID string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Item, 0, len(s.carts[userID]))
	for id, qty := range s.carts[userID] {
		items = append(items, Item{ProductID: id, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

func (s *MemoryStore) Add(_ context.Context, userID, productID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[userID] == nil {
		s.carts[userID] = map[string]int{}
	}
	s.carts[userID][productID] += qty
	return nil
}

func (s *MemoryStore) Set(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return s.Remove(ctx, userID, productID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[userID] == nil {
		s.carts[userID] = map[string]int{}
	}
	s.carts[userID][productID] = qty
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts[userID], productID)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}
