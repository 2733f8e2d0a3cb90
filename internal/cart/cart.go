// Package cart holds each user's product selection until checkout.
package cart

import (
	"context"
	"errors"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Item is one product line as stored; prices are resolved at read time.
type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Store is a per-user cart. Set with a quantity of zero or less removes the
// line. Items are returned in a stable product id order.
type Store interface {
	Items(ctx context.Context, userID string) ([]Item, error)
	Add(ctx context.Context, userID, productID string, qty int) error
	Set(ctx context.Context, userID, productID string, qty int) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
