package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the single staging area a user fills before checkout.
type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Price     decimal.Decimal // tax included, snapshotted on every add
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(LineTotal(item.Price, item.Quantity))
	}
	return total
}

type CartRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, cart *Cart) error
	// FindByUser returns the cart with its items loaded.
	FindByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)

	FindItem(ctx context.Context, cartID, productID uuid.UUID) (*CartItem, error)
	FindItemByID(ctx context.Context, itemID uuid.UUID) (*CartItem, error)
	CreateItem(ctx context.Context, item *CartItem) error
	UpdateItem(ctx context.Context, item *CartItem) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
	DeleteItemsByProduct(ctx context.Context, productID uuid.UUID) error
}
