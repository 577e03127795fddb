package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"pcstore/pkg/shop/domain/model"
)

type cartRepository struct {
	tables *tables
}

func (r *cartRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *cartRepository) Create(_ context.Context, cart *model.Cart) error {
	for _, existing := range r.tables.carts {
		if existing.UserID == cart.UserID {
			return model.ErrCartAlreadyExists
		}
	}
	stored := *cart
	stored.Items = nil
	r.tables.carts[cart.ID] = stored
	return nil
}

func (r *cartRepository) FindByUser(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	for _, cart := range r.tables.carts {
		if cart.UserID != userID {
			continue
		}
		clone := cart
		clone.Items = r.items(cart.ID)
		return &clone, nil
	}
	return nil, model.ErrCartNotFound
}

func (r *cartRepository) FindItem(_ context.Context, cartID, productID uuid.UUID) (*model.CartItem, error) {
	for _, item := range r.tables.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			clone := item
			return &clone, nil
		}
	}
	return nil, model.ErrCartItemNotFound
}

func (r *cartRepository) FindItemByID(_ context.Context, itemID uuid.UUID) (*model.CartItem, error) {
	item, ok := r.tables.cartItems[itemID]
	if !ok {
		return nil, model.ErrCartItemNotFound
	}
	return &item, nil
}

func (r *cartRepository) CreateItem(_ context.Context, item *model.CartItem) error {
	if _, ok := r.tables.carts[item.CartID]; !ok {
		return model.ErrCartNotFound
	}
	if _, ok := r.tables.products[item.ProductID]; !ok {
		return model.ErrProductNotFound
	}
	for _, existing := range r.tables.cartItems {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			return model.ErrCartItemAlreadyExist
		}
	}
	r.tables.cartItems[item.ID] = *item
	r.tables.track(item.ID)
	return nil
}

func (r *cartRepository) UpdateItem(_ context.Context, item *model.CartItem) error {
	if _, ok := r.tables.cartItems[item.ID]; !ok {
		return model.ErrCartItemNotFound
	}
	r.tables.cartItems[item.ID] = *item
	return nil
}

func (r *cartRepository) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	if _, ok := r.tables.cartItems[itemID]; !ok {
		return model.ErrCartItemNotFound
	}
	delete(r.tables.cartItems, itemID)
	return nil
}

func (r *cartRepository) DeleteItems(_ context.Context, cartID uuid.UUID) error {
	for id, item := range r.tables.cartItems {
		if item.CartID == cartID {
			delete(r.tables.cartItems, id)
		}
	}
	return nil
}

func (r *cartRepository) DeleteItemsByProduct(_ context.Context, productID uuid.UUID) error {
	for id, item := range r.tables.cartItems {
		if item.ProductID == productID {
			delete(r.tables.cartItems, id)
		}
	}
	return nil
}

func (r *cartRepository) items(cartID uuid.UUID) []model.CartItem {
	items := make([]model.CartItem, 0)
	for _, item := range r.tables.cartItems {
		if item.CartID == cartID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return r.tables.seq[items[i].ID] < r.tables.seq[items[j].ID] })
	return items
}
