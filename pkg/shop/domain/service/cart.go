package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/domain/model"
)

type CartService interface {
	// GetCart returns the user's cart, creating it on first use.
	GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	// AddToCart adds quantity units on top of what the cart already holds and
	// refreshes the item price from the catalog.
	AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error)
	// SetItemQuantity replaces the quantity of an existing item.
	SetItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

func NewCartService(carts model.CartRepository, products model.ProductRepository, dispatcher domain.EventDispatcher, clock func() time.Time) CartService {
	if clock == nil {
		clock = time.Now
	}
	return &cartService{carts: carts, products: products, dispatcher: dispatcher, clock: clock}
}

type cartService struct {
	carts      model.CartRepository
	products   model.ProductRepository
	dispatcher domain.EventDispatcher
	clock      func() time.Time
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	return s.cartForUser(ctx, userID)
}

func (s *cartService) AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	if quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	cart, err := s.cartForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.carts.FindItem(ctx, cart.ID, productID)
	if err != nil && !errors.Is(err, model.ErrCartItemNotFound) {
		return nil, err
	}

	newQuantity := quantity
	if item != nil {
		newQuantity += item.Quantity
	}

	product, err := s.reserveCheck(ctx, productID, newQuantity)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	price := model.PriceWithTax(product.Price)
	if item != nil {
		item.Quantity = newQuantity
		item.Price = price
		item.UpdatedAt = now
		if err := s.carts.UpdateItem(ctx, item); err != nil {
			return nil, err
		}
	} else {
		itemID, err := s.carts.NextID()
		if err != nil {
			return nil, err
		}
		item = &model.CartItem{
			ID:        itemID,
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			Price:     price,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.carts.CreateItem(ctx, item); err != nil {
			return nil, err
		}
	}

	_ = s.dispatcher.Dispatch(model.CartItemAdded{CartID: cart.ID, ItemID: item.ID, ProductID: productID, Quantity: quantity})
	return item, nil
}

func (s *cartService) SetItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.CartItem, error) {
	if quantity <= 0 {
		return nil, model.ErrInvalidQuantity
	}

	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.reserveCheck(ctx, item.ProductID, quantity)
	if err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.Price = model.PriceWithTax(product.Price)
	item.UpdatedAt = s.clock().UTC()
	if err := s.carts.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	return s.carts.DeleteItem(ctx, item.ID)
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, model.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.carts.DeleteItems(ctx, cart.ID)
}

// reserveCheck verifies that quantity units of the product may sit in a cart.
// Products without tracked stock cannot be carted at all.
func (s *cartService) reserveCheck(ctx context.Context, productID uuid.UUID, quantity int) (*model.Product, error) {
	product, err := s.products.FindForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.TracksStock() {
		return nil, model.ErrStockUndefined
	}
	if quantity > *product.Stock {
		return nil, &model.OutOfStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   quantity,
			Remaining:   *product.Stock,
		}
	}
	return product, nil
}

func (s *cartService) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*model.CartItem, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, model.ErrCartNotFound) {
		return nil, model.ErrCartItemNotFound
	}
	if err != nil {
		return nil, err
	}
	item, err := s.carts.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.CartID != cart.ID {
		return nil, model.ErrCartItemNotFound
	}
	return item, nil
}

func (s *cartService) cartForUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	if userID == uuid.Nil {
		return nil, model.NewValidationError("user id is required")
	}
	cart, err := s.carts.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, model.ErrCartNotFound) {
		return nil, err
	}

	cartID, err := s.carts.NextID()
	if err != nil {
		return nil, err
	}
	now := s.clock().UTC()
	cart = &model.Cart{ID: cartID, UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}
