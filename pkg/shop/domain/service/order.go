package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/domain/model"
)

const maxNumberAttempts = 5

// PricePolicy decides which unit price an order item is recorded with.
type PricePolicy int

const (
	// TrustLineItemPrice keeps the price sent with the line item, usually the
	// tax-inclusive snapshot taken when the product was added to the cart.
	TrustLineItemPrice PricePolicy = iota
	// CatalogPrice recomputes the unit price from the live product plus tax.
	CatalogPrice
)

// MissingProductPolicy decides what happens to a line item whose product no
// longer exists.
type MissingProductPolicy int

const (
	RejectMissingProduct MissingProductPolicy = iota
	SkipMissingProduct
)

type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

type PlaceOrderRequest struct {
	UserID          uuid.UUID
	PaymentMethod   string
	ShippingAddress json.RawMessage
	Notes           string
	Items           []LineItem

	// Optional overrides, generated or derived when empty.
	TrackingNumber string
	TotalAmount    *decimal.Decimal
	Status         model.OrderStatus
}

type OrderOptions struct {
	Numbers              *model.NumberGenerator
	PricePolicy          PricePolicy
	MissingProductPolicy MissingProductPolicy
	Clock                func() time.Time
}

type OrderService interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*model.Order, error)
	// DeleteOrder removes the order and puts its items back in stock. Deleting
	// an unknown order is a no-op.
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, patch model.OrderPatch) (*model.Order, error)
}

func NewOrderService(
	products model.ProductRepository,
	orders model.OrderRepository,
	dispatcher domain.EventDispatcher,
	opts OrderOptions,
) OrderService {
	if opts.Numbers == nil {
		opts.Numbers = model.NewNumberGenerator("", nil, nil)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &orderService{
		products:   products,
		orders:     orders,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

type orderService struct {
	products   model.ProductRepository
	orders     model.OrderRepository
	dispatcher domain.EventDispatcher
	opts       OrderOptions
}

// resolvedLine is a line item matched against the locked product row.
type resolvedLine struct {
	LineItem
	product   *model.Product // nil when the product is gone and skipped
	unitPrice decimal.Decimal

	// stock left right after this line, repeated products share one row
	stockAfter int
}

func (s *orderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*model.Order, error) {
	if err := validatePlaceOrderRequest(req); err != nil {
		return nil, err
	}

	now := s.opts.Clock().UTC()
	orderNumber, err := s.uniqueNumber(ctx, s.opts.Numbers.OrderNumber, now, s.orders.OrderNumberExists, model.ErrOrderNumberTaken)
	if err != nil {
		return nil, err
	}

	trackingNumber := req.TrackingNumber
	if trackingNumber == "" {
		trackingNumber, err = s.uniqueNumber(ctx, s.opts.Numbers.TrackingNumber, now, s.orders.TrackingNumberExists, model.ErrTrackingNumberTaken)
		if err != nil {
			return nil, err
		}
	} else if taken, err := s.orders.TrackingNumberExists(ctx, trackingNumber); err != nil {
		return nil, err
	} else if taken {
		return nil, model.ErrTrackingNumberTaken
	}

	// Every stock check happens before anything is written.
	products, err := s.lockProducts(ctx, lineProductIDs(req.Items))
	if err != nil {
		return nil, err
	}
	lines := make([]resolvedLine, 0, len(req.Items))
	for _, item := range req.Items {
		product, ok := products[item.ProductID]
		if !ok {
			if s.opts.MissingProductPolicy == RejectMissingProduct {
				return nil, model.ErrProductNotFound
			}
			lines = append(lines, resolvedLine{LineItem: item, unitPrice: item.Price})
			continue
		}
		if err := product.Withdraw(item.Quantity); err != nil {
			return nil, err
		}
		line := resolvedLine{LineItem: item, product: product, unitPrice: s.unitPrice(item, product)}
		if product.TracksStock() {
			line.stockAfter = *product.Stock
		}
		lines = append(lines, line)
	}

	orderID, err := s.orders.NextID()
	if err != nil {
		return nil, err
	}
	order := &model.Order{
		ID:              orderID,
		OrderNumber:     orderNumber,
		UserID:          req.UserID,
		TotalAmount:     s.totalAmount(req, lines),
		Status:          req.Status,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		TrackingNumber:  trackingNumber,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if order.Status == "" {
		order.Status = model.StatusForPaymentMethod(req.PaymentMethod)
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	var events []domain.Event
	for _, line := range lines {
		if line.product == nil {
			events = append(events, model.OrderItemSkipped{OrderID: orderID, ProductID: line.ProductID, Quantity: line.Quantity})
			continue
		}
		itemID, err := s.orders.NextID()
		if err != nil {
			return nil, err
		}
		item := model.NewOrderItem(itemID, orderID, line.product, line.Quantity, line.unitPrice, now)
		if err := s.orders.AddItem(ctx, &item); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
		if line.product.TracksStock() {
			events = append(events, model.ProductStockChanged{
				ProductID:    line.product.ID,
				ChangeAmount: -line.Quantity,
				NewQuantity:  line.stockAfter,
			})
		}
	}

	for _, id := range sortedIDs(products) {
		product := products[id]
		if !product.TracksStock() {
			continue
		}
		product.UpdatedAt = now
		if err := s.products.Update(ctx, product); err != nil {
			return nil, err
		}
	}

	events = append(events, model.OrderPlaced{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		UserID:      req.UserID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
	})
	s.dispatch(events...)
	return order, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.FindForUpdate(ctx, orderID)
	if errors.Is(err, model.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	productIDs := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.lockProducts(ctx, productIDs)
	if err != nil {
		return err
	}

	var events []domain.Event
	for _, item := range order.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.TracksStock() {
			continue
		}
		product.Restock(item.Quantity)
		events = append(events, model.ProductStockChanged{
			ProductID:    product.ID,
			ChangeAmount: item.Quantity,
			NewQuantity:  *product.Stock,
		})
	}

	now := s.opts.Clock().UTC()
	for _, id := range sortedIDs(products) {
		product := products[id]
		if !product.TracksStock() {
			continue
		}
		product.UpdatedAt = now
		if err := s.products.Update(ctx, product); err != nil {
			return err
		}
	}

	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}

	events = append(events, model.OrderDeleted{OrderID: orderID, OrderNumber: order.OrderNumber})
	s.dispatch(events...)
	return nil
}

func (s *orderService) UpdateOrder(ctx context.Context, orderID uuid.UUID, patch model.OrderPatch) (*model.Order, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	order, err := s.orders.FindForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if patch.TrackingNumber != nil && *patch.TrackingNumber != order.TrackingNumber {
		taken, err := s.orders.TrackingNumberExists(ctx, *patch.TrackingNumber)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, model.ErrTrackingNumberTaken
		}
	}

	order.Apply(patch)
	order.UpdatedAt = s.opts.Clock().UTC()
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, err
	}

	s.dispatch(model.OrderUpdated{OrderID: order.ID, Status: order.Status})
	return order, nil
}

func (s *orderService) unitPrice(item LineItem, product *model.Product) decimal.Decimal {
	if s.opts.PricePolicy == CatalogPrice {
		return model.PriceWithTax(product.Price)
	}
	return item.Price
}

// totalAmount sums the supplied line items unless the caller fixed a non-zero
// total. Skipped lines still count with their own price, they have no catalog
// price.
func (s *orderService) totalAmount(req PlaceOrderRequest, lines []resolvedLine) decimal.Decimal {
	if req.TotalAmount != nil && !req.TotalAmount.IsZero() {
		return *req.TotalAmount
	}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(model.LineTotal(line.unitPrice, line.Quantity))
	}
	return total
}

// lockProducts locks each distinct product once, in a stable order so that
// concurrent orders over the same products do not deadlock. Missing products
// are left out of the result.
func (s *orderService) lockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	sorted := append([]uuid.UUID(nil), ids...)
	sortIDs(sorted)

	products := make(map[uuid.UUID]*model.Product, len(sorted))
	missing := make(map[uuid.UUID]bool)
	for _, id := range sorted {
		if _, ok := products[id]; ok || missing[id] {
			continue
		}
		product, err := s.products.FindForUpdate(ctx, id)
		if errors.Is(err, model.ErrProductNotFound) {
			missing[id] = true
			continue
		}
		if err != nil {
			return nil, err
		}
		products[id] = product
	}
	return products, nil
}

func (s *orderService) uniqueNumber(
	ctx context.Context,
	generate func(time.Time) (string, error),
	now time.Time,
	exists func(context.Context, string) (bool, error),
	errTaken error,
) (string, error) {
	for i := 0; i < maxNumberAttempts; i++ {
		number, err := generate(now)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", errTaken
}

func (s *orderService) dispatch(events ...domain.Event) {
	for _, event := range events {
		_ = s.dispatcher.Dispatch(event)
	}
}

func validatePlaceOrderRequest(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return model.ErrEmptyOrder
	}
	if req.UserID == uuid.Nil {
		return model.NewValidationError("user id is required")
	}
	if req.TotalAmount != nil && req.TotalAmount.IsNegative() {
		return model.NewValidationError("total amount cannot be negative")
	}
	if req.TotalAmount != nil && !model.WholeCents(*req.TotalAmount) {
		return model.ErrSubCentAmount
	}
	if req.ShippingAddress != nil && !json.Valid(req.ShippingAddress) {
		return model.NewValidationError("shipping address must be valid JSON")
	}
	for _, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return model.NewValidationError("product id is required")
		}
		if item.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
		if item.Price.IsNegative() {
			return model.ErrNegativePrice
		}
		if !model.WholeCents(item.Price) {
			return model.ErrSubCentAmount
		}
	}
	return nil
}

func lineProductIDs(items []LineItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func sortedIDs(products map[uuid.UUID]*model.Product) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(products))
	for id := range products {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
}
