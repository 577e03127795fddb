package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// Order is immutable after placement except for the fields in OrderPatch.
type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	UserID          uuid.UUID
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	PaymentMethod   string
	ShippingAddress json.RawMessage
	TrackingNumber  string
	Notes           string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem snapshots the product as it was when the order was placed.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductCode string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	CreatedAt   time.Time
}

func NewOrderItem(id, orderID uuid.UUID, product *Product, quantity int, unitPrice decimal.Decimal, now time.Time) OrderItem {
	return OrderItem{
		ID:          id,
		OrderID:     orderID,
		ProductID:   product.ID,
		ProductCode: product.Code,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  LineTotal(unitPrice, quantity),
		CreatedAt:   now,
	}
}

func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

// OrderPatch lists the order fields that may change after placement.
type OrderPatch struct {
	TotalAmount     *decimal.Decimal
	Status          *OrderStatus
	PaymentMethod   *string
	TrackingNumber  *string
	ShippingAddress json.RawMessage
	Notes           *string
}

func (p OrderPatch) Validate() error {
	if p.TotalAmount != nil && p.TotalAmount.IsNegative() {
		return NewValidationError("total amount cannot be negative")
	}
	if p.TotalAmount != nil && !WholeCents(*p.TotalAmount) {
		return ErrSubCentAmount
	}
	if p.Status != nil && *p.Status == "" {
		return NewValidationError("status cannot be empty")
	}
	if p.TrackingNumber != nil && *p.TrackingNumber == "" {
		return NewValidationError("tracking number cannot be empty")
	}
	if p.ShippingAddress != nil && !json.Valid(p.ShippingAddress) {
		return NewValidationError("shipping address must be valid JSON")
	}
	return nil
}

func (o *Order) Apply(patch OrderPatch) {
	if patch.TotalAmount != nil {
		o.TotalAmount = *patch.TotalAmount
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.PaymentMethod != nil {
		o.PaymentMethod = *patch.PaymentMethod
	}
	if patch.TrackingNumber != nil {
		o.TrackingNumber = *patch.TrackingNumber
	}
	if patch.ShippingAddress != nil {
		o.ShippingAddress = append(json.RawMessage(nil), patch.ShippingAddress...)
	}
	if patch.Notes != nil {
		o.Notes = *patch.Notes
	}
}

type OrderFilter struct {
	Search        string
	Status        OrderStatus
	PaymentMethod string
	UserID        *uuid.UUID
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

type OrderRepository interface {
	NextID() (uuid.UUID, error)
	// Create stores the order row only, items are added with AddItem.
	Create(ctx context.Context, order *Order) error
	AddItem(ctx context.Context, item *OrderItem) error
	Update(ctx context.Context, order *Order) error
	// Delete removes the order together with its items and invoices.
	Delete(ctx context.Context, id uuid.UUID) error
	// Find returns the order with its items loaded.
	Find(ctx context.Context, id uuid.UUID) (*Order, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]Order, error)

	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
	TrackingNumberExists(ctx context.Context, trackingNumber string) (bool, error)
	ProductReferenced(ctx context.Context, productID uuid.UUID) (bool, error)

	Count(ctx context.Context) (int, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
}
