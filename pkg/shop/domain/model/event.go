package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderPlaced struct {
	OrderID     uuid.UUID
	OrderNumber string
	UserID      uuid.UUID
	TotalAmount decimal.Decimal
	Status      OrderStatus
}

func (e OrderPlaced) Type() string { return "OrderPlaced" }

type OrderItemSkipped struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

func (e OrderItemSkipped) Type() string { return "OrderItemSkipped" }

type OrderUpdated struct {
	OrderID uuid.UUID
	Status  OrderStatus
}

func (e OrderUpdated) Type() string { return "OrderUpdated" }

type OrderDeleted struct {
	OrderID     uuid.UUID
	OrderNumber string
}

func (e OrderDeleted) Type() string { return "OrderDeleted" }

type ProductCreated struct {
	ProductID uuid.UUID
	Code      string
}

func (e ProductCreated) Type() string { return "ProductCreated" }

type ProductDeleted struct {
	ProductID uuid.UUID
}

func (e ProductDeleted) Type() string { return "ProductDeleted" }

type ProductStockChanged struct {
	ProductID    uuid.UUID
	ChangeAmount int // positive on restock, negative on sale
	NewQuantity  int
}

func (e ProductStockChanged) Type() string { return "ProductStockChanged" }

type CartItemAdded struct {
	CartID    uuid.UUID
	ItemID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

func (e CartItemAdded) Type() string { return "CartItemAdded" }

type InvoiceIssued struct {
	InvoiceID     uuid.UUID
	OrderID       uuid.UUID
	InvoiceNumber string
	Total         decimal.Decimal
}

func (e InvoiceIssued) Type() string { return "InvoiceIssued" }
