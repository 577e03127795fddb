package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	InvoiceNumber string
	CustomerName  string
	CustomerDNI   string
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Document      []byte
	CreatedAt     time.Time
}

// InvoiceDocument is everything a renderer needs to produce the billing document.
type InvoiceDocument struct {
	InvoiceNumber string
	OrderNumber   string
	IssuedAt      time.Time
	CustomerName  string
	CustomerDNI   string
	CustomerPhone string
	Lines         []InvoiceLine
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
}

type InvoiceLine struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

func NewInvoiceDocument(invoiceNumber string, order *Order, customerName, customerDNI, customerPhone string, issuedAt time.Time) InvoiceDocument {
	doc := InvoiceDocument{
		InvoiceNumber: invoiceNumber,
		OrderNumber:   order.OrderNumber,
		IssuedAt:      issuedAt,
		CustomerName:  customerName,
		CustomerDNI:   customerDNI,
		CustomerPhone: customerPhone,
		Subtotal:      decimal.Zero,
	}
	for _, item := range order.Items {
		doc.Lines = append(doc.Lines, InvoiceLine{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.TotalPrice,
		})
		doc.Subtotal = doc.Subtotal.Add(item.TotalPrice)
	}
	doc.Tax = TaxOf(doc.Subtotal)
	doc.Total = doc.Subtotal.Add(doc.Tax)
	return doc
}

type InvoiceRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, invoice *Invoice) error
	Find(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// List returns invoices without their documents, newest first.
	List(ctx context.Context, orderID *uuid.UUID) ([]Invoice, error)
	Delete(ctx context.Context, id uuid.UUID) error
	InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error)
}
