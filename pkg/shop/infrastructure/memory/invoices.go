package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"pcstore/pkg/shop/domain/model"
)

type invoiceRepository struct {
	tables *tables
}

func (r *invoiceRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *invoiceRepository) Create(_ context.Context, invoice *model.Invoice) error {
	if _, ok := r.tables.orders[invoice.OrderID]; !ok {
		return model.ErrOrderNotFound
	}
	for _, existing := range r.tables.invoices {
		if existing.InvoiceNumber == invoice.InvoiceNumber {
			return model.ErrInvoiceNumberTaken
		}
	}
	r.tables.invoices[invoice.ID] = cloneInvoice(*invoice)
	return nil
}

func (r *invoiceRepository) Find(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	invoice, ok := r.tables.invoices[id]
	if !ok {
		return nil, model.ErrInvoiceNotFound
	}
	clone := cloneInvoice(invoice)
	return &clone, nil
}

func (r *invoiceRepository) List(_ context.Context, orderID *uuid.UUID) ([]model.Invoice, error) {
	invoices := make([]model.Invoice, 0)
	for _, invoice := range r.tables.invoices {
		if orderID != nil && invoice.OrderID != *orderID {
			continue
		}
		invoice.Document = nil
		invoices = append(invoices, invoice)
	}
	sort.Slice(invoices, func(i, j int) bool {
		if !invoices[i].CreatedAt.Equal(invoices[j].CreatedAt) {
			return invoices[i].CreatedAt.After(invoices[j].CreatedAt)
		}
		return invoices[i].InvoiceNumber > invoices[j].InvoiceNumber
	})
	return invoices, nil
}

func (r *invoiceRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.tables.invoices[id]; !ok {
		return model.ErrInvoiceNotFound
	}
	delete(r.tables.invoices, id)
	return nil
}

func (r *invoiceRepository) InvoiceNumberExists(_ context.Context, invoiceNumber string) (bool, error) {
	for _, invoice := range r.tables.invoices {
		if invoice.InvoiceNumber == invoiceNumber {
			return true, nil
		}
	}
	return false, nil
}

func cloneInvoice(i model.Invoice) model.Invoice {
	if i.Document != nil {
		i.Document = append([]byte(nil), i.Document...)
	}
	return i
}
