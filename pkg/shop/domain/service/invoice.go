package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/domain/model"
)

// DocumentRenderer turns computed invoice data into the stored document.
type DocumentRenderer interface {
	Render(doc model.InvoiceDocument) ([]byte, error)
}

type InvoiceService interface {
	CreateInvoice(ctx context.Context, orderID uuid.UUID, customerName, customerDNI string) (*model.Invoice, error)
	DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error
}

func NewInvoiceService(
	invoices model.InvoiceRepository,
	orders model.OrderRepository,
	renderer DocumentRenderer,
	dispatcher domain.EventDispatcher,
	numbers *model.NumberGenerator,
	clock func() time.Time,
) InvoiceService {
	if numbers == nil {
		numbers = model.NewNumberGenerator("", nil, nil)
	}
	if clock == nil {
		clock = time.Now
	}
	return &invoiceService{
		invoices:   invoices,
		orders:     orders,
		renderer:   renderer,
		dispatcher: dispatcher,
		numbers:    numbers,
		clock:      clock,
	}
}

type invoiceService struct {
	invoices   model.InvoiceRepository
	orders     model.OrderRepository
	renderer   DocumentRenderer
	dispatcher domain.EventDispatcher
	numbers    *model.NumberGenerator
	clock      func() time.Time
}

func (s *invoiceService) CreateInvoice(ctx context.Context, orderID uuid.UUID, customerName, customerDNI string) (*model.Invoice, error) {
	customerName = strings.TrimSpace(customerName)
	customerDNI = strings.TrimSpace(customerDNI)
	if orderID == uuid.Nil || customerName == "" || customerDNI == "" {
		return nil, model.NewValidationError("order id, customer name and customer dni are required")
	}

	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	invoiceNumber, err := s.invoiceNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	doc := model.NewInvoiceDocument(invoiceNumber, order, customerName, customerDNI, shippingPhone(order.ShippingAddress), now)
	rendered, err := s.renderer.Render(doc)
	if err != nil {
		return nil, err
	}

	invoiceID, err := s.invoices.NextID()
	if err != nil {
		return nil, err
	}
	invoice := &model.Invoice{
		ID:            invoiceID,
		OrderID:       orderID,
		InvoiceNumber: invoiceNumber,
		CustomerName:  customerName,
		CustomerDNI:   customerDNI,
		Subtotal:      doc.Subtotal,
		Tax:           doc.Tax,
		Total:         doc.Total,
		Document:      rendered,
		CreatedAt:     now,
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.InvoiceIssued{
		InvoiceID:     invoiceID,
		OrderID:       orderID,
		InvoiceNumber: invoiceNumber,
		Total:         invoice.Total,
	})
	return invoice, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	if _, err := s.invoices.Find(ctx, invoiceID); err != nil {
		return err
	}
	return s.invoices.Delete(ctx, invoiceID)
}

func (s *invoiceService) invoiceNumber(ctx context.Context, now time.Time) (string, error) {
	for i := 0; i < maxNumberAttempts; i++ {
		number, err := s.numbers.InvoiceNumber(now)
		if err != nil {
			return "", err
		}
		taken, err := s.invoices.InvoiceNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", model.ErrInvoiceNumberTaken
}

func shippingPhone(address json.RawMessage) string {
	var fields struct {
		Phone string `json:"phone"`
	}
	if len(address) == 0 || json.Unmarshal(address, &fields) != nil {
		return ""
	}
	return fields.Phone
}
