package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/domain/model"
	domainservice "pcstore/pkg/shop/domain/service"
)

type InvoiceService interface {
	CreateInvoice(ctx context.Context, orderID uuid.UUID, customerName, customerDNI string) (*model.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*model.Invoice, error)
	ListInvoices(ctx context.Context, orderID *uuid.UUID) ([]model.Invoice, error)
	DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error
}

func NewInvoiceService(
	uow UnitOfWork,
	renderer domainservice.DocumentRenderer,
	dispatcher domain.EventDispatcher,
	numbers *model.NumberGenerator,
	clock func() time.Time,
) InvoiceService {
	return &invoiceService{uow: uow, renderer: renderer, dispatcher: dispatcher, numbers: numbers, clock: clock}
}

type invoiceService struct {
	uow        UnitOfWork
	renderer   domainservice.DocumentRenderer
	dispatcher domain.EventDispatcher
	numbers    *model.NumberGenerator
	clock      func() time.Time
}

func (s *invoiceService) CreateInvoice(ctx context.Context, orderID uuid.UUID, customerName, customerDNI string) (*model.Invoice, error) {
	var invoice *model.Invoice
	err := s.executeInTransaction(ctx, func(svc domainservice.InvoiceService) (err error) {
		invoice, err = svc.CreateInvoice(ctx, orderID, customerName, customerDNI)
		return err
	})
	return invoice, err
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*model.Invoice, error) {
	var invoice *model.Invoice
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) (err error) {
		invoice, err = provider.InvoiceRepository().Find(ctx, invoiceID)
		return err
	})
	return invoice, err
}

func (s *invoiceService) ListInvoices(ctx context.Context, orderID *uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) (err error) {
		invoices, err = provider.InvoiceRepository().List(ctx, orderID)
		return err
	})
	return invoices, err
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	return s.executeInTransaction(ctx, func(svc domainservice.InvoiceService) error {
		return svc.DeleteInvoice(ctx, invoiceID)
	})
}

func (s *invoiceService) executeInTransaction(ctx context.Context, action func(svc domainservice.InvoiceService) error) error {
	var events *eventBuffer
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) error {
		events = &eventBuffer{}
		svc := domainservice.NewInvoiceService(
			provider.InvoiceRepository(),
			provider.OrderRepository(),
			s.renderer,
			events,
			s.numbers,
			s.clock,
		)
		return action(svc)
	})
	if err != nil {
		return err
	}
	dispatchEvents(s.dispatcher, events)
	return nil
}
