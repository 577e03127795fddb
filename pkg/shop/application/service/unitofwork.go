package service

import (
	"context"

	"pcstore/pkg/shop/domain/model"
)

// RepositoryProvider hands out repositories bound to one open transaction.
type RepositoryProvider interface {
	ProductRepository() model.ProductRepository
	CartRepository() model.CartRepository
	OrderRepository() model.OrderRepository
	InvoiceRepository() model.InvoiceRepository
}

// UnitOfWork runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back on an error or a panic. Implementations may call
// fn more than once when the store asks for a retry.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(provider RepositoryProvider) error) error
}
