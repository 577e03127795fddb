package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pcstore/pkg/shop/application/service"
	"pcstore/pkg/shop/domain/model"
)

// Store keeps every table in process memory. It is used for local runs and
// tests, transactions are serialized by a single store-wide lock.
type Store struct {
	mu     sync.Mutex
	tables *tables
}

type tables struct {
	products   map[uuid.UUID]model.Product
	carts      map[uuid.UUID]model.Cart
	cartItems  map[uuid.UUID]model.CartItem
	orders     map[uuid.UUID]model.Order
	orderItems map[uuid.UUID]model.OrderItem
	invoices   map[uuid.UUID]model.Invoice

	// insertion order of cart and order items
	seq     map[uuid.UUID]int
	nextSeq int
}

func NewStore() *Store {
	return &Store{tables: newTables()}
}

func newTables() *tables {
	return &tables{
		products:   make(map[uuid.UUID]model.Product),
		carts:      make(map[uuid.UUID]model.Cart),
		cartItems:  make(map[uuid.UUID]model.CartItem),
		orders:     make(map[uuid.UUID]model.Order),
		orderItems: make(map[uuid.UUID]model.OrderItem),
		invoices:   make(map[uuid.UUID]model.Invoice),
		seq:        make(map[uuid.UUID]int),
	}
}

// clone copies every row so a failed transaction can be thrown away.
func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.products {
		c.products[k] = cloneProduct(v)
	}
	for k, v := range t.carts {
		c.carts[k] = v
	}
	for k, v := range t.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range t.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range t.orderItems {
		c.orderItems[k] = v
	}
	for k, v := range t.invoices {
		c.invoices[k] = cloneInvoice(v)
	}
	for k, v := range t.seq {
		c.seq[k] = v
	}
	c.nextSeq = t.nextSeq
	return c
}

// UnitOfWork gives each transaction a private copy of the tables and swaps
// it in on commit.
type UnitOfWork struct {
	store *Store
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

var _ service.UnitOfWork = (*UnitOfWork)(nil)

func (u *UnitOfWork) Execute(ctx context.Context, fn func(provider service.RepositoryProvider) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := u.store.tables.clone()
	if err := fn(&provider{tables: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.store.tables = working
	return nil
}

func (t *tables) track(id uuid.UUID) {
	t.nextSeq++
	t.seq[id] = t.nextSeq
}

type provider struct {
	tables *tables
}

func (p *provider) ProductRepository() model.ProductRepository {
	return &productRepository{tables: p.tables}
}

func (p *provider) CartRepository() model.CartRepository {
	return &cartRepository{tables: p.tables}
}

func (p *provider) OrderRepository() model.OrderRepository {
	return &orderRepository{tables: p.tables}
}

func (p *provider) InvoiceRepository() model.InvoiceRepository {
	return &invoiceRepository{tables: p.tables}
}
