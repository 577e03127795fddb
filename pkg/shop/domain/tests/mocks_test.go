package tests

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/domain/model"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(v int) *int { return &v }

// zeroReader makes every generated number identical.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func addProduct(t *testing.T, repo *mockProductRepository, code, price string, stock *int) *model.Product {
	t.Helper()
	id, _ := repo.NextID()
	product, err := model.NewProduct(id, model.NewProductParams{
		Code:  code,
		Name:  "Product " + code,
		Price: dec(price),
		Stock: stock,
	}, fixedNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), product))
	return product
}

type mockProductRepository struct {
	store   map[uuid.UUID]*model.Product
	locked  []uuid.UUID
	updates int
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{store: make(map[uuid.UUID]*model.Product)}
}

func cloneProduct(p *model.Product) *model.Product {
	clone := *p
	if p.Stock != nil {
		stock := *p.Stock
		clone.Stock = &stock
	}
	return &clone
}

func (m *mockProductRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }
func (m *mockProductRepository) Create(_ context.Context, p *model.Product) error {
	for _, existing := range m.store {
		if existing.Code == p.Code {
			return model.ErrProductCodeTaken
		}
	}
	m.store[p.ID] = cloneProduct(p)
	return nil
}
func (m *mockProductRepository) Update(_ context.Context, p *model.Product) error {
	if _, ok := m.store[p.ID]; !ok {
		return model.ErrProductNotFound
	}
	m.updates++
	m.store[p.ID] = cloneProduct(p)
	return nil
}
func (m *mockProductRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return model.ErrProductNotFound
	}
	delete(m.store, id)
	return nil
}
func (m *mockProductRepository) Find(_ context.Context, id uuid.UUID) (*model.Product, error) {
	if p, ok := m.store[id]; ok {
		return cloneProduct(p), nil
	}
	return nil, model.ErrProductNotFound
}
func (m *mockProductRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	m.locked = append(m.locked, id)
	return m.Find(ctx, id)
}
func (m *mockProductRepository) List(_ context.Context, filter model.ProductFilter) ([]model.Product, error) {
	var products []model.Product
	for _, p := range m.store {
		if filter.Matches(*p) {
			products = append(products, *cloneProduct(p))
		}
	}
	return products, nil
}
func (m *mockProductRepository) Count(context.Context) (int, error) { return len(m.store), nil }
func (m *mockProductRepository) stock(t *testing.T, id uuid.UUID) *int {
	t.Helper()
	p, ok := m.store[id]
	require.True(t, ok)
	return p.Stock
}

type mockOrderRepository struct {
	store map[uuid.UUID]*model.Order
	items map[uuid.UUID][]model.OrderItem
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{
		store: make(map[uuid.UUID]*model.Order),
		items: make(map[uuid.UUID][]model.OrderItem),
	}
}

func (m *mockOrderRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }
func (m *mockOrderRepository) Create(_ context.Context, o *model.Order) error {
	clone := *o
	clone.Items = nil
	m.store[o.ID] = &clone
	return nil
}
func (m *mockOrderRepository) AddItem(_ context.Context, item *model.OrderItem) error {
	if _, ok := m.store[item.OrderID]; !ok {
		return model.ErrOrderNotFound
	}
	m.items[item.OrderID] = append(m.items[item.OrderID], *item)
	return nil
}
func (m *mockOrderRepository) Update(_ context.Context, o *model.Order) error {
	if _, ok := m.store[o.ID]; !ok {
		return model.ErrOrderNotFound
	}
	clone := *o
	clone.Items = nil
	m.store[o.ID] = &clone
	return nil
}
func (m *mockOrderRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return model.ErrOrderNotFound
	}
	delete(m.store, id)
	delete(m.items, id)
	return nil
}
func (m *mockOrderRepository) Find(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := m.store[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	clone := *o
	clone.Items = append([]model.OrderItem(nil), m.items[id]...)
	return &clone, nil
}
func (m *mockOrderRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return m.Find(ctx, id)
}
func (m *mockOrderRepository) List(_ context.Context, _ model.OrderFilter) ([]model.Order, error) {
	var orders []model.Order
	for _, o := range m.store {
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].OrderNumber < orders[j].OrderNumber })
	return orders, nil
}
func (m *mockOrderRepository) OrderNumberExists(_ context.Context, number string) (bool, error) {
	for _, o := range m.store {
		if o.OrderNumber == number {
			return true, nil
		}
	}
	return false, nil
}
func (m *mockOrderRepository) TrackingNumberExists(_ context.Context, number string) (bool, error) {
	for _, o := range m.store {
		if o.TrackingNumber == number {
			return true, nil
		}
	}
	return false, nil
}
func (m *mockOrderRepository) ProductReferenced(_ context.Context, productID uuid.UUID) (bool, error) {
	for _, items := range m.items {
		for _, item := range items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}
func (m *mockOrderRepository) Count(context.Context) (int, error) { return len(m.store), nil }
func (m *mockOrderRepository) Revenue(context.Context) (decimal.Decimal, error) {
	revenue := decimal.Zero
	for _, o := range m.store {
		revenue = revenue.Add(o.TotalAmount)
	}
	return revenue, nil
}

type mockCartRepository struct {
	carts map[uuid.UUID]*model.Cart
	items map[uuid.UUID]*model.CartItem
	order []uuid.UUID
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{
		carts: make(map[uuid.UUID]*model.Cart),
		items: make(map[uuid.UUID]*model.CartItem),
	}
}

func (m *mockCartRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }
func (m *mockCartRepository) Create(_ context.Context, cart *model.Cart) error {
	for _, existing := range m.carts {
		if existing.UserID == cart.UserID {
			return model.ErrCartAlreadyExists
		}
	}
	clone := *cart
	m.carts[cart.ID] = &clone
	return nil
}
func (m *mockCartRepository) FindByUser(_ context.Context, userID uuid.UUID) (*model.Cart, error) {
	for _, cart := range m.carts {
		if cart.UserID != userID {
			continue
		}
		clone := *cart
		clone.Items = nil
		for _, id := range m.order {
			if item, ok := m.items[id]; ok && item.CartID == cart.ID {
				clone.Items = append(clone.Items, *item)
			}
		}
		return &clone, nil
	}
	return nil, model.ErrCartNotFound
}
func (m *mockCartRepository) FindItem(_ context.Context, cartID, productID uuid.UUID) (*model.CartItem, error) {
	for _, item := range m.items {
		if item.CartID == cartID && item.ProductID == productID {
			clone := *item
			return &clone, nil
		}
	}
	return nil, model.ErrCartItemNotFound
}
func (m *mockCartRepository) FindItemByID(_ context.Context, itemID uuid.UUID) (*model.CartItem, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, model.ErrCartItemNotFound
	}
	clone := *item
	return &clone, nil
}
func (m *mockCartRepository) CreateItem(_ context.Context, item *model.CartItem) error {
	clone := *item
	m.items[item.ID] = &clone
	m.order = append(m.order, item.ID)
	return nil
}
func (m *mockCartRepository) UpdateItem(_ context.Context, item *model.CartItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return model.ErrCartItemNotFound
	}
	clone := *item
	m.items[item.ID] = &clone
	return nil
}
func (m *mockCartRepository) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	if _, ok := m.items[itemID]; !ok {
		return model.ErrCartItemNotFound
	}
	delete(m.items, itemID)
	return nil
}
func (m *mockCartRepository) DeleteItems(_ context.Context, cartID uuid.UUID) error {
	for id, item := range m.items {
		if item.CartID == cartID {
			delete(m.items, id)
		}
	}
	return nil
}
func (m *mockCartRepository) DeleteItemsByProduct(_ context.Context, productID uuid.UUID) error {
	for id, item := range m.items {
		if item.ProductID == productID {
			delete(m.items, id)
		}
	}
	return nil
}

type mockInvoiceRepository struct {
	store map[uuid.UUID]*model.Invoice
}

func newMockInvoiceRepository() *mockInvoiceRepository {
	return &mockInvoiceRepository{store: make(map[uuid.UUID]*model.Invoice)}
}

func (m *mockInvoiceRepository) NextID() (uuid.UUID, error) { return uuid.New(), nil }
func (m *mockInvoiceRepository) Create(_ context.Context, invoice *model.Invoice) error {
	clone := *invoice
	m.store[invoice.ID] = &clone
	return nil
}
func (m *mockInvoiceRepository) Find(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	invoice, ok := m.store[id]
	if !ok {
		return nil, model.ErrInvoiceNotFound
	}
	clone := *invoice
	return &clone, nil
}
func (m *mockInvoiceRepository) List(_ context.Context, orderID *uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	for _, invoice := range m.store {
		if orderID == nil || invoice.OrderID == *orderID {
			invoices = append(invoices, *invoice)
		}
	}
	return invoices, nil
}
func (m *mockInvoiceRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return model.ErrInvoiceNotFound
	}
	delete(m.store, id)
	return nil
}
func (m *mockInvoiceRepository) InvoiceNumberExists(_ context.Context, number string) (bool, error) {
	for _, invoice := range m.store {
		if invoice.InvoiceNumber == number {
			return true, nil
		}
	}
	return false, nil
}

type mockRenderer struct {
	docs []model.InvoiceDocument
}

func (m *mockRenderer) Render(doc model.InvoiceDocument) ([]byte, error) {
	m.docs = append(m.docs, doc)
	return []byte(strings.Join([]string{doc.InvoiceNumber, doc.Total.StringFixed(2)}, " ")), nil
}

type mockEventDispatcher struct {
	events []domain.Event
}

func (m *mockEventDispatcher) Dispatch(event domain.Event) error {
	m.events = append(m.events, event)
	return nil
}
func (m *mockEventDispatcher) Reset() {
	m.events = nil
}
func (m *mockEventDispatcher) types() []string {
	types := make([]string, 0, len(m.events))
	for _, event := range m.events {
		types = append(types, event.Type())
	}
	return types
}
