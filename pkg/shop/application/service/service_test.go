package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/application/service"
	"pcstore/pkg/shop/domain/model"
	domainservice "pcstore/pkg/shop/domain/service"
	"pcstore/pkg/shop/infrastructure/memory"
)

var errBoom = errors.New("boom")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(v int) *int { return &v }

type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (d *recordingDispatcher) Dispatch(event domain.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]string, 0, len(d.events))
	for _, event := range d.events {
		types = append(types, event.Type())
	}
	return types
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type fixture struct {
	uow        service.UnitOfWork
	dispatcher *recordingDispatcher
	clock      *testClock
	catalog    service.CatalogService
	carts      service.CartService
	orders     service.OrderService
	invoices   service.InvoiceService
	stats      service.StatsService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWith(t, memory.NewUnitOfWork(memory.NewStore()))
}

func setupWith(t *testing.T, uow service.UnitOfWork) *fixture {
	t.Helper()
	f := &fixture{
		uow:        uow,
		dispatcher: &recordingDispatcher{},
		clock:      &testClock{now: time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)},
	}
	numbers := model.NewNumberGenerator("", time.UTC, nil)
	f.catalog = service.NewCatalogService(uow, f.dispatcher, f.clock.Now)
	f.carts = service.NewCartService(uow, f.dispatcher, f.clock.Now)
	f.orders = service.NewOrderService(uow, f.dispatcher, domainservice.OrderOptions{Numbers: numbers, Clock: f.clock.Now})
	f.invoices = service.NewInvoiceService(uow, textRenderer{}, f.dispatcher, numbers, f.clock.Now)
	f.stats = service.NewStatsService(uow)
	return f
}

func (f *fixture) product(t *testing.T, code, price string, stock *int) *model.Product {
	t.Helper()
	product, err := f.catalog.CreateProduct(context.Background(), model.NewProductParams{
		Code:  code,
		Name:  "Product " + code,
		Price: dec(price),
		Stock: stock,
	})
	require.NoError(t, err)
	return product
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	product, err := f.catalog.GetProduct(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, product.Stock)
	return *product.Stock
}

type textRenderer struct{}

func (textRenderer) Render(doc model.InvoiceDocument) ([]byte, error) {
	return []byte(doc.InvoiceNumber), nil
}

// faultyUnitOfWork wraps the repositories handed to every transaction.
type faultyUnitOfWork struct {
	service.UnitOfWork
	wrap func(service.RepositoryProvider) service.RepositoryProvider
}

func (u faultyUnitOfWork) Execute(ctx context.Context, fn func(provider service.RepositoryProvider) error) error {
	return u.UnitOfWork.Execute(ctx, func(provider service.RepositoryProvider) error {
		return fn(u.wrap(provider))
	})
}

type failingProductUpdates struct {
	service.RepositoryProvider
}

func (p failingProductUpdates) ProductRepository() model.ProductRepository {
	return failingProductRepository{ProductRepository: p.RepositoryProvider.ProductRepository()}
}

type failingProductRepository struct {
	model.ProductRepository
}

func (r failingProductRepository) Update(context.Context, *model.Product) error {
	return errBoom
}

func TestPlaceOrderRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	healthy := setupWith(t, memory.NewUnitOfWork(store))
	cpu := healthy.product(t, "CPU-1", "100.00", intPtr(10))

	broken := setupWith(t, faultyUnitOfWork{
		UnitOfWork: memory.NewUnitOfWork(store),
		wrap: func(p service.RepositoryProvider) service.RepositoryProvider {
			return failingProductUpdates{RepositoryProvider: p}
		},
	})

	_, err := broken.orders.PlaceOrder(ctx, domainservice.PlaceOrderRequest{
		UserID: uuid.New(),
		Items:  []domainservice.LineItem{{ProductID: cpu.ID, Quantity: 2, Price: dec("118.00")}},
	})
	require.ErrorIs(t, err, errBoom)

	orders, err := healthy.orders.ListOrders(ctx, model.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 10, healthy.stock(t, cpu.ID))
	assert.Empty(t, broken.dispatcher.types())
}

func TestPlaceOrderPublishesEventsAfterCommit(t *testing.T) {
	f := setup(t)
	cpu := f.product(t, "CPU-1", "100.00", intPtr(10))
	f.dispatcher.reset()

	_, err := f.orders.PlaceOrder(context.Background(), domainservice.PlaceOrderRequest{
		UserID: uuid.New(),
		Items:  []domainservice.LineItem{{ProductID: cpu.ID, Quantity: 20, Price: dec("118.00")}},
	})
	require.ErrorIs(t, err, model.ErrOutOfStock)
	assert.Empty(t, f.dispatcher.types())

	_, err = f.orders.PlaceOrder(context.Background(), domainservice.PlaceOrderRequest{
		UserID: uuid.New(),
		Items:  []domainservice.LineItem{{ProductID: cpu.ID, Quantity: 1, Price: dec("118.00")}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ProductStockChanged", "OrderPlaced"}, f.dispatcher.types())
}

func TestConcurrentPlacementsNeverOversell(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	f := setup(t)
	gpu := f.product(t, "GPU-1", "1500.00", intPtr(10))

	const buyers = 25
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		placed     int
		outOfStock int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.PlaceOrder(ctx, domainservice.PlaceOrderRequest{
				UserID: uuid.New(),
				Items:  []domainservice.LineItem{{ProductID: gpu.ID, Quantity: 1, Price: dec("1770.00")}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case errors.Is(err, model.ErrOutOfStock):
				outOfStock++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, placed)
	assert.Equal(t, buyers-10, outOfStock)
	assert.Equal(t, 0, f.stock(t, gpu.ID))

	stats, err := f.stats.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalOrders)
	assert.True(t, dec("17700.00").Equal(stats.TotalRevenue), stats.TotalRevenue.String())
}

func TestPlaceAndDeleteOrderRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cpu := f.product(t, "CPU-1", "100.00", intPtr(10))
	ram := f.product(t, "RAM-1", "50.00", intPtr(6))

	order, err := f.orders.PlaceOrder(ctx, domainservice.PlaceOrderRequest{
		UserID:        uuid.New(),
		PaymentMethod: "efectivo",
		Items: []domainservice.LineItem{
			{ProductID: cpu.ID, Quantity: 2, Price: dec("118.00")},
			{ProductID: ram.ID, Quantity: 3, Price: dec("59.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, 8, f.stock(t, cpu.ID))
	assert.Equal(t, 3, f.stock(t, ram.ID))

	stored, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, cpu.ID, stored.Items[0].ProductID)
	assert.Equal(t, ram.ID, stored.Items[1].ProductID)

	_, err = f.invoices.CreateInvoice(ctx, order.ID, "Ana", "12345678")
	require.NoError(t, err)

	require.NoError(t, f.orders.DeleteOrder(ctx, order.ID))
	assert.Equal(t, 10, f.stock(t, cpu.ID))
	assert.Equal(t, 6, f.stock(t, ram.ID))

	_, err = f.orders.GetOrder(ctx, order.ID)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
	invoices, err := f.invoices.ListInvoices(ctx, &order.ID)
	require.NoError(t, err)
	assert.Empty(t, invoices)

	require.NoError(t, f.orders.DeleteOrder(ctx, order.ID))
	assert.Equal(t, 10, f.stock(t, cpu.ID))
}

func TestCartFlow(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cpu := f.product(t, "CPU-1", "100.00", intPtr(6))
	userID := uuid.New()

	_, err := f.carts.AddToCart(ctx, userID, cpu.ID, 2)
	require.NoError(t, err)
	item, err := f.carts.AddToCart(ctx, userID, cpu.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	_, err = f.carts.AddToCart(ctx, userID, cpu.ID, 2)
	assert.ErrorIs(t, err, model.ErrOutOfStock)

	cart, err := f.carts.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.True(t, dec("590.00").Equal(cart.Total()))
	assert.Equal(t, 6, f.stock(t, cpu.ID))

	require.NoError(t, f.carts.Clear(ctx, userID))
	cart, err = f.carts.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestListOrdersFilters(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cpu := f.product(t, "CPU-1", "100.00", intPtr(100))
	alice, bob := uuid.New(), uuid.New()

	place := func(user uuid.UUID, method string, at time.Time) *model.Order {
		f.clock.Set(at)
		order, err := f.orders.PlaceOrder(ctx, domainservice.PlaceOrderRequest{
			UserID:        user,
			PaymentMethod: method,
			Items:         []domainservice.LineItem{{ProductID: cpu.ID, Quantity: 1, Price: dec("118.00")}},
		})
		require.NoError(t, err)
		return order
	}
	first := place(alice, "cash", time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC))
	second := place(bob, "credit_card", time.Date(2024, time.March, 2, 23, 59, 0, 0, time.UTC))
	third := place(alice, "credit_card", time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC))

	ids := func(filter model.OrderFilter) []uuid.UUID {
		orders, err := f.orders.ListOrders(ctx, filter)
		require.NoError(t, err)
		result := make([]uuid.UUID, 0, len(orders))
		for _, order := range orders {
			result = append(result, order.ID)
		}
		return result
	}

	assert.Equal(t, []uuid.UUID{third.ID, second.ID, first.ID}, ids(model.OrderFilter{}))
	assert.Equal(t, []uuid.UUID{third.ID, first.ID}, ids(model.OrderFilter{UserID: &alice}))
	assert.Equal(t, []uuid.UUID{first.ID}, ids(model.OrderFilter{Status: model.StatusPending}))
	assert.Equal(t, []uuid.UUID{third.ID, second.ID}, ids(model.OrderFilter{PaymentMethod: "credit_card"}))
	assert.Equal(t, []uuid.UUID{second.ID}, ids(model.OrderFilter{Search: second.OrderNumber[len(second.OrderNumber)-8:]}))

	from := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1).Add(-time.Nanosecond)
	assert.Equal(t, []uuid.UUID{second.ID}, ids(model.OrderFilter{CreatedFrom: &from, CreatedTo: &to}))
}

func TestProductCatalog(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.product(t, "GPU-2", "900.00", intPtr(1))
	f.product(t, "CPU-1", "100.00", intPtr(1))
	hidden := f.product(t, "OLD-1", "10.00", nil)

	inactive := false
	_, err := f.catalog.UpdateProduct(ctx, hidden.ID, model.ProductPatch{IsActive: &inactive})
	require.NoError(t, err)

	all, err := f.catalog.ListProducts(ctx, model.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "CPU-1", all[0].Code)

	active, err := f.catalog.ListProducts(ctx, model.ProductFilter{OnlyActive: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	found, err := f.catalog.ListProducts(ctx, model.ProductFilter{Search: "gpu"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "GPU-2", found[0].Code)

	_, err = f.catalog.CreateProduct(ctx, model.NewProductParams{Code: "CPU-1", Name: "Dup", Price: dec("1")})
	assert.ErrorIs(t, err, model.ErrProductCodeTaken)

	stats, err := f.stats.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalProducts)
	assert.True(t, stats.TotalRevenue.IsZero())
}
