package tests

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcstore/pkg/shop/domain/model"
	"pcstore/pkg/shop/domain/service"
)

var (
	orderNumberPattern    = regexp.MustCompile(`^ORD-20240315-[0-9a-f]{8}$`)
	trackingNumberPattern = regexp.MustCompile(`^PCDOS2-20240315-[A-Z0-9]{7}$`)
)

type orderFixture struct {
	service    service.OrderService
	products   *mockProductRepository
	orders     *mockOrderRepository
	dispatcher *mockEventDispatcher
}

func setupOrders(t *testing.T, opts service.OrderOptions) orderFixture {
	t.Helper()
	products := newMockProductRepository()
	orders := newMockOrderRepository()
	dispatcher := &mockEventDispatcher{}
	if opts.Clock == nil {
		opts.Clock = clock
	}
	return orderFixture{
		service:    service.NewOrderService(products, orders, dispatcher, opts),
		products:   products,
		orders:     orders,
		dispatcher: dispatcher,
	}
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()
	f := setupOrders(t, service.OrderOptions{})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))
	ram := addProduct(t, f.products, "RAM-1", "50.00", intPtr(5))
	userID := uuid.New()

	order, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
		UserID:          userID,
		PaymentMethod:   "credit_card",
		ShippingAddress: json.RawMessage(`{"city":"Lima","phone":"999888777"}`),
		Items: []service.LineItem{
			{ProductID: cpu.ID, Quantity: 2, Price: dec("118.00")},
			{ProductID: ram.ID, Quantity: 1, Price: dec("59.00")},
		},
	})
	require.NoError(t, err)

	assert.Regexp(t, orderNumberPattern, order.OrderNumber)
	assert.Regexp(t, trackingNumberPattern, order.TrackingNumber)
	assert.Equal(t, model.StatusPaid, order.Status)
	assert.True(t, dec("295.00").Equal(order.TotalAmount), order.TotalAmount.String())
	assert.Equal(t, userID, order.UserID)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "CPU-1", order.Items[0].ProductCode)
	assert.Equal(t, "Product CPU-1", order.Items[0].ProductName)
	assert.True(t, dec("236.00").Equal(order.Items[0].TotalPrice))
	assert.True(t, dec("59.00").Equal(order.Items[1].UnitPrice))

	assert.Equal(t, 8, *f.products.stock(t, cpu.ID))
	assert.Equal(t, 4, *f.products.stock(t, ram.ID))

	stored, err := f.orders.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)

	assert.Equal(t, []string{"ProductStockChanged", "ProductStockChanged", "OrderPlaced"}, f.dispatcher.types())
	changed := f.dispatcher.events[0].(model.ProductStockChanged)
	assert.Equal(t, -2, changed.ChangeAmount)
	assert.Equal(t, 8, changed.NewQuantity)
}

func TestPlaceOrderStatusFromPaymentMethod(t *testing.T) {
	ctx := context.Background()
	f := setupOrders(t, service.OrderOptions{})
	product := addProduct(t, f.products, "SSD-1", "80.00", intPtr(100))

	for method, status := range map[string]model.OrderStatus{
		"cash":          model.StatusPending,
		"Tarjeta":       model.StatusPaid,
		"debit_card":    model.StatusPaid,
		"bank_transfer": model.StatusPending,
		"crypto":        model.StatusPending,
	} {
		order, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
			UserID:        uuid.New(),
			PaymentMethod: method,
			Items:         []service.LineItem{{ProductID: product.ID, Quantity: 1, Price: dec("94.40")}},
		})
		require.NoError(t, err, method)
		assert.Equal(t, status, order.Status, method)
	}
}

func TestPlaceOrderOutOfStock(t *testing.T) {
	ctx := context.Background()

	t.Run("Reports remaining stock", func(t *testing.T) {
		f := setupOrders(t, service.OrderOptions{})
		gpu := addProduct(t, f.products, "GPU-1", "1500.00", intPtr(1))

		_, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
			UserID: uuid.New(),
			Items:  []service.LineItem{{ProductID: gpu.ID, Quantity: 3, Price: dec("1770.00")}},
		})
		require.ErrorIs(t, err, model.ErrOutOfStock)

		var outOfStock *model.OutOfStockError
		require.True(t, errors.As(err, &outOfStock))
		assert.Equal(t, 1, outOfStock.Remaining)
		assert.Equal(t, gpu.ID, outOfStock.ProductID)
		assert.Equal(t, 1, *f.products.stock(t, gpu.ID))
		assert.Empty(t, f.orders.store)
		assert.Empty(t, f.dispatcher.events)
	})

	t.Run("Later line leaves earlier lines untouched", func(t *testing.T) {
		f := setupOrders(t, service.OrderOptions{})
		cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))
		gpu := addProduct(t, f.products, "GPU-1", "1500.00", intPtr(1))

		_, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
			UserID: uuid.New(),
			Items: []service.LineItem{
				{ProductID: cpu.ID, Quantity: 2, Price: dec("118.00")},
				{ProductID: gpu.ID, Quantity: 2, Price: dec("1770.00")},
			},
		})
		require.ErrorIs(t, err, model.ErrOutOfStock)
		assert.Equal(t, 10, *f.products.stock(t, cpu.ID))
		assert.Equal(t, 0, f.products.updates)
		assert.Empty(t, f.orders.store)
	})

	t.Run("Repeated product counts every line", func(t *testing.T) {
		f := setupOrders(t, service.OrderOptions{})
		ram := addProduct(t, f.products, "RAM-1", "50.00", intPtr(5))

		_, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
			UserID: uuid.New(),
			Items: []service.LineItem{
				{ProductID: ram.ID, Quantity: 3, Price: dec("59.00")},
				{ProductID: ram.ID, Quantity: 3, Price: dec("59.00")},
			},
		})
		var outOfStock *model.OutOfStockError
		require.True(t, errors.As(err, &outOfStock))
		assert.Equal(t, 2, outOfStock.Remaining)
		assert.Equal(t, 5, *f.products.stock(t, ram.ID))
	})
}

func TestPlaceOrderMissingProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejected by default", func(t *testing.T) {
		f := setupOrders(t, service.OrderOptions{})
		cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))

		_, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
			UserID: uuid.New(),
			Items: []service.LineItem{
				{ProductID: cpu.ID, Quantity: 1, Price: dec("118.00")},
				{ProductID: uuid.New(), Quantity: 1, Price: dec("10.00")},
			},
		})
		require.ErrorIs(t, err, model.ErrProductNotFound)
		require.ErrorIs(t, err, model.ErrNotFound)
		assert.Equal(t, 10, *f.products.stock(t, cpu.ID))
		assert.Empty(t, f.orders.store)
	})

	t.Run("Skipped when configured", func(t *testing.T) {
		f := setupOrders(t, service.OrderOptions{MissingProductPolicy: service.SkipMissingProduct})
		cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))
		missingID := uuid.New()

		order, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
			UserID: uuid.New(),
			Items: []service.LineItem{
				{ProductID: cpu.ID, Quantity: 1, Price: dec("118.00")},
				{ProductID: missingID, Quantity: 2, Price: dec("10.00")},
			},
		})
		require.NoError(t, err)
		require.Len(t, order.Items, 1)
		assert.True(t, dec("138.00").Equal(order.TotalAmount), order.TotalAmount.String())
		assert.Equal(t, 9, *f.products.stock(t, cpu.ID))

		assert.Contains(t, f.dispatcher.types(), "OrderItemSkipped")
		for _, event := range f.dispatcher.events {
			if skipped, ok := event.(model.OrderItemSkipped); ok {
				assert.Equal(t, missingID, skipped.ProductID)
				assert.Equal(t, 2, skipped.Quantity)
			}
		}
	})
}

func TestPlaceOrderUntrackedStock(t *testing.T) {
	f := setupOrders(t, service.OrderOptions{})
	cable := addProduct(t, f.products, "CABLE-1", "5.00", nil)

	order, err := f.service.PlaceOrder(context.Background(), service.PlaceOrderRequest{
		UserID: uuid.New(),
		Items:  []service.LineItem{{ProductID: cable.ID, Quantity: 50, Price: dec("5.90")}},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Nil(t, f.products.stock(t, cable.ID))
	assert.Equal(t, 0, f.products.updates)
	assert.Equal(t, []string{"OrderPlaced"}, f.dispatcher.types())
}

func TestPlaceOrderOverrides(t *testing.T) {
	ctx := context.Background()
	f := setupOrders(t, service.OrderOptions{})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))
	total := dec("200.00")

	order, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
		UserID:         uuid.New(),
		PaymentMethod:  "cash",
		TrackingNumber: "CUSTOM-1",
		TotalAmount:    &total,
		Status:         model.StatusShipped,
		Items:          []service.LineItem{{ProductID: cpu.ID, Quantity: 2, Price: dec("118.00")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM-1", order.TrackingNumber)
	assert.Equal(t, model.StatusShipped, order.Status)
	assert.True(t, total.Equal(order.TotalAmount))

	t.Run("Fail on taken tracking number", func(t *testing.T) {
		_, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
			UserID:         uuid.New(),
			TrackingNumber: "CUSTOM-1",
			Items:          []service.LineItem{{ProductID: cpu.ID, Quantity: 1, Price: dec("118.00")}},
		})
		assert.ErrorIs(t, err, model.ErrTrackingNumberTaken)
		assert.ErrorIs(t, err, model.ErrConflict)
		assert.Equal(t, 8, *f.products.stock(t, cpu.ID))
	})
}

func TestPlaceOrderZeroTotalIsDerived(t *testing.T) {
	f := setupOrders(t, service.OrderOptions{})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))

	order, err := f.service.PlaceOrder(context.Background(), service.PlaceOrderRequest{
		UserID:      uuid.New(),
		TotalAmount: decPtr("0"),
		Items:       []service.LineItem{{ProductID: cpu.ID, Quantity: 2, Price: dec("118.00")}},
	})
	require.NoError(t, err)
	assert.True(t, dec("236.00").Equal(order.TotalAmount), order.TotalAmount.String())
}

func TestPlaceOrderKeepsWholeCents(t *testing.T) {
	f := setupOrders(t, service.OrderOptions{})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))

	order, err := f.service.PlaceOrder(context.Background(), service.PlaceOrderRequest{
		UserID: uuid.New(),
		Items:  []service.LineItem{{ProductID: cpu.ID, Quantity: 3, Price: dec("10.010")}},
	})
	require.NoError(t, err)
	item := order.Items[0]
	assert.True(t, dec("30.03").Equal(item.TotalPrice), item.TotalPrice.String())
	assert.True(t, item.UnitPrice.Mul(dec("3")).Equal(item.TotalPrice))
	assert.True(t, item.TotalPrice.Equal(order.TotalAmount))
}

func TestPlaceOrderRepeatedProductEvents(t *testing.T) {
	f := setupOrders(t, service.OrderOptions{})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))

	_, err := f.service.PlaceOrder(context.Background(), service.PlaceOrderRequest{
		UserID: uuid.New(),
		Items: []service.LineItem{
			{ProductID: cpu.ID, Quantity: 2, Price: dec("118.00")},
			{ProductID: cpu.ID, Quantity: 3, Price: dec("118.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, *f.products.stock(t, cpu.ID))

	require.Equal(t, []string{"ProductStockChanged", "ProductStockChanged", "OrderPlaced"}, f.dispatcher.types())
	first := f.dispatcher.events[0].(model.ProductStockChanged)
	second := f.dispatcher.events[1].(model.ProductStockChanged)
	assert.Equal(t, -2, first.ChangeAmount)
	assert.Equal(t, 8, first.NewQuantity)
	assert.Equal(t, -3, second.ChangeAmount)
	assert.Equal(t, 5, second.NewQuantity)
}

func TestPlaceOrderCatalogPrice(t *testing.T) {
	f := setupOrders(t, service.OrderOptions{PricePolicy: service.CatalogPrice})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))

	order, err := f.service.PlaceOrder(context.Background(), service.PlaceOrderRequest{
		UserID: uuid.New(),
		Items:  []service.LineItem{{ProductID: cpu.ID, Quantity: 2, Price: dec("1.00")}},
	})
	require.NoError(t, err)
	assert.True(t, dec("118.00").Equal(order.Items[0].UnitPrice))
	assert.True(t, dec("236.00").Equal(order.TotalAmount))
}

func TestPlaceOrderValidation(t *testing.T) {
	f := setupOrders(t, service.OrderOptions{})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))

	for name, req := range map[string]service.PlaceOrderRequest{
		"Empty items":   {UserID: uuid.New()},
		"Missing user":  {Items: []service.LineItem{{ProductID: cpu.ID, Quantity: 1}}},
		"Zero quantity": {UserID: uuid.New(), Items: []service.LineItem{{ProductID: cpu.ID, Quantity: 0}}},
		"Negative price": {UserID: uuid.New(), Items: []service.LineItem{
			{ProductID: cpu.ID, Quantity: 1, Price: dec("-1")},
		}},
		"Broken address": {UserID: uuid.New(), ShippingAddress: json.RawMessage(`{`), Items: []service.LineItem{
			{ProductID: cpu.ID, Quantity: 1},
		}},
		"Sub-cent price": {UserID: uuid.New(), Items: []service.LineItem{
			{ProductID: cpu.ID, Quantity: 3, Price: dec("10.005")},
		}},
		"Sub-cent total": {UserID: uuid.New(), TotalAmount: decPtr("30.015"), Items: []service.LineItem{
			{ProductID: cpu.ID, Quantity: 3, Price: dec("10.00")},
		}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.PlaceOrder(context.Background(), req)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
	assert.Equal(t, 10, *f.products.stock(t, cpu.ID))
}

func TestPlaceOrderNumberCollision(t *testing.T) {
	ctx := context.Background()
	f := setupOrders(t, service.OrderOptions{Numbers: model.NewNumberGenerator("", nil, zeroReader{})})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))
	req := service.PlaceOrderRequest{
		UserID: uuid.New(),
		Items:  []service.LineItem{{ProductID: cpu.ID, Quantity: 1, Price: dec("118.00")}},
	}

	first, err := f.service.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20240315-00000000", first.OrderNumber)
	assert.Equal(t, "PCDOS2-20240315-AAAAAAA", first.TrackingNumber)

	_, err = f.service.PlaceOrder(ctx, req)
	assert.ErrorIs(t, err, model.ErrOrderNumberTaken)
	assert.Equal(t, 9, *f.products.stock(t, cpu.ID))
}

func TestPlaceOrderLocksInStableOrder(t *testing.T) {
	f := setupOrders(t, service.OrderOptions{})
	a := addProduct(t, f.products, "A", "1.00", intPtr(10))
	b := addProduct(t, f.products, "B", "1.00", intPtr(10))

	_, err := f.service.PlaceOrder(context.Background(), service.PlaceOrderRequest{
		UserID: uuid.New(),
		Items: []service.LineItem{
			{ProductID: b.ID, Quantity: 1, Price: dec("1.18")},
			{ProductID: a.ID, Quantity: 1, Price: dec("1.18")},
			{ProductID: b.ID, Quantity: 1, Price: dec("1.18")},
		},
	})
	require.NoError(t, err)

	require.Len(t, f.products.locked, 2)
	first, second := f.products.locked[0], f.products.locked[1]
	assert.Less(t, first.String(), second.String())
	assert.Equal(t, 8, *f.products.stock(t, b.ID))
}

func TestDeleteOrder(t *testing.T) {
	ctx := context.Background()
	f := setupOrders(t, service.OrderOptions{})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))
	cable := addProduct(t, f.products, "CABLE-1", "5.00", nil)

	order, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
		UserID: uuid.New(),
		Items: []service.LineItem{
			{ProductID: cpu.ID, Quantity: 3, Price: dec("118.00")},
			{ProductID: cable.ID, Quantity: 2, Price: dec("5.90")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 7, *f.products.stock(t, cpu.ID))

	t.Run("Restores stock", func(t *testing.T) {
		f.dispatcher.Reset()
		require.NoError(t, f.service.DeleteOrder(ctx, order.ID))

		assert.Equal(t, 10, *f.products.stock(t, cpu.ID))
		assert.Nil(t, f.products.stock(t, cable.ID))
		_, err := f.orders.Find(ctx, order.ID)
		assert.ErrorIs(t, err, model.ErrOrderNotFound)

		assert.Equal(t, []string{"ProductStockChanged", "OrderDeleted"}, f.dispatcher.types())
		changed := f.dispatcher.events[0].(model.ProductStockChanged)
		assert.Equal(t, 3, changed.ChangeAmount)
		assert.Equal(t, 10, changed.NewQuantity)
	})

	t.Run("Unknown order is a no-op", func(t *testing.T) {
		f.dispatcher.Reset()
		require.NoError(t, f.service.DeleteOrder(ctx, uuid.New()))
		assert.Empty(t, f.dispatcher.events)
	})
}

func TestDeleteOrderWithRemovedProduct(t *testing.T) {
	ctx := context.Background()
	f := setupOrders(t, service.OrderOptions{})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))

	order, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
		UserID: uuid.New(),
		Items:  []service.LineItem{{ProductID: cpu.ID, Quantity: 1, Price: dec("118.00")}},
	})
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(ctx, cpu.ID))

	require.NoError(t, f.service.DeleteOrder(ctx, order.ID))
	assert.Empty(t, f.orders.store)
}

func TestUpdateOrder(t *testing.T) {
	ctx := context.Background()
	f := setupOrders(t, service.OrderOptions{})
	cpu := addProduct(t, f.products, "CPU-1", "100.00", intPtr(10))
	place := func() *model.Order {
		order, err := f.service.PlaceOrder(ctx, service.PlaceOrderRequest{
			UserID: uuid.New(),
			Items:  []service.LineItem{{ProductID: cpu.ID, Quantity: 1, Price: dec("118.00")}},
		})
		require.NoError(t, err)
		return order
	}
	order := place()
	other := place()

	t.Run("Success", func(t *testing.T) {
		status := model.StatusShipped
		notes := "leave at the door"
		updated, err := f.service.UpdateOrder(ctx, order.ID, model.OrderPatch{Status: &status, Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, model.StatusShipped, updated.Status)
		assert.Equal(t, notes, updated.Notes)
		assert.Equal(t, order.TrackingNumber, updated.TrackingNumber)

		stored, _ := f.orders.Find(ctx, order.ID)
		assert.Equal(t, model.StatusShipped, stored.Status)
	})

	t.Run("Fail on tracking number of another order", func(t *testing.T) {
		_, err := f.service.UpdateOrder(ctx, order.ID, model.OrderPatch{TrackingNumber: &other.TrackingNumber})
		assert.ErrorIs(t, err, model.ErrTrackingNumberTaken)
	})

	t.Run("Keeping own tracking number is fine", func(t *testing.T) {
		_, err := f.service.UpdateOrder(ctx, order.ID, model.OrderPatch{TrackingNumber: &order.TrackingNumber})
		assert.NoError(t, err)
	})

	t.Run("Fail on negative total", func(t *testing.T) {
		total := dec("-5")
		_, err := f.service.UpdateOrder(ctx, order.ID, model.OrderPatch{TotalAmount: &total})
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("Fail on sub-cent total", func(t *testing.T) {
		_, err := f.service.UpdateOrder(ctx, order.ID, model.OrderPatch{TotalAmount: decPtr("10.001")})
		assert.ErrorIs(t, err, model.ErrSubCentAmount)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("Fail on unknown order", func(t *testing.T) {
		notes := "x"
		_, err := f.service.UpdateOrder(ctx, uuid.New(), model.OrderPatch{Notes: &notes})
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})
}
