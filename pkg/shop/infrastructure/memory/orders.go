package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pcstore/pkg/shop/domain/model"
)

type orderRepository struct {
	tables *tables
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Create(_ context.Context, order *model.Order) error {
	for _, existing := range r.tables.orders {
		if existing.ID == order.ID {
			return fmt.Errorf("%w: order %s already exists", model.ErrConflict, order.ID)
		}
		if existing.OrderNumber == order.OrderNumber {
			return model.ErrOrderNumberTaken
		}
		if existing.TrackingNumber == order.TrackingNumber {
			return model.ErrTrackingNumberTaken
		}
	}
	stored := cloneOrder(*order)
	stored.Items = nil
	r.tables.orders[order.ID] = stored
	return nil
}

func (r *orderRepository) AddItem(_ context.Context, item *model.OrderItem) error {
	if _, ok := r.tables.orders[item.OrderID]; !ok {
		return model.ErrOrderNotFound
	}
	if _, ok := r.tables.products[item.ProductID]; !ok {
		return model.ErrProductNotFound
	}
	r.tables.orderItems[item.ID] = *item
	r.tables.track(item.ID)
	return nil
}

func (r *orderRepository) Update(_ context.Context, order *model.Order) error {
	if _, ok := r.tables.orders[order.ID]; !ok {
		return model.ErrOrderNotFound
	}
	for id, existing := range r.tables.orders {
		if id != order.ID && existing.TrackingNumber == order.TrackingNumber {
			return model.ErrTrackingNumberTaken
		}
	}
	stored := cloneOrder(*order)
	stored.Items = nil
	r.tables.orders[order.ID] = stored
	return nil
}

func (r *orderRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.tables.orders[id]; !ok {
		return model.ErrOrderNotFound
	}
	for itemID, item := range r.tables.orderItems {
		if item.OrderID == id {
			delete(r.tables.orderItems, itemID)
			delete(r.tables.seq, itemID)
		}
	}
	for invoiceID, invoice := range r.tables.invoices {
		if invoice.OrderID == id {
			delete(r.tables.invoices, invoiceID)
		}
	}
	delete(r.tables.orders, id)
	return nil
}

func (r *orderRepository) Find(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := r.tables.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	clone := cloneOrder(order)
	clone.Items = r.items(id)
	return &clone, nil
}

func (r *orderRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.Find(ctx, id)
}

func (r *orderRepository) List(_ context.Context, filter model.OrderFilter) ([]model.Order, error) {
	orders := make([]model.Order, 0)
	for _, order := range r.tables.orders {
		if matchesOrder(filter, order) {
			orders = append(orders, cloneOrder(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].OrderNumber > orders[j].OrderNumber
	})
	return orders, nil
}

func (r *orderRepository) OrderNumberExists(_ context.Context, orderNumber string) (bool, error) {
	for _, order := range r.tables.orders {
		if order.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *orderRepository) TrackingNumberExists(_ context.Context, trackingNumber string) (bool, error) {
	for _, order := range r.tables.orders {
		if order.TrackingNumber == trackingNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *orderRepository) ProductReferenced(_ context.Context, productID uuid.UUID) (bool, error) {
	for _, item := range r.tables.orderItems {
		if item.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (r *orderRepository) Count(context.Context) (int, error) {
	return len(r.tables.orders), nil
}

func (r *orderRepository) Revenue(context.Context) (decimal.Decimal, error) {
	revenue := decimal.Zero
	for _, order := range r.tables.orders {
		revenue = revenue.Add(order.TotalAmount)
	}
	return revenue, nil
}

func (r *orderRepository) items(orderID uuid.UUID) []model.OrderItem {
	items := make([]model.OrderItem, 0)
	for _, item := range r.tables.orderItems {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return r.tables.seq[items[i].ID] < r.tables.seq[items[j].ID] })
	return items
}

func matchesOrder(filter model.OrderFilter, order model.Order) bool {
	if filter.Search != "" && !strings.Contains(strings.ToLower(order.OrderNumber), strings.ToLower(strings.TrimSpace(filter.Search))) {
		return false
	}
	if filter.Status != "" && order.Status != filter.Status {
		return false
	}
	if filter.PaymentMethod != "" && order.PaymentMethod != filter.PaymentMethod {
		return false
	}
	if filter.UserID != nil && order.UserID != *filter.UserID {
		return false
	}
	if filter.CreatedFrom != nil && order.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && order.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}

func cloneOrder(o model.Order) model.Order {
	if o.ShippingAddress != nil {
		o.ShippingAddress = append(json.RawMessage(nil), o.ShippingAddress...)
	}
	if o.Items != nil {
		o.Items = append([]model.OrderItem(nil), o.Items...)
	}
	return o
}
