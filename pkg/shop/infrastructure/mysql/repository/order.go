package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"pcstore/pkg/shop/domain/model"
)

const (
	orderColumns = `id, order_number, user_id, total_amount, status, payment_method, shipping_address,
	tracking_number, notes, created_at, updated_at`
	orderItemColumns = `id, order_id, product_id, product_code, product_name, quantity, unit_price,
	total_price, created_at`
)

type orderRow struct {
	ID              uuid.UUID       `db:"id"`
	OrderNumber     string          `db:"order_number"`
	UserID          uuid.UUID       `db:"user_id"`
	TotalAmount     decimal.Decimal `db:"total_amount"`
	Status          string          `db:"status"`
	PaymentMethod   string          `db:"payment_method"`
	ShippingAddress sql.NullString  `db:"shipping_address"`
	TrackingNumber  string          `db:"tracking_number"`
	Notes           string          `db:"notes"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

type orderItemRow struct {
	ID          uuid.UUID       `db:"id"`
	OrderID     uuid.UUID       `db:"order_id"`
	ProductID   uuid.UUID       `db:"product_id"`
	ProductCode string          `db:"product_code"`
	ProductName string          `db:"product_name"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	TotalPrice  decimal.Decimal `db:"total_price"`
	CreatedAt   time.Time       `db:"created_at"`
}

func toOrderRow(o *model.Order) orderRow {
	row := orderRow{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		TotalAmount:    o.TotalAmount,
		Status:         string(o.Status),
		PaymentMethod:  o.PaymentMethod,
		TrackingNumber: o.TrackingNumber,
		Notes:          o.Notes,
		CreatedAt:      o.CreatedAt.UTC(),
		UpdatedAt:      o.UpdatedAt.UTC(),
	}
	if len(o.ShippingAddress) > 0 {
		row.ShippingAddress = sql.NullString{String: string(o.ShippingAddress), Valid: true}
	}
	return row
}

func (row orderRow) toModel() model.Order {
	o := model.Order{
		ID:             row.ID,
		OrderNumber:    row.OrderNumber,
		UserID:         row.UserID,
		TotalAmount:    row.TotalAmount,
		Status:         model.OrderStatus(row.Status),
		PaymentMethod:  row.PaymentMethod,
		TrackingNumber: row.TrackingNumber,
		Notes:          row.Notes,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.ShippingAddress.Valid {
		o.ShippingAddress = json.RawMessage(row.ShippingAddress.String)
	}
	return o
}

func toOrderItemRow(item *model.OrderItem) orderItemRow {
	row := orderItemRow(*item)
	row.CreatedAt = row.CreatedAt.UTC()
	return row
}

var orderConstraints = []constraint{
	{key: "uq_orders_number", err: model.ErrOrderNumberTaken},
	{key: "uq_orders_tracking", err: model.ErrTrackingNumberTaken},
}

type orderRepository struct {
	tx *sqlx.Tx
}

func NewOrderRepository(tx *sqlx.Tx) model.OrderRepository {
	return &orderRepository{tx: tx}
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	_, err := r.tx.NamedExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES (:id, :order_number, :user_id, :total_amount, :status, :payment_method, :shipping_address,
			:tracking_number, :notes, :created_at, :updated_at)`, toOrderRow(order))
	if err != nil {
		return wrapError(err, "failed to insert order", orderConstraints...)
	}
	return nil
}

func (r *orderRepository) AddItem(ctx context.Context, item *model.OrderItem) error {
	_, err := r.tx.NamedExecContext(ctx, `INSERT INTO order_items (`+orderItemColumns+`)
		VALUES (:id, :order_id, :product_id, :product_code, :product_name, :quantity, :unit_price,
			:total_price, :created_at)`, toOrderItemRow(item))
	if err != nil {
		return wrapError(err, "failed to insert order item")
	}
	return nil
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	result, err := r.tx.NamedExecContext(ctx, `UPDATE orders SET
			total_amount = :total_amount, status = :status, payment_method = :payment_method,
			shipping_address = :shipping_address, tracking_number = :tracking_number, notes = :notes,
			updated_at = :updated_at
		WHERE id = :id`, toOrderRow(order))
	if err != nil {
		return wrapError(err, "failed to update order", orderConstraints...)
	}
	return requireAffected(result, model.ErrOrderNotFound)
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM invoices WHERE order_id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete order invoices")
	}
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete order items")
	}
	result, err := r.tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete order")
	}
	return requireAffected(result, model.ErrOrderNotFound)
}

func (r *orderRepository) Find(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

func (r *orderRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, id)
}

func (r *orderRepository) find(ctx context.Context, query string, id uuid.UUID) (*model.Order, error) {
	var row orderRow
	if err := r.tx.GetContext(ctx, &row, query, id); err != nil {
		return nil, notFound(err, model.ErrOrderNotFound, "failed to select order")
	}

	var itemRows []orderItemRow
	err := r.tx.SelectContext(ctx, &itemRows,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select order items")
	}

	order := row.toModel()
	order.Items = make([]model.OrderItem, 0, len(itemRows))
	for _, itemRow := range itemRows {
		order.Items = append(order.Items, model.OrderItem(itemRow))
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, "LOWER(order_number) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.PaymentMethod != "" {
		conditions = append(conditions, "payment_method = ?")
		args = append(args, filter.PaymentMethod)
	}
	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.CreatedFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, order_number DESC`

	var rows []orderRow
	if err := r.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to select orders")
	}
	orders := make([]model.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toModel())
	}
	return orders, nil
}

func (r *orderRepository) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = ?)`, orderNumber)
}

func (r *orderRepository) TrackingNumberExists(ctx context.Context, trackingNumber string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE tracking_number = ?)`, trackingNumber)
}

func (r *orderRepository) ProductReferenced(ctx context.Context, productID uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM order_items WHERE product_id = ?)`, productID)
}

func (r *orderRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var exists bool
	if err := r.tx.GetContext(ctx, &exists, query, arg); err != nil {
		return false, errors.Wrap(err, "failed to check existence")
	}
	return exists, nil
}

func (r *orderRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM orders`); err != nil {
		return 0, errors.Wrap(err, "failed to count orders")
	}
	return count, nil
}

func (r *orderRepository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var revenue decimal.Decimal
	if err := r.tx.GetContext(ctx, &revenue, `SELECT COALESCE(SUM(total_amount), 0) FROM orders`); err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to sum revenue")
	}
	return revenue, nil
}
