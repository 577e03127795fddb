package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"pcstore/pkg/shop/domain/model"
)

const cartItemColumns = `id, cart_id, product_id, quantity, price, created_at, updated_at`

type cartRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type cartItemRow struct {
	ID        uuid.UUID       `db:"id"`
	CartID    uuid.UUID       `db:"cart_id"`
	ProductID uuid.UUID       `db:"product_id"`
	Quantity  int             `db:"quantity"`
	Price     decimal.Decimal `db:"price"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func toCartItemRow(item *model.CartItem) cartItemRow {
	return cartItemRow{
		ID:        item.ID,
		CartID:    item.CartID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Price:     item.Price,
		CreatedAt: item.CreatedAt.UTC(),
		UpdatedAt: item.UpdatedAt.UTC(),
	}
}

func (row cartItemRow) toModel() model.CartItem {
	return model.CartItem(row)
}

type cartRepository struct {
	tx *sqlx.Tx
}

func NewCartRepository(tx *sqlx.Tx) model.CartRepository {
	return &cartRepository{tx: tx}
}

func (r *cartRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *cartRepository) Create(ctx context.Context, cart *model.Cart) error {
	_, err := r.tx.NamedExecContext(ctx,
		`INSERT INTO carts (id, user_id, created_at, updated_at) VALUES (:id, :user_id, :created_at, :updated_at)`,
		cartRow{ID: cart.ID, UserID: cart.UserID, CreatedAt: cart.CreatedAt.UTC(), UpdatedAt: cart.UpdatedAt.UTC()},
	)
	if err != nil {
		return wrapError(err, "failed to insert cart", constraint{key: "uq_carts_user", err: model.ErrCartAlreadyExists})
	}
	return nil
}

// FindByUser locks the cart row, or the gap where it would be, so two
// concurrent first additions for one user cannot both create a cart.
func (r *cartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	var row cartRow
	err := r.tx.GetContext(ctx, &row,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = ? FOR UPDATE`, userID)
	if err != nil {
		return nil, notFound(err, model.ErrCartNotFound, "failed to select cart")
	}

	var itemRows []cartItemRow
	err = r.tx.SelectContext(ctx, &itemRows,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ? ORDER BY seq`, row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select cart items")
	}

	cart := &model.Cart{
		ID:        row.ID,
		UserID:    row.UserID,
		Items:     make([]model.CartItem, 0, len(itemRows)),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	for _, itemRow := range itemRows {
		cart.Items = append(cart.Items, itemRow.toModel())
	}
	return cart, nil
}

func (r *cartRepository) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*model.CartItem, error) {
	return r.findItem(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ? AND product_id = ? FOR UPDATE`,
		cartID, productID)
}

func (r *cartRepository) FindItemByID(ctx context.Context, itemID uuid.UUID) (*model.CartItem, error) {
	return r.findItem(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE id = ? FOR UPDATE`, itemID)
}

func (r *cartRepository) findItem(ctx context.Context, query string, args ...interface{}) (*model.CartItem, error) {
	var row cartItemRow
	if err := r.tx.GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFound(err, model.ErrCartItemNotFound, "failed to select cart item")
	}
	item := row.toModel()
	return &item, nil
}

func (r *cartRepository) CreateItem(ctx context.Context, item *model.CartItem) error {
	_, err := r.tx.NamedExecContext(ctx, `INSERT INTO cart_items (`+cartItemColumns+`)
		VALUES (:id, :cart_id, :product_id, :quantity, :price, :created_at, :updated_at)`, toCartItemRow(item))
	if err != nil {
		return wrapError(err, "failed to insert cart item",
			constraint{key: "uq_cart_items_product", err: model.ErrCartItemAlreadyExist})
	}
	return nil
}

func (r *cartRepository) UpdateItem(ctx context.Context, item *model.CartItem) error {
	result, err := r.tx.NamedExecContext(ctx, `UPDATE cart_items
		SET quantity = :quantity, price = :price, updated_at = :updated_at
		WHERE id = :id`, toCartItemRow(item))
	if err != nil {
		return errors.Wrap(err, "failed to update cart item")
	}
	return requireAffected(result, model.ErrCartItemNotFound)
}

func (r *cartRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, itemID)
	if err != nil {
		return errors.Wrap(err, "failed to delete cart item")
	}
	return requireAffected(result, model.ErrCartItemNotFound)
}

func (r *cartRepository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID)
	return errors.Wrap(err, "failed to clear cart")
}

func (r *cartRepository) DeleteItemsByProduct(ctx context.Context, productID uuid.UUID) error {
	_, err := r.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE product_id = ?`, productID)
	return errors.Wrap(err, "failed to delete cart items of product")
}
