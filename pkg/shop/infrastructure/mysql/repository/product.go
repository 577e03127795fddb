package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"pcstore/pkg/shop/domain/model"
)

const productColumns = `id, category_id, code, name, description, brand, model, price, stock,
	min_stock, warranty_months, is_active, created_at, updated_at`

type productRow struct {
	ID             uuid.UUID       `db:"id"`
	CategoryID     uuid.NullUUID   `db:"category_id"`
	Code           string          `db:"code"`
	Name           string          `db:"name"`
	Description    string          `db:"description"`
	Brand          string          `db:"brand"`
	Model          string          `db:"model"`
	Price          decimal.Decimal `db:"price"`
	Stock          sql.NullInt64   `db:"stock"`
	MinStock       int             `db:"min_stock"`
	WarrantyMonths int             `db:"warranty_months"`
	IsActive       bool            `db:"is_active"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func toProductRow(p *model.Product) productRow {
	row := productRow{
		ID:             p.ID,
		Code:           p.Code,
		Name:           p.Name,
		Description:    p.Description,
		Brand:          p.Brand,
		Model:          p.Model,
		Price:          p.Price,
		MinStock:       p.MinStock,
		WarrantyMonths: p.WarrantyMonths,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
	if p.CategoryID != nil {
		row.CategoryID = uuid.NullUUID{UUID: *p.CategoryID, Valid: true}
	}
	if p.Stock != nil {
		row.Stock = sql.NullInt64{Int64: int64(*p.Stock), Valid: true}
	}
	return row
}

func (row productRow) toModel() model.Product {
	p := model.Product{
		ID:             row.ID,
		Code:           row.Code,
		Name:           row.Name,
		Description:    row.Description,
		Brand:          row.Brand,
		Model:          row.Model,
		Price:          row.Price,
		MinStock:       row.MinStock,
		WarrantyMonths: row.WarrantyMonths,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.CategoryID.Valid {
		categoryID := row.CategoryID.UUID
		p.CategoryID = &categoryID
	}
	if row.Stock.Valid {
		stock := int(row.Stock.Int64)
		p.Stock = &stock
	}
	return p
}

var productCodeConstraint = constraint{key: "uq_products_code", err: model.ErrProductCodeTaken}

type productRepository struct {
	tx *sqlx.Tx
}

func NewProductRepository(tx *sqlx.Tx) model.ProductRepository {
	return &productRepository{tx: tx}
}

func (r *productRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	_, err := r.tx.NamedExecContext(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES (:id, :category_id, :code, :name, :description, :brand, :model, :price, :stock,
			:min_stock, :warranty_months, :is_active, :created_at, :updated_at)`, toProductRow(product))
	if err != nil {
		return wrapError(err, "failed to insert product", productCodeConstraint)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	result, err := r.tx.NamedExecContext(ctx, `UPDATE products SET
			category_id = :category_id, code = :code, name = :name, description = :description,
			brand = :brand, model = :model, price = :price, stock = :stock, min_stock = :min_stock,
			warranty_months = :warranty_months, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, toProductRow(product))
	if err != nil {
		return wrapError(err, "failed to update product", productCodeConstraint)
	}
	return requireAffected(result, model.ErrProductNotFound)
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete product")
	}
	return requireAffected(result, model.ErrProductNotFound)
}

func (r *productRepository) Find(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.find(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
}

func (r *productRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.find(ctx, `SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, id)
}

func (r *productRepository) find(ctx context.Context, query string, id uuid.UUID) (*model.Product, error) {
	var row productRow
	if err := r.tx.GetContext(ctx, &row, query, id); err != nil {
		return nil, notFound(err, model.ErrProductNotFound, "failed to select product")
	}
	product := row.toModel()
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.CategoryID != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.OnlyActive {
		conditions = append(conditions, "is_active = 1")
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(code) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY name, code`

	var rows []productRow
	if err := r.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to select products")
	}
	products := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.toModel())
	}
	return products, nil
}

func (r *productRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, errors.Wrap(err, "failed to count products")
	}
	return count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
