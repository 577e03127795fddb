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

const invoiceColumns = `id, order_id, invoice_number, customer_name, customer_dni, subtotal, tax, total, created_at`

type invoiceRow struct {
	ID            uuid.UUID       `db:"id"`
	OrderID       uuid.UUID       `db:"order_id"`
	InvoiceNumber string          `db:"invoice_number"`
	CustomerName  string          `db:"customer_name"`
	CustomerDNI   string          `db:"customer_dni"`
	Subtotal      decimal.Decimal `db:"subtotal"`
	Tax           decimal.Decimal `db:"tax"`
	Total         decimal.Decimal `db:"total"`
	Document      []byte          `db:"document"`
	CreatedAt     time.Time       `db:"created_at"`
}

type invoiceRepository struct {
	tx *sqlx.Tx
}

func NewInvoiceRepository(tx *sqlx.Tx) model.InvoiceRepository {
	return &invoiceRepository{tx: tx}
}

func (r *invoiceRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	row := invoiceRow(*invoice)
	row.CreatedAt = row.CreatedAt.UTC()
	_, err := r.tx.NamedExecContext(ctx, `INSERT INTO invoices (`+invoiceColumns+`, document)
		VALUES (:id, :order_id, :invoice_number, :customer_name, :customer_dni, :subtotal, :tax, :total,
			:created_at, :document)`, row)
	if err != nil {
		return wrapError(err, "failed to insert invoice",
			constraint{key: "uq_invoices_number", err: model.ErrInvoiceNumberTaken})
	}
	return nil
}

func (r *invoiceRepository) Find(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var row invoiceRow
	err := r.tx.GetContext(ctx, &row, `SELECT `+invoiceColumns+`, document FROM invoices WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, model.ErrInvoiceNotFound, "failed to select invoice")
	}
	invoice := model.Invoice(row)
	return &invoice, nil
}

// List omits the rendered documents.
func (r *invoiceRepository) List(ctx context.Context, orderID *uuid.UUID) ([]model.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	var args []interface{}
	if orderID != nil {
		query += ` WHERE order_id = ?`
		args = append(args, *orderID)
	}
	query += ` ORDER BY created_at DESC, invoice_number DESC`

	var rows []invoiceRow
	if err := r.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to select invoices")
	}
	invoices := make([]model.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, model.Invoice(row))
	}
	return invoices, nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete invoice")
	}
	return requireAffected(result, model.ErrInvoiceNotFound)
}

func (r *invoiceRepository) InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error) {
	var exists bool
	err := r.tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM invoices WHERE invoice_number = ?)`, invoiceNumber)
	if err != nil {
		return false, errors.Wrap(err, "failed to check invoice number")
	}
	return exists, nil
}
