package mysql

import (
	"context"
	"database/sql"

	driver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"pcstore/pkg/shop/application/service"
	"pcstore/pkg/shop/domain/model"
	"pcstore/pkg/shop/infrastructure/mysql/repository"
)

const (
	errDeadlock        = 1213
	errLockWaitTimeout = 1205

	defaultMaxAttempts = 3
)

// UnitOfWork runs each call in its own InnoDB transaction. Rows read with
// FindForUpdate stay locked until commit or rollback, so two requests racing
// for the same product stock are serialized. Deadlocks are retried.
type UnitOfWork struct {
	db          *sqlx.DB
	maxAttempts int
}

func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	return &UnitOfWork{db: db, maxAttempts: defaultMaxAttempts}
}

var _ service.UnitOfWork = (*UnitOfWork)(nil)

func (u *UnitOfWork) Execute(ctx context.Context, fn func(provider service.RepositoryProvider) error) error {
	var err error
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		err = u.execute(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		log.WithError(err).WithField("attempt", attempt).Warn("transaction aborted by the database, retrying")
	}
	return err
}

func (u *UnitOfWork) execute(ctx context.Context, fn func(provider service.RepositoryProvider) error) (err error) {
	tx, err := u.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				log.WithError(rollbackErr).Error("failed to rollback transaction")
			}
			return
		}
		err = errors.Wrap(tx.Commit(), "failed to commit transaction")
	}()

	return fn(&provider{tx: tx})
}

func isRetryable(err error) bool {
	var mysqlErr *driver.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	return mysqlErr.Number == errDeadlock || mysqlErr.Number == errLockWaitTimeout
}

type provider struct {
	tx *sqlx.Tx
}

func (p *provider) ProductRepository() model.ProductRepository {
	return repository.NewProductRepository(p.tx)
}

func (p *provider) CartRepository() model.CartRepository {
	return repository.NewCartRepository(p.tx)
}

func (p *provider) OrderRepository() model.OrderRepository {
	return repository.NewOrderRepository(p.tx)
}

func (p *provider) InvoiceRepository() model.InvoiceRepository {
	return repository.NewInvoiceRepository(p.tx)
}
