package repository

import (
	"database/sql"
	"fmt"
	"strings"

	driver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"pcstore/pkg/shop/domain/model"
)

const errDuplicateEntry = 1062

// constraint maps a unique key name to the domain error reported when an
// insert or update violates it.
type constraint struct {
	key string
	err error
}

func wrapError(err error, message string, constraints ...constraint) error {
	var mysqlErr *driver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == errDuplicateEntry {
		for _, c := range constraints {
			if strings.Contains(mysqlErr.Message, c.key) {
				return c.err
			}
		}
		return fmt.Errorf("%w: %s", model.ErrConflict, mysqlErr.Message)
	}
	return errors.Wrap(err, message)
}

func notFound(err error, sentinel error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return errors.Wrap(err, message)
}

func requireAffected(result sql.Result, sentinel error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return sentinel
	}
	return nil
}
