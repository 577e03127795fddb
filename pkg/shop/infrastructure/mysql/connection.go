package mysql

import (
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type DSN struct {
	User     string
	Password string
	Host     string
	Database string
}

// String formats the DSN for go-sql-driver. Updates report matched rows
// rather than changed rows. multiStatements is only needed by migrations.
func (d DSN) String(multiStatements bool) string {
	cfg := driver.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = d.Host
	cfg.DBName = d.Database
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = multiStatements
	return cfg.FormatDSN()
}

type ConnectionOptions struct {
	MaxConnections  int
	ConnMaxLifetime time.Duration
}

func Open(dsn DSN, opts ConnectionOptions) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn.String(false))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if opts.MaxConnections > 0 {
		db.SetMaxOpenConns(opts.MaxConnections)
		db.SetMaxIdleConns(opts.MaxConnections)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}
