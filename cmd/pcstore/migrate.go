package main

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"pcstore/pkg/shop/infrastructure/mysql"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database schema migrations",
		Action: func(c *cli.Context) error {
			cnf, err := parseEnvs()
			if err != nil {
				return err
			}
			if err = cnf.configureLogger(); err != nil {
				return err
			}

			db, err := sqlx.Open("mysql", cnf.dsn().String(true))
			if err != nil {
				return errors.Wrap(err, "failed to open database")
			}
			defer db.Close()

			return mysql.Migrate(db.DB)
		},
	}
}
