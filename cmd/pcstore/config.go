package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	domainservice "pcstore/pkg/shop/domain/service"
	"pcstore/pkg/shop/infrastructure/mysql"
)

const appID = "pcstore"

const (
	storageMySQL  = "mysql"
	storageMemory = "memory"
)

type config struct {
	RESTAddress     string        `envconfig:"rest_address" default:":8080"`
	GRPCAddress     string        `envconfig:"grpc_address" default:":8081"`
	ShutdownTimeout time.Duration `envconfig:"shutdown_timeout" default:"10s"`
	LogLevel        string        `envconfig:"log_level" default:"info"`

	Storage           string        `envconfig:"storage" default:"mysql"`
	DBUser            string        `envconfig:"db_user" default:"pcstore"`
	DBPassword        string        `envconfig:"db_password"`
	DBHost            string        `envconfig:"db_host" default:"127.0.0.1:3306"`
	DBName            string        `envconfig:"db_name" default:"pcstore"`
	DBMaxConnections  int           `envconfig:"db_max_connections" default:"10"`
	DBConnMaxLifetime time.Duration `envconfig:"db_conn_max_lifetime" default:"5m"`
	DBPingInterval    time.Duration `envconfig:"db_ping_interval" default:"15s"`

	StoreName            string `envconfig:"store_name" default:"PC Store"`
	TrackingPrefix       string `envconfig:"tracking_prefix" default:"PCDOS2"`
	TimeZone             string `envconfig:"time_zone" default:"America/Lima"`
	PricePolicy          string `envconfig:"price_policy" default:"cart"`
	MissingProductPolicy string `envconfig:"missing_product_policy" default:"reject"`
}

func parseEnvs() (*config, error) {
	c := new(config)
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	return c, nil
}

func (c *config) dsn() mysql.DSN {
	return mysql.DSN{
		User:     c.DBUser,
		Password: c.DBPassword,
		Host:     c.DBHost,
		Database: c.DBName,
	}
}

func (c *config) location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown time zone %q", c.TimeZone)
	}
	return loc, nil
}

func (c *config) orderPolicies() (domainservice.PricePolicy, domainservice.MissingProductPolicy, error) {
	var (
		price   domainservice.PricePolicy
		missing domainservice.MissingProductPolicy
	)
	switch strings.ToLower(c.PricePolicy) {
	case "cart":
		price = domainservice.TrustLineItemPrice
	case "catalog":
		price = domainservice.CatalogPrice
	default:
		return 0, 0, fmt.Errorf("unknown price policy %q", c.PricePolicy)
	}
	switch strings.ToLower(c.MissingProductPolicy) {
	case "reject":
		missing = domainservice.RejectMissingProduct
	case "skip":
		missing = domainservice.SkipMissingProduct
	default:
		return 0, 0, fmt.Errorf("unknown missing product policy %q", c.MissingProductPolicy)
	}
	return price, missing, nil
}

func (c *config) configureLogger() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return errors.Wrap(err, "failed to parse log level")
	}
	log.SetLevel(level)
	return nil
}
