package main

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/application/service"
	"pcstore/pkg/shop/domain/model"
	domainservice "pcstore/pkg/shop/domain/service"
	"pcstore/pkg/shop/infrastructure/document"
	"pcstore/pkg/shop/infrastructure/event"
	"pcstore/pkg/shop/infrastructure/memory"
	"pcstore/pkg/shop/infrastructure/mysql"
	"pcstore/pkg/shop/infrastructure/transport"
)

// container wires the storage backend into the application services.
type container struct {
	db       *sqlx.DB // nil for the memory backend
	services transport.Services
	location *time.Location
}

func newContainer(cnf *config) (*container, error) {
	loc, err := cnf.location()
	if err != nil {
		return nil, err
	}
	pricePolicy, missingPolicy, err := cnf.orderPolicies()
	if err != nil {
		return nil, err
	}

	c := &container{location: loc}
	var uow service.UnitOfWork
	switch cnf.Storage {
	case storageMemory:
		log.Warn("using in-memory storage, data is lost on exit")
		uow = memory.NewUnitOfWork(memory.NewStore())
	case storageMySQL:
		db, err := mysql.Open(cnf.dsn(), mysql.ConnectionOptions{
			MaxConnections:  cnf.DBMaxConnections,
			ConnMaxLifetime: cnf.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		c.db = db
		uow = mysql.NewUnitOfWork(db)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cnf.Storage)
	}

	dispatcher := event.NewDispatcher(log.WithField("component", "events"))
	dispatcher.Subscribe(model.OrderItemSkipped{}.Type(), func(e domain.Event) error {
		skipped, ok := e.(model.OrderItemSkipped)
		if !ok {
			return nil
		}
		log.WithFields(log.Fields{
			"orderID":   skipped.OrderID,
			"productID": skipped.ProductID,
			"quantity":  skipped.Quantity,
		}).Warn("order item skipped, product no longer exists")
		return nil
	})

	numbers := model.NewNumberGenerator(cnf.TrackingPrefix, loc, nil)
	clock := time.Now

	c.services = transport.Services{
		Catalog: service.NewCatalogService(uow, dispatcher, clock),
		Carts:   service.NewCartService(uow, dispatcher, clock),
		Orders: service.NewOrderService(uow, dispatcher, domainservice.OrderOptions{
			Numbers:              numbers,
			PricePolicy:          pricePolicy,
			MissingProductPolicy: missingPolicy,
			Clock:                clock,
		}),
		Invoices: service.NewInvoiceService(uow, document.NewTextRenderer(cnf.StoreName), dispatcher, numbers, clock),
		Stats:    service.NewStatsService(uow),
	}
	return c, nil
}

func (c *container) close() {
	if c.db == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		log.WithError(err).Error("failed to close database")
	}
}
