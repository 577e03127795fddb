package service

import (
	"context"

	"github.com/shopspring/decimal"
)

type Stats struct {
	TotalProducts int
	TotalOrders   int
	TotalRevenue  decimal.Decimal
}

type StatsService interface {
	Stats(ctx context.Context) (Stats, error)
}

func NewStatsService(uow UnitOfWork) StatsService {
	return &statsService{uow: uow}
}

type statsService struct {
	uow UnitOfWork
}

func (s *statsService) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) (err error) {
		if stats.TotalProducts, err = provider.ProductRepository().Count(ctx); err != nil {
			return err
		}
		if stats.TotalOrders, err = provider.OrderRepository().Count(ctx); err != nil {
			return err
		}
		stats.TotalRevenue, err = provider.OrderRepository().Revenue(ctx)
		return err
	})
	return stats, err
}
