package main

import (
	"context"
	"fmt"

	"github.com/iwvelando/cashflow-planner/internal/config"
	"github.com/iwvelando/cashflow-planner/internal/dispatch"
	"github.com/iwvelando/cashflow-planner/internal/importance"
	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/internal/payables"
	"github.com/iwvelando/cashflow-planner/internal/receivables"
	"github.com/iwvelando/cashflow-planner/internal/store/cache"
	"github.com/iwvelando/cashflow-planner/internal/store/memory"
	"github.com/iwvelando/cashflow-planner/internal/store/postgres"
	"github.com/iwvelando/cashflow-planner/internal/store/seed"
	"github.com/iwvelando/cashflow-planner/internal/workingcapital"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// app holds everything one process mode needs.
type app struct {
	store       invoice.Store
	seedTarget  seed.Target
	payables    *payables.Optimizer
	receivables *receivables.Optimizer
	planner     *workingcapital.Planner
	service     *dispatch.Service
	registry    *prometheus.Registry
	closers     []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openStore picks PostgreSQL when a DSN is configured and the in-memory store
// otherwise, then layers the Redis cache on top when an address is set.
func openStore(ctx context.Context, logger *zap.Logger, conf *config.Configuration, clock datetime.Clock, seedValue int64) (*app, error) {
	a := &app{}

	if conf.Storage.PostgresDSN != "" {
		pool, err := postgres.Connect(ctx, conf.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)

		pg := postgres.New(pool, logger, clock)
		if err := pg.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.store, a.seedTarget = pg, pg
		logger.Info("using postgres invoice store", zap.String("op", "main.openStore"))
	} else {
		mem := memory.New(clock)
		if conf.Storage.SeedSample {
			if _, err := seed.Apply(ctx, logger, mem, seed.Generate(seedValue, clock())); err != nil {
				return nil, err
			}
		}
		a.store, a.seedTarget = mem, mem
		logger.Info("using in-memory invoice store",
			zap.String("op", "main.openStore"),
			zap.Bool("seeded", conf.Storage.SeedSample),
		)
	}

	if conf.Storage.RedisAddr != "" {
		client, err := cache.Connect(ctx, conf.Storage.RedisAddr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.store = cache.New(a.store, client, conf.Storage.CacheTTL, logger, cache.WithClock(clock))
		logger.Info("caching invoice reads in redis",
			zap.String("op", "main.openStore"),
			zap.String("addr", conf.Storage.RedisAddr),
			zap.Duration("ttl", conf.Storage.CacheTTL),
		)
	}
	return a, nil
}

// buildApp wires the optimizers, planner and operation service over the store.
func buildApp(ctx context.Context, logger *zap.Logger, conf *config.Configuration, clock datetime.Clock, seedValue int64) (*app, error) {
	a, err := openStore(ctx, logger, conf, clock, seedValue)
	if err != nil {
		return nil, err
	}
	if err := a.wire(logger, conf, clock); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(logger *zap.Logger, conf *config.Configuration, clock datetime.Clock) error {
	suppliers, err := importance.NewRegistry(conf.Importance.Suppliers)
	if err != nil {
		return fmt.Errorf("supplier importance: %w", err)
	}
	customers, err := importance.NewRegistry(conf.Importance.Customers)
	if err != nil {
		return fmt.Errorf("customer importance: %w", err)
	}

	a.payables, err = payables.New(logger, a.store, payables.Settings{
		HorizonDays:   conf.Planner.HorizonDays,
		BorrowingRate: conf.Planner.BorrowingRate,
		MinCashBuffer: conf.Planner.MinCashBuffer,
	}, suppliers, payables.WithClock(clock))
	if err != nil {
		return err
	}
	a.receivables, err = receivables.New(logger, a.store, receivables.Settings{
		HorizonDays:   conf.Planner.HorizonDays,
		BorrowingRate: conf.Planner.BorrowingRate,
	}, customers, receivables.WithClock(clock))
	if err != nil {
		return err
	}
	a.planner, err = workingcapital.New(logger, a.store, workingcapital.Settings{
		HorizonDays:    conf.Planner.HorizonDays,
		BorrowingRate:  conf.Planner.BorrowingRate,
		InvestmentRate: conf.Planner.InvestmentRate,
		MinCashBuffer:  conf.Planner.MinCashBuffer,
		InitialCash:    conf.Planner.InitialCash,
	}, workingcapital.ObjectiveWeights{
		Liquidity:       conf.Weights.Liquidity,
		FinancingCost:   conf.Weights.FinancingCost,
		TransactionCost: conf.Weights.TransactionCost,
		Relationship:    conf.Weights.Relationship,
	}, workingcapital.WithClock(clock), workingcapital.WithSchedulers(a.payables, a.receivables))
	if err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	a.service, err = dispatch.NewService(logger, a.store, a.payables, a.receivables, a.planner, dispatch.NewMetrics(a.registry))
	return err
}
