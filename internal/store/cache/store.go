// Package cache is a Redis read-through decorator for any invoice.Store.
// Cached reads are versioned; creating an invoice bumps the version so every
// earlier entry is bypassed and left to expire.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultPrefix = "cashflow"

// Connect creates a client and verifies the server answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return client, nil
}

// Store caches invoice listings and forecasts from the wrapped store.
type Store struct {
	next   invoice.Store
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
	clock  datetime.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock whose calendar day is part of every key. It should
// match the wrapped store's clock.
func WithClock(clock datetime.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New wraps next. Redis failures are logged and fall through to next.
func New(next invoice.Store, client *redis.Client, ttl time.Duration, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{next: next, client: client, ttl: ttl, prefix: defaultPrefix, logger: logger, clock: datetime.SystemClock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) versionKey() string {
	return s.prefix + ":version"
}

func (s *Store) key(ctx context.Context, parts string) (string, error) {
	ver, err := s.client.Get(ctx, s.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		ver = 0
	} else if err != nil {
		return "", err
	}
	// Listings are windowed from today, so a new day starts fresh entries.
	today := datetime.FormatDate(datetime.Today(s.clock))
	return fmt.Sprintf("%s:%d:%s:%s", s.prefix, ver, today, parts), nil
}

// fetch returns the cached value for parts, or calls load and caches its result.
func fetch[T any](ctx context.Context, s *Store, parts string, load func(context.Context) (T, error)) (T, error) {
	key, err := s.key(ctx, parts)
	if err != nil {
		s.logger.Warn("cache unavailable, reading through",
			zap.String("op", "cache.fetch"),
			zap.String("key", parts),
			zap.Error(err),
		)
		return load(ctx)
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		s.logger.Warn("discarding unreadable cache entry", zap.String("op", "cache.fetch"), zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("cache read failed", zap.String("op", "cache.fetch"), zap.String("key", key), zap.Error(err))
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if encoded, err := json.Marshal(value); err == nil {
		if err := s.client.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
			s.logger.Warn("cache write failed", zap.String("op", "cache.fetch"), zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}

// ListInvoices reads through the cache.
func (s *Store) ListInvoices(ctx context.Context, typ invoice.Type, horizonDays int) ([]invoice.Invoice, error) {
	return fetch(ctx, s, fmt.Sprintf("invoices:%s:%d", typ, horizonDays), func(ctx context.Context) ([]invoice.Invoice, error) {
		return s.next.ListInvoices(ctx, typ, horizonDays)
	})
}

// CashFlowForecast reads through the cache.
func (s *Store) CashFlowForecast(ctx context.Context, horizonDays int) ([]invoice.ForecastRow, error) {
	return fetch(ctx, s, fmt.Sprintf("forecast:%d", horizonDays), func(ctx context.Context) ([]invoice.ForecastRow, error) {
		return s.next.CashFlowForecast(ctx, horizonDays)
	})
}

// CreateInvoice writes to the wrapped store and invalidates cached reads.
func (s *Store) CreateInvoice(ctx context.Context, inv invoice.Invoice) (*invoice.Invoice, error) {
	created, err := s.next.CreateInvoice(ctx, inv)
	if err != nil {
		return nil, err
	}
	if err := s.client.Incr(ctx, s.versionKey()).Err(); err != nil {
		s.logger.Warn("cache invalidation failed, entries will expire after ttl",
			zap.String("op", "cache.CreateInvoice"),
			zap.Duration("ttl", s.ttl),
			zap.Error(err),
		)
	}
	return created, nil
}

// EntityForInvoice delegates to the wrapped store when it can resolve owners.
func (s *Store) EntityForInvoice(ctx context.Context, invoiceID string) (string, bool, error) {
	resolver, ok := s.next.(invoice.EntityResolver)
	if !ok {
		return "", false, nil
	}
	return resolver.EntityForInvoice(ctx, invoiceID)
}
