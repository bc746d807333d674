package payables

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/cashflow-planner/internal/importance"
	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"go.uber.org/zap"
)

// Settings configures an Optimizer.
type Settings struct {
	HorizonDays   int
	BorrowingRate float64
	MinCashBuffer float64
}

// DefaultSettings mirrors the planner defaults.
func DefaultSettings() Settings {
	return Settings{
		HorizonDays:   constants.DefaultHorizonDays,
		BorrowingRate: constants.DefaultBorrowingRate,
		MinCashBuffer: constants.DefaultMinCashBuffer,
	}
}

// Result is the outcome of one Optimize call.
type Result struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Schedule    `yaml:",inline"`
}

// Optimizer schedules supplier payments. Supplier importance is shared by
// every call on the same Optimizer.
type Optimizer struct {
	logger    *zap.Logger
	store     invoice.Store
	settings  Settings
	suppliers *importance.Registry
	clock     datetime.Clock
}

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithClock pins the optimizer's notion of today.
func WithClock(clock datetime.Clock) Option {
	return func(o *Optimizer) {
		o.clock = clock
	}
}

// New constructs an Optimizer. A nil registry starts with no scores.
func New(logger *zap.Logger, store invoice.Store, settings Settings, suppliers *importance.Registry, opts ...Option) (*Optimizer, error) {
	if store == nil {
		return nil, fmt.Errorf("payables: store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if suppliers == nil {
		suppliers, _ = importance.NewRegistry(nil)
	}
	if settings.HorizonDays <= 0 {
		settings.HorizonDays = constants.DefaultHorizonDays
	}

	o := &Optimizer{
		logger:    logger,
		store:     store,
		settings:  settings,
		suppliers: suppliers,
		clock:     datetime.SystemClock,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SetSupplierImportance records a supplier's importance in [0,1].
func (o *Optimizer) SetSupplierImportance(supplierID string, score float64) error {
	if err := o.suppliers.Set(supplierID, score); err != nil {
		return err
	}
	o.logger.Info("supplier importance updated",
		zap.String("op", "payables.SetSupplierImportance"),
		zap.String("supplier", supplierID),
		zap.Float64("importance", score),
	)
	return nil
}

// Suppliers exposes the importance registry.
func (o *Optimizer) Suppliers() *importance.Registry {
	return o.suppliers
}

// Optimize fetches payables within the horizon and schedules them against
// cashPosition.
func (o *Optimizer) Optimize(ctx context.Context, cashPosition float64) (*Result, error) {
	invoices, err := o.store.ListInvoices(ctx, invoice.Payable, o.settings.HorizonDays)
	if err != nil {
		return nil, fmt.Errorf("payables: list invoices: %w", err)
	}
	invoices, err = invoice.ResolveEntities(ctx, o.logger, o.store, invoices)
	if err != nil {
		return nil, fmt.Errorf("payables: %w", err)
	}

	return o.OptimizeInvoices(cashPosition, invoices), nil
}

// OptimizeInvoices schedules an already fetched set of payables.
func (o *Optimizer) OptimizeInvoices(cashPosition float64, invoices []invoice.Invoice) *Result {
	now := o.clock()
	today := datetime.Truncate(now)
	suppliers := o.suppliers.Snapshot()

	prioritized := Prioritize(invoices, suppliers, today)
	schedule := BuildSchedule(cashPosition, prioritized, suppliers, Policy{
		BorrowingRate: o.settings.BorrowingRate,
		MinCashBuffer: o.settings.MinCashBuffer,
	}, today)

	result := &Result{
		RunID:       uuid.NewString(),
		GeneratedAt: now,
		Schedule:    schedule,
	}

	o.logger.Info("payment schedule optimized",
		zap.String("op", "payables.Optimize"),
		zap.String("run", result.RunID),
		zap.Int("invoices", len(schedule.Payments)),
		zap.Float64("cashPosition", cashPosition),
		zap.Float64("discountCaptured", schedule.Metrics.TotalDiscountCaptured),
		zap.Float64("onTimePercentage", schedule.Metrics.OnTimePercentage),
		zap.Float64("remainingCash", schedule.Metrics.RemainingCash),
	)
	return result
}
