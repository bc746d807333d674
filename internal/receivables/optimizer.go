package receivables

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/cashflow-planner/internal/importance"
	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/iwvelando/cashflow-planner/pkg/mathutil"
	"go.uber.org/zap"
)

// Plan is the collection plan for one invoice.
type Plan struct {
	InvoiceID              string   `json:"invoice_id" yaml:"invoice_id"`
	CustomerID             string   `json:"customer_id" yaml:"customer_id"`
	Amount                 float64  `json:"amount" yaml:"amount"`
	DueDate                string   `json:"due_date" yaml:"due_date"`
	DaysOverdue            int      `json:"days_overdue" yaml:"days_overdue"`
	Priority               float64  `json:"priority" yaml:"priority"`
	Actions                []Action `json:"actions" yaml:"actions"`
	ExpectedCollectionDate string   `json:"expected_collection_date" yaml:"expected_collection_date"`
	FinancialImpact        float64  `json:"financial_impact" yaml:"financial_impact"`
}

// Metrics summarize a collection strategy.
type Metrics struct {
	TotalReceivable      float64 `json:"total_receivable" yaml:"total_receivable"`
	TotalActionsCost     float64 `json:"total_actions_cost" yaml:"total_actions_cost"`
	TotalFinancialImpact float64 `json:"total_financial_impact" yaml:"total_financial_impact"`
	ROI                  float64 `json:"roi" yaml:"roi"`
}

// Strategy is the collection plan for every receivable in the horizon.
type Strategy struct {
	Plans   []Plan  `json:"collection_strategy" yaml:"collection_strategy"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// BuildStrategy selects actions for each prioritized invoice in order.
func BuildStrategy(prioritized []Prioritized, customers importance.Snapshot, weights Weights, borrowingRate float64, today time.Time) Strategy {
	plans := make([]Plan, 0, len(prioritized))
	var totalReceivable, totalCost, totalImpact float64

	for _, p := range prioritized {
		inv := p.Invoice
		actions := SelectActions(p, customers.Get(p.CustomerID), weights)
		expected := ExpectedCollectionDate(inv.DueDate, today, actions)
		impact := FinancialImpact(inv.Amount, inv.DueDate, expected, borrowingRate)

		if actions == nil {
			actions = []Action{}
		}
		for _, a := range actions {
			totalCost += a.Cost
		}
		totalReceivable += inv.Amount
		totalImpact += impact

		plans = append(plans, Plan{
			InvoiceID:              inv.ID,
			CustomerID:             p.CustomerID,
			Amount:                 inv.Amount,
			DueDate:                datetime.FormatDate(inv.DueDate),
			DaysOverdue:            p.DaysOverdue,
			Priority:               p.Priority,
			Actions:                actions,
			ExpectedCollectionDate: datetime.FormatDate(expected),
			FinancialImpact:        impact,
		})
	}

	return Strategy{
		Plans: plans,
		Metrics: Metrics{
			TotalReceivable:      totalReceivable,
			TotalActionsCost:     totalCost,
			TotalFinancialImpact: totalImpact,
			ROI:                  mathutil.Ratio(totalImpact, totalCost),
		},
	}
}

// Settings configures an Optimizer.
type Settings struct {
	HorizonDays   int
	BorrowingRate float64
}

// DefaultSettings mirrors the planner defaults.
func DefaultSettings() Settings {
	return Settings{
		HorizonDays:   constants.DefaultHorizonDays,
		BorrowingRate: constants.DefaultBorrowingRate,
	}
}

// Result is the outcome of one Optimize call.
type Result struct {
	RunID        string    `json:"run_id" yaml:"run_id"`
	GeneratedAt  time.Time `json:"generated_at" yaml:"generated_at"`
	Objective    Objective `json:"objective" yaml:"objective"`
	CashPosition float64   `json:"cash_position" yaml:"cash_position"`
	Strategy     `yaml:",inline"`
}

// Optimizer plans collections. Customer importance is shared by every call on
// the same Optimizer.
type Optimizer struct {
	logger    *zap.Logger
	store     invoice.Store
	settings  Settings
	customers *importance.Registry
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
func New(logger *zap.Logger, store invoice.Store, settings Settings, customers *importance.Registry, opts ...Option) (*Optimizer, error) {
	if store == nil {
		return nil, fmt.Errorf("receivables: store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if customers == nil {
		customers, _ = importance.NewRegistry(nil)
	}
	if settings.HorizonDays <= 0 {
		settings.HorizonDays = constants.DefaultHorizonDays
	}

	o := &Optimizer{
		logger:    logger,
		store:     store,
		settings:  settings,
		customers: customers,
		clock:     datetime.SystemClock,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SetCustomerImportance records a customer's importance in [0,1].
func (o *Optimizer) SetCustomerImportance(customerID string, score float64) error {
	if err := o.customers.Set(customerID, score); err != nil {
		return err
	}
	o.logger.Info("customer importance updated",
		zap.String("op", "receivables.SetCustomerImportance"),
		zap.String("customer", customerID),
		zap.Float64("importance", score),
	)
	return nil
}

// Customers exposes the importance registry.
func (o *Optimizer) Customers() *importance.Registry {
	return o.customers
}

// Optimize fetches receivables within the horizon and plans their collection.
// The cash position is reported back but does not change the plan.
func (o *Optimizer) Optimize(ctx context.Context, cashPosition float64, objective Objective) (*Result, error) {
	invoices, err := o.store.ListInvoices(ctx, invoice.Receivable, o.settings.HorizonDays)
	if err != nil {
		return nil, fmt.Errorf("receivables: list invoices: %w", err)
	}
	invoices, err = invoice.ResolveEntities(ctx, o.logger, o.store, invoices)
	if err != nil {
		return nil, fmt.Errorf("receivables: %w", err)
	}
	return o.OptimizeInvoices(cashPosition, objective, invoices), nil
}

// OptimizeInvoices plans collection for an already fetched set of receivables.
func (o *Optimizer) OptimizeInvoices(cashPosition float64, objective Objective, invoices []invoice.Invoice) *Result {
	if objective == "" {
		objective = ObjectiveBalanced
	}
	now := o.clock()
	today := datetime.Truncate(now)
	customers := o.customers.Snapshot()

	strategy := BuildStrategy(Prioritize(invoices, customers, today), customers, objective.Weights(), o.settings.BorrowingRate, today)
	result := &Result{
		RunID:        uuid.NewString(),
		GeneratedAt:  now,
		Objective:    objective,
		CashPosition: cashPosition,
		Strategy:     strategy,
	}

	o.logger.Info("collection strategy optimized",
		zap.String("op", "receivables.Optimize"),
		zap.String("run", result.RunID),
		zap.String("objective", string(objective)),
		zap.Int("invoices", len(strategy.Plans)),
		zap.Float64("actionsCost", strategy.Metrics.TotalActionsCost),
		zap.Float64("financialImpact", strategy.Metrics.TotalFinancialImpact),
	)
	return result
}
