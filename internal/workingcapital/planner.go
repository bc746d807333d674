package workingcapital

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/internal/payables"
	"github.com/iwvelando/cashflow-planner/internal/receivables"
	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Settings configures a Planner.
type Settings struct {
	HorizonDays    int
	BorrowingRate  float64
	InvestmentRate float64
	MinCashBuffer  float64
	InitialCash    float64
}

// DefaultSettings mirrors the planner defaults.
func DefaultSettings() Settings {
	return Settings{
		HorizonDays:    constants.DefaultHorizonDays,
		BorrowingRate:  constants.DefaultBorrowingRate,
		InvestmentRate: constants.DefaultInvestmentRate,
		MinCashBuffer:  constants.DefaultMinCashBuffer,
		InitialCash:    constants.DefaultInitialCash,
	}
}

// Request selects what a single Optimize call plans for. A nil CashPosition
// starts from the configured initial cash.
type Request struct {
	CashPosition *float64
	Scenario     Scenario
	Objective    receivables.Objective
}

// Result is the consolidated working-capital plan.
type Result struct {
	RunID           string                `json:"run_id" yaml:"run_id"`
	GeneratedAt     time.Time             `json:"generated_at" yaml:"generated_at"`
	Scenario        Scenario              `json:"scenario" yaml:"scenario"`
	Policy          Policy                `json:"policy" yaml:"policy"`
	InitialCash     float64               `json:"initial_cash" yaml:"initial_cash"`
	MinCashBuffer   float64               `json:"min_cash_buffer" yaml:"min_cash_buffer"`
	Weights         ObjectiveWeights      `json:"objective_weights" yaml:"objective_weights"`
	Metrics         SimulationMetrics     `json:"metrics" yaml:"metrics"`
	Recommendations Recommendations       `json:"recommendations" yaml:"recommendations"`
	Forecast        []invoice.ForecastRow `json:"cash_flow_forecast" yaml:"cash_flow_forecast"`
	Projection      []ProjectionPoint     `json:"cash_balance_projection" yaml:"cash_balance_projection"`
	PaymentSchedule *payables.Schedule    `json:"payment_schedule,omitempty" yaml:"payment_schedule,omitempty"`
	Collections     *receivables.Strategy `json:"collection_strategy,omitempty" yaml:"collection_strategy,omitempty"`
}

// Planner runs working-capital scenarios. Objective weights are shared by
// every call on the same Planner.
type Planner struct {
	logger      *zap.Logger
	store       invoice.Store
	settings    Settings
	weights     *Weights
	clock       datetime.Clock
	payables    *payables.Optimizer
	receivables *receivables.Optimizer
}

// Option customizes a Planner.
type Option func(*Planner)

// WithClock pins the planner's notion of today.
func WithClock(clock datetime.Clock) Option {
	return func(p *Planner) {
		p.clock = clock
	}
}

// WithSchedulers attaches the detailed payment and collection optimizers.
// Their output is merged into the result using the invoices the planner
// already fetched. Either may be nil.
func WithSchedulers(ap *payables.Optimizer, ar *receivables.Optimizer) Option {
	return func(p *Planner) {
		p.payables = ap
		p.receivables = ar
	}
}

// New constructs a Planner with the given starting weights.
func New(logger *zap.Logger, store invoice.Store, settings Settings, weights ObjectiveWeights, opts ...Option) (*Planner, error) {
	if store == nil {
		return nil, fmt.Errorf("workingcapital: store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.HorizonDays <= 0 {
		settings.HorizonDays = constants.DefaultHorizonDays
	}
	held, err := NewWeights(weights)
	if err != nil {
		return nil, fmt.Errorf("workingcapital: initial weights: %w", err)
	}

	p := &Planner{
		logger:   logger,
		store:    store,
		settings: settings,
		weights:  held,
		clock:    datetime.SystemClock,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SetObjectiveWeights requires all four weight keys and normalizes them to
// sum to 1.
func (p *Planner) SetObjectiveWeights(values map[string]float64) (ObjectiveWeights, error) {
	normalized, err := p.weights.Set(values)
	if err != nil {
		return ObjectiveWeights{}, err
	}
	p.logger.Info("objective weights updated",
		zap.String("op", "workingcapital.SetObjectiveWeights"),
		zap.Float64("liquidity", normalized.Liquidity),
		zap.Float64("financingCost", normalized.FinancingCost),
		zap.Float64("transactionCost", normalized.TransactionCost),
		zap.Float64("relationship", normalized.Relationship),
	)
	return normalized, nil
}

// Weights returns the objective weights in effect.
func (p *Planner) Weights() ObjectiveWeights {
	return p.weights.Current()
}

// Settings returns the planner configuration.
func (p *Planner) Settings() Settings {
	return p.settings
}

type fetched struct {
	receivables []invoice.Invoice
	payables    []invoice.Invoice
	forecast    []invoice.ForecastRow
}

func (p *Planner) fetch(ctx context.Context) (fetched, error) {
	var out fetched
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		invoices, err := p.store.ListInvoices(gctx, invoice.Receivable, p.settings.HorizonDays)
		if err != nil {
			return fmt.Errorf("list receivables: %w", err)
		}
		out.receivables, err = invoice.ResolveEntities(gctx, p.logger, p.store, invoices)
		return err
	})
	g.Go(func() error {
		invoices, err := p.store.ListInvoices(gctx, invoice.Payable, p.settings.HorizonDays)
		if err != nil {
			return fmt.Errorf("list payables: %w", err)
		}
		out.payables, err = invoice.ResolveEntities(gctx, p.logger, p.store, invoices)
		return err
	})
	g.Go(func() error {
		rows, err := p.store.CashFlowForecast(gctx, p.settings.HorizonDays)
		if err != nil {
			return fmt.Errorf("cash flow forecast: %w", err)
		}
		out.forecast = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return fetched{}, err
	}
	return out, nil
}

// Optimize simulates the scenario over the horizon and builds the
// recommendations.
func (p *Planner) Optimize(ctx context.Context, req Request) (*Result, error) {
	scenario := req.Scenario
	if scenario == "" {
		scenario = ScenarioBase
	}
	policy := scenario.Policy()
	buffer := policy.Buffer(p.settings.MinCashBuffer)
	initialCash := p.settings.InitialCash
	if req.CashPosition != nil {
		initialCash = *req.CashPosition
	}

	data, err := p.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("workingcapital: %w", err)
	}

	now := p.clock()
	today := datetime.Truncate(now)
	forecast, err := invoice.FillForecast(data.forecast, today, p.settings.HorizonDays)
	if err != nil {
		return nil, err
	}

	projection := Simulate(forecast, initialCash, buffer, policy.ARAdjustment, policy.APAdjustment)
	metrics := Summarize(projection, buffer, Rates{
		BorrowingRate:  p.settings.BorrowingRate,
		InvestmentRate: p.settings.InvestmentRate,
	}, p.settings.HorizonDays)

	result := &Result{
		RunID:         uuid.NewString(),
		GeneratedAt:   now,
		Scenario:      scenario,
		Policy:        policy,
		InitialCash:   initialCash,
		MinCashBuffer: buffer,
		Weights:       p.weights.Current(),
		Metrics:       metrics,
		Recommendations: Recommendations{
			AccountsPayable:    RecommendPayables(data.payables, forecast, projection, buffer, p.settings.BorrowingRate),
			AccountsReceivable: RecommendReceivables(data.receivables, forecast, projection, buffer),
		},
		Forecast:   forecastRows(forecast),
		Projection: projection,
	}

	if p.payables != nil {
		schedule := p.payables.OptimizeInvoices(initialCash, data.payables).Schedule
		result.PaymentSchedule = &schedule
	}
	if p.receivables != nil {
		strategy := p.receivables.OptimizeInvoices(initialCash, req.Objective, data.receivables).Strategy
		result.Collections = &strategy
	}

	if skipped := len(data.payables) - len(result.Recommendations.AccountsPayable); skipped > 0 {
		p.logger.Debug("payables due outside the forecast window were not recommended",
			zap.String("op", "workingcapital.Optimize"),
			zap.Int("skipped", skipped),
		)
	}
	p.logger.Info("working capital optimized",
		zap.String("op", "workingcapital.Optimize"),
		zap.String("run", result.RunID),
		zap.String("scenario", string(scenario)),
		zap.Int("days", len(forecast)),
		zap.Float64("minimumBalance", metrics.MinimumCashBalance),
		zap.Float64("totalBorrowing", metrics.TotalBorrowing),
		zap.Int("payables", len(result.Recommendations.AccountsPayable)),
		zap.Int("receivables", len(result.Recommendations.AccountsReceivable)),
	)
	return result, nil
}

func forecastRows(days []invoice.ForecastDay) []invoice.ForecastRow {
	rows := make([]invoice.ForecastRow, 0, len(days))
	for _, d := range days {
		rows = append(rows, invoice.ForecastRow{
			Date:    datetime.FormatDate(d.Date),
			Inflow:  d.Inflow,
			Outflow: d.Outflow,
		})
	}
	return rows
}
