// Package dispatch exposes the planner operations by name. The same handlers
// back the message-style Dispatch entry point, the asynq worker and the HTTP
// server.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/internal/payables"
	"github.com/iwvelando/cashflow-planner/internal/receivables"
	"github.com/iwvelando/cashflow-planner/internal/workingcapital"
	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
	"go.uber.org/zap"
)

// WorkingCapitalRequest selects a working-capital run.
type WorkingCapitalRequest struct {
	CashPosition *float64 `json:"cash_position,omitempty"`
	Scenario     string   `json:"scenario,omitempty"`
	Objective    string   `json:"objective,omitempty"`
}

// WeightsRequest replaces the objective weights.
type WeightsRequest struct {
	Weights map[string]float64 `json:"weights"`
}

// PayablesRequest schedules supplier payments from a cash position.
type PayablesRequest struct {
	CashPosition float64 `json:"cash_position"`
}

// ReceivablesRequest plans collections for an objective.
type ReceivablesRequest struct {
	CashPosition float64 `json:"cash_position"`
	Objective    string  `json:"objective,omitempty"`
}

// ImportanceRequest sets one counterparty's importance. Only the id matching
// the operation is read.
type ImportanceRequest struct {
	SupplierID string   `json:"supplier_id,omitempty"`
	CustomerID string   `json:"customer_id,omitempty"`
	Score      *float64 `json:"importance_score"`
}

// InvoicesRequest lists open invoices of one type.
type InvoicesRequest struct {
	Type        string `json:"type"`
	DaysHorizon int    `json:"days_horizon,omitempty"`
}

// ForecastRequest asks for the aggregated cash-flow forecast.
type ForecastRequest struct {
	DaysHorizon int `json:"days_horizon,omitempty"`
}

// ImportanceResult acknowledges an importance update.
type ImportanceResult struct {
	ID         string  `json:"id"`
	Importance float64 `json:"importance_score"`
}

// Service binds the optimizers and the invoice store behind named operations.
type Service struct {
	logger      *zap.Logger
	store       invoice.Store
	payables    *payables.Optimizer
	receivables *receivables.Optimizer
	planner     *workingcapital.Planner
	metrics     *Metrics
}

// NewService wires the operations. metrics may be nil.
func NewService(logger *zap.Logger, store invoice.Store, ap *payables.Optimizer, ar *receivables.Optimizer, planner *workingcapital.Planner, metrics *Metrics) (*Service, error) {
	if store == nil || ap == nil || ar == nil || planner == nil {
		return nil, errors.New("dispatch: store and optimizers are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:      logger,
		store:       store,
		payables:    ap,
		receivables: ar,
		planner:     planner,
		metrics:     metrics,
	}, nil
}

func (s *Service) observe(op string, start time.Time, err error) {
	s.metrics.observe(op, time.Since(start), err)
}

// OptimizeWorkingCapital runs the consolidated planner.
func (s *Service) OptimizeWorkingCapital(ctx context.Context, req WorkingCapitalRequest) (result *workingcapital.Result, err error) {
	defer func(start time.Time) { s.observe(OpWorkingCapitalOptimize, start, err) }(time.Now())

	scenario, err := workingcapital.ParseScenario(req.Scenario)
	if err != nil {
		return nil, err
	}
	objective, err := receivables.ParseObjective(req.Objective)
	if err != nil {
		return nil, err
	}
	if req.CashPosition != nil && *req.CashPosition < 0 {
		return nil, validation.Errorf("cash_position", "must not be negative")
	}
	return s.planner.Optimize(ctx, workingcapital.Request{
		CashPosition: req.CashPosition,
		Scenario:     scenario,
		Objective:    objective,
	})
}

// SetObjectiveWeights replaces and normalizes the planner weights.
func (s *Service) SetObjectiveWeights(_ context.Context, req WeightsRequest) (workingcapital.ObjectiveWeights, error) {
	return s.planner.SetObjectiveWeights(req.Weights)
}

// OptimizePayables schedules supplier payments.
func (s *Service) OptimizePayables(ctx context.Context, req PayablesRequest) (result *payables.Result, err error) {
	defer func(start time.Time) { s.observe(OpPayablesOptimize, start, err) }(time.Now())

	if req.CashPosition < 0 {
		return nil, validation.Errorf("cash_position", "must not be negative")
	}
	return s.payables.Optimize(ctx, req.CashPosition)
}

// SetSupplierImportance records a supplier importance score.
func (s *Service) SetSupplierImportance(_ context.Context, req ImportanceRequest) (ImportanceResult, error) {
	if req.SupplierID == "" {
		return ImportanceResult{}, validation.Errorf("supplier_id", "is required")
	}
	if req.Score == nil {
		return ImportanceResult{}, validation.Errorf("importance_score", "is required")
	}
	if err := s.payables.SetSupplierImportance(req.SupplierID, *req.Score); err != nil {
		return ImportanceResult{}, err
	}
	return ImportanceResult{ID: req.SupplierID, Importance: *req.Score}, nil
}

// OptimizeReceivables plans collection actions.
func (s *Service) OptimizeReceivables(ctx context.Context, req ReceivablesRequest) (result *receivables.Result, err error) {
	defer func(start time.Time) { s.observe(OpReceivablesOptimize, start, err) }(time.Now())

	objective, err := receivables.ParseObjective(req.Objective)
	if err != nil {
		return nil, err
	}
	if req.CashPosition < 0 {
		return nil, validation.Errorf("cash_position", "must not be negative")
	}
	return s.receivables.Optimize(ctx, req.CashPosition, objective)
}

// SetCustomerImportance records a customer importance score.
func (s *Service) SetCustomerImportance(_ context.Context, req ImportanceRequest) (ImportanceResult, error) {
	if req.CustomerID == "" {
		return ImportanceResult{}, validation.Errorf("customer_id", "is required")
	}
	if req.Score == nil {
		return ImportanceResult{}, validation.Errorf("importance_score", "is required")
	}
	if err := s.receivables.SetCustomerImportance(req.CustomerID, *req.Score); err != nil {
		return ImportanceResult{}, err
	}
	return ImportanceResult{ID: req.CustomerID, Importance: *req.Score}, nil
}

// CreateInvoice validates and stores a new invoice.
func (s *Service) CreateInvoice(ctx context.Context, in invoice.Input) (*invoice.Invoice, error) {
	inv, err := in.Build()
	if err != nil {
		return nil, err
	}
	created, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("dispatch: create invoice %s: %w", inv.ID, err)
	}
	s.logger.Info("invoice created",
		zap.String("op", "dispatch.CreateInvoice"),
		zap.String("invoice", created.ID),
		zap.String("type", string(created.Type)),
		zap.Float64("amount", created.Amount),
	)
	return created, nil
}

// InvoicesByType lists open invoices of one type due within the horizon.
func (s *Service) InvoicesByType(ctx context.Context, req InvoicesRequest) ([]invoice.Invoice, error) {
	typ, err := invoice.ParseType(req.Type)
	if err != nil {
		return nil, err
	}
	horizon, err := horizonDays(req.DaysHorizon)
	if err != nil {
		return nil, err
	}
	invoices, err := s.store.ListInvoices(ctx, typ, horizon)
	if err != nil {
		return nil, fmt.Errorf("dispatch: list %s invoices: %w", typ, err)
	}
	if invoices == nil {
		invoices = []invoice.Invoice{}
	}
	return invoices, nil
}

// CashFlowForecast returns the aggregated daily inflow and outflow rows.
func (s *Service) CashFlowForecast(ctx context.Context, req ForecastRequest) ([]invoice.ForecastRow, error) {
	horizon, err := horizonDays(req.DaysHorizon)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.CashFlowForecast(ctx, horizon)
	if err != nil {
		return nil, fmt.Errorf("dispatch: cash flow forecast: %w", err)
	}
	if rows == nil {
		rows = []invoice.ForecastRow{}
	}
	return rows, nil
}

// horizonDays defaults an unset horizon and bounds it to [1, MaxHorizonDays].
func horizonDays(days int) (int, error) {
	if days == 0 {
		return constants.DefaultHorizonDays, nil
	}
	if days < 1 || days > constants.MaxHorizonDays {
		return 0, validation.Errorf("days_horizon", "must be between 1 and %d, got %d", constants.MaxHorizonDays, days)
	}
	return days, nil
}
