package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
	"go.uber.org/zap"
)

// Operation names accepted by Dispatch and registered as task types.
const (
	OpWorkingCapitalOptimize = "finance.working_capital.optimize"
	OpSetObjectiveWeights    = "finance.working_capital.set_objective_weights"
	OpPayablesOptimize       = "finance.accounts_payable.optimize"
	OpSetSupplierImportance  = "finance.accounts_payable.set_supplier_importance"
	OpReceivablesOptimize    = "finance.accounts_receivable.optimize"
	OpSetCustomerImportance  = "finance.accounts_receivable.set_customer_importance"
	OpCreateInvoice          = "finance.invoice.create"
	OpInvoicesByType         = "finance.invoice.get_by_type"
	OpCashFlowForecast       = "finance.cash_flow.forecast"
)

var knownOps = map[string]bool{
	OpWorkingCapitalOptimize: true,
	OpSetObjectiveWeights:    true,
	OpPayablesOptimize:       true,
	OpSetSupplierImportance:  true,
	OpReceivablesOptimize:    true,
	OpSetCustomerImportance:  true,
	OpCreateInvoice:          true,
	OpInvoicesByType:         true,
	OpCashFlowForecast:       true,
}

// KnownOperation reports whether op names a registered operation.
func KnownOperation(op string) bool {
	return knownOps[op]
}

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the envelope every dispatched operation answers with.
type Response struct {
	Status  string          `json:"status"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Handler runs one operation against a JSON payload.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Table maps operation names to handlers.
type Table map[string]Handler

// Operations returns the registered names in sorted order.
func (t Table) Operations() []string {
	ops := make([]string, 0, len(t))
	for op := range t {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// handle decodes the payload into Req and calls fn.
func handle[Req, Res any](fn func(context.Context, Req) (Res, error)) Handler {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req Req
		if err := decode(payload, &req); err != nil {
			return nil, err
		}
		return fn(ctx, req)
	}
}

func decode(payload json.RawMessage, into any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return validation.Errorf("payload", "malformed payload: %v", err)
	}
	return nil
}

// Table returns the operation table bound to this service.
func (s *Service) Table() Table {
	return Table{
		OpWorkingCapitalOptimize: handle(s.OptimizeWorkingCapital),
		OpSetObjectiveWeights:    handle(s.SetObjectiveWeights),
		OpPayablesOptimize:       handle(s.OptimizePayables),
		OpSetSupplierImportance:  handle(s.SetSupplierImportance),
		OpReceivablesOptimize:    handle(s.OptimizeReceivables),
		OpSetCustomerImportance:  handle(s.SetCustomerImportance),
		OpCreateInvoice:          handle(s.CreateInvoice),
		OpInvoicesByType:         handle(s.InvoicesByType),
		OpCashFlowForecast:       handle(s.CashFlowForecast),
	}
}

// Dispatch runs the named operation and wraps its outcome. Failures never
// escape as Go errors; they are reported in the envelope.
func (s *Service) Dispatch(ctx context.Context, op string, payload json.RawMessage) Response {
	handler, ok := s.Table()[op]
	if !ok {
		s.logger.Warn("unknown operation", zap.String("op", "dispatch.Dispatch"), zap.String("operation", op))
		return Response{Status: StatusError, Error: fmt.Sprintf("unknown operation %q", op)}
	}

	result, err := handler(ctx, payload)
	if err != nil {
		s.logger.Error("operation failed",
			zap.String("op", "dispatch.Dispatch"),
			zap.String("operation", op),
			zap.String("kind", errorKind(err)),
			zap.Error(err),
		)
		return Response{Status: StatusError, Error: err.Error()}
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("encoding result failed", zap.String("op", "dispatch.Dispatch"), zap.String("operation", op), zap.Error(err))
		return Response{Status: StatusError, Error: fmt.Sprintf("encode result: %v", err)}
	}
	return Response{Status: StatusSuccess, Payload: encoded}
}

// errorKind classifies err for logs and metrics.
func errorKind(err error) string {
	switch {
	case validation.IsValidation(err):
		return "validation"
	case errors.Is(err, invoice.ErrNotCreated):
		return "not_created"
	default:
		return "internal"
	}
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errorKind(err) != "internal"
}
