// Package invoice defines the receivable/payable records the planner reasons
// about, the per-day cash-flow forecast, and the storage collaborator contract.
package invoice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
)

// Type distinguishes receivables from payables.
type Type string

const (
	// Receivable is money owed to the company by a customer.
	Receivable Type = "AR"
	// Payable is money the company owes a supplier.
	Payable Type = "AP"
)

// ParseType accepts "AR"/"AP" in any case.
func ParseType(value string) (Type, error) {
	switch Type(strings.ToUpper(strings.TrimSpace(value))) {
	case Receivable:
		return Receivable, nil
	case Payable:
		return Payable, nil
	}
	return "", validation.Errorf("type", "invoice type must be AR or AP, got %q", value)
}

// ErrNotCreated is returned by a Store when the record could not be written,
// for example because the owning entity does not exist.
var ErrNotCreated = errors.New("invoice not created")

// Invoice is one receivable or payable obligation. Records are immutable once
// created; the planner only reads them.
type Invoice struct {
	ID               string     `json:"id"`
	Amount           float64    `json:"amount"`
	Type             Type       `json:"type"`
	IssueDate        time.Time  `json:"issueDate"`
	DueDate          time.Time  `json:"dueDate"`
	EntityID         string     `json:"entityId,omitempty"`
	EarlyPaymentDate *time.Time `json:"earlyPaymentDate,omitempty"`
	DiscountRate     *float64   `json:"discountRate,omitempty"`
}

// HasDiscount reports whether the invoice carries early-payment terms.
func (i Invoice) HasDiscount() bool {
	return i.EarlyPaymentDate != nil && i.DiscountRate != nil
}

// DaysUntilDue is negative once the invoice is overdue.
func (i Invoice) DaysUntilDue(today time.Time) int {
	return datetime.DaysBetween(today, i.DueDate)
}

// DaysOverdue is positive once the invoice is past due.
func (i Invoice) DaysOverdue(today time.Time) int {
	return datetime.DaysBetween(i.DueDate, today)
}

// DaysUntilDiscount returns the days left in the discount window and false
// when the invoice has no discount terms.
func (i Invoice) DaysUntilDiscount(today time.Time) (int, bool) {
	if !i.HasDiscount() {
		return 0, false
	}
	return datetime.DaysBetween(today, *i.EarlyPaymentDate), true
}

// Entity is a customer or supplier.
type Entity struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// ForecastRow is one aggregated day as returned by the storage collaborator.
// Dates may be missing or repeated; FillForecast normalizes them.
type ForecastRow struct {
	Date    string  `json:"date"`
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
}

// ForecastDay is one day of a gap-filled forecast.
type ForecastDay struct {
	Date    time.Time `json:"date"`
	Inflow  float64   `json:"inflow"`
	Outflow float64   `json:"outflow"`
}

// Store is everything the planner needs from persistence. Implementations
// must return invoices of a single type whose due date falls on or before
// today + horizonDays, ordered by due date.
type Store interface {
	ListInvoices(ctx context.Context, typ Type, horizonDays int) ([]Invoice, error)
	CashFlowForecast(ctx context.Context, horizonDays int) ([]ForecastRow, error)
	CreateInvoice(ctx context.Context, inv Invoice) (*Invoice, error)
}

// EntityResolver is implemented by stores that can find the owning customer
// or supplier for records that lack an EntityID.
type EntityResolver interface {
	EntityForInvoice(ctx context.Context, invoiceID string) (string, bool, error)
}
