// Package testutil provides common utility functions for testing.
package testutil

import (
	"time"

	"github.com/iwvelando/cashflow-planner/internal/payables"
	"github.com/iwvelando/cashflow-planner/internal/receivables"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
)

// FixedClock returns a clock pinned to midnight of the given YYYY-MM-DD date.
func FixedClock(date string) datetime.Clock {
	today := datetime.MustParseDate(date)
	return func() time.Time { return today }
}

// FindPayment finds the scheduled payment for an invoice.
// Returns nil when the invoice is not in the schedule.
func FindPayment(payments []payables.Payment, invoiceID string) *payables.Payment {
	for i := range payments {
		if payments[i].InvoiceID == invoiceID {
			return &payments[i]
		}
	}
	return nil
}

// FindPlan finds the collection plan for an invoice.
// Returns nil when the invoice is not in the strategy.
func FindPlan(plans []receivables.Plan, invoiceID string) *receivables.Plan {
	for i := range plans {
		if plans[i].InvoiceID == invoiceID {
			return &plans[i]
		}
	}
	return nil
}
