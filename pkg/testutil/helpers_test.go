package testutil

import (
	"testing"

	"github.com/iwvelando/cashflow-planner/internal/payables"
	"github.com/iwvelando/cashflow-planner/internal/receivables"
)

func TestFixedClock(t *testing.T) {
	clock := FixedClock("2025-04-01")
	if got := clock().Format("2006-01-02"); got != "2025-04-01" {
		t.Errorf("FixedClock() = %s, want 2025-04-01", got)
	}
	if !clock().Equal(clock()) {
		t.Errorf("FixedClock() should return the same instant on every call")
	}
}

func TestFindPayment(t *testing.T) {
	payments := []payables.Payment{
		{InvoiceID: "AP1", Amount: 1000},
		{InvoiceID: "AP2", Amount: 2000},
	}

	tests := []struct {
		name       string
		invoiceID  string
		wantFound  bool
		wantAmount float64
	}{
		{name: "first", invoiceID: "AP1", wantFound: true, wantAmount: 1000},
		{name: "second", invoiceID: "AP2", wantFound: true, wantAmount: 2000},
		{name: "missing", invoiceID: "AP3"},
		{name: "empty id", invoiceID: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPayment(payments, tt.invoiceID)
			if (got != nil) != tt.wantFound {
				t.Fatalf("FindPayment(%q) found = %v, want %v", tt.invoiceID, got != nil, tt.wantFound)
			}
			if got != nil && got.Amount != tt.wantAmount {
				t.Errorf("FindPayment(%q).Amount = %v, want %v", tt.invoiceID, got.Amount, tt.wantAmount)
			}
		})
	}

	// The result points into the slice.
	FindPayment(payments, "AP2").Priority = 42
	if payments[1].Priority != 42 {
		t.Errorf("FindPayment should return a pointer into the slice")
	}
}

func TestFindPlan(t *testing.T) {
	plans := []receivables.Plan{{InvoiceID: "AR1", DaysOverdue: 12}}

	if got := FindPlan(plans, "AR1"); got == nil || got.DaysOverdue != 12 {
		t.Errorf("FindPlan(AR1) = %+v", got)
	}
	if got := FindPlan(plans, "AR2"); got != nil {
		t.Errorf("FindPlan(AR2) = %+v, want nil", got)
	}
	if got := FindPlan(nil, "AR1"); got != nil {
		t.Errorf("FindPlan(nil) = %+v, want nil", got)
	}
}
