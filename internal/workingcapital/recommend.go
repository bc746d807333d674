package workingcapital

import (
	"sort"

	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
)

const (
	apDelayDays = 7
	// discountHorizonDays is the financing period an early payment is
	// assumed to give up.
	discountHorizonDays = 30
	largeReceivable     = 50000
)

// PayableRecommendation is the planning-level advice for one supplier invoice.
type PayableRecommendation struct {
	InvoiceID              string   `json:"invoice_id" yaml:"invoice_id"`
	Amount                 float64  `json:"amount" yaml:"amount"`
	DueDate                string   `json:"due_date" yaml:"due_date"`
	Action                 string   `json:"action" yaml:"action"`
	Reason                 string   `json:"reason" yaml:"reason"`
	RecommendedPaymentDate string   `json:"recommended_payment_date" yaml:"recommended_payment_date"`
	DiscountAmount         *float64 `json:"discount_amount,omitempty" yaml:"discount_amount,omitempty"`
}

// CollectionStep is one suggested collection touchpoint.
type CollectionStep struct {
	Type     string `json:"type" yaml:"type"`
	Timing   string `json:"timing" yaml:"timing"`
	Priority string `json:"priority" yaml:"priority"`
}

// ReceivableRecommendation is the planning-level advice for one customer
// invoice.
type ReceivableRecommendation struct {
	InvoiceID          string           `json:"invoice_id" yaml:"invoice_id"`
	Amount             float64          `json:"amount" yaml:"amount"`
	DueDate            string           `json:"due_date" yaml:"due_date"`
	Action             string           `json:"action" yaml:"action"`
	Reason             string           `json:"reason" yaml:"reason"`
	RecommendedActions []CollectionStep `json:"recommended_actions" yaml:"recommended_actions"`
}

// Recommendations groups the coarse advice for both sides of the ledger.
type Recommendations struct {
	AccountsPayable    []PayableRecommendation    `json:"accounts_payable" yaml:"accounts_payable"`
	AccountsReceivable []ReceivableRecommendation `json:"accounts_receivable" yaml:"accounts_receivable"`
}

// byDueDate returns a copy of invoices ordered by due date.
func byDueDate(invoices []invoice.Invoice) []invoice.Invoice {
	sorted := make([]invoice.Invoice, len(invoices))
	copy(sorted, invoices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DueDate.Before(sorted[j].DueDate)
	})
	return sorted
}

// balanceOnDueDate is the projected balance entering the invoice's due date.
// Invoices due outside the forecast window report false.
func balanceOnDueDate(inv invoice.Invoice, forecast []invoice.ForecastDay, projection []ProjectionPoint) (float64, bool) {
	idx, ok := invoice.IndexOf(forecast, inv.DueDate)
	if !ok || idx >= len(projection) {
		return 0, false
	}
	return projection[idx].Balance, true
}

// RecommendPayables flags payables that land on cash-tight days for delay and
// suggests taking discounts that beat a month of financing. Invoices due
// outside the forecast window are skipped.
func RecommendPayables(invoices []invoice.Invoice, forecast []invoice.ForecastDay, projection []ProjectionPoint, buffer, borrowingRate float64) []PayableRecommendation {
	recs := make([]PayableRecommendation, 0, len(invoices))
	for _, inv := range byDueDate(invoices) {
		balance, ok := balanceOnDueDate(inv, forecast, projection)
		if !ok {
			continue
		}

		due := datetime.FormatDate(inv.DueDate)
		rec := PayableRecommendation{
			InvoiceID:              inv.ID,
			Amount:                 inv.Amount,
			DueDate:                due,
			Action:                 "pay_on_time",
			Reason:                 "Maintain supplier relationship",
			RecommendedPaymentDate: due,
		}

		switch {
		case balance < buffer+inv.Amount:
			rec.Action = "delay"
			rec.Reason = "Cash flow constraint"
			rec.RecommendedPaymentDate = datetime.FormatDate(datetime.AddDays(inv.DueDate, apDelayDays))
		case inv.HasDiscount():
			discount := inv.Amount * *inv.DiscountRate
			if discount > inv.Amount*borrowingRate*discountHorizonDays {
				rec.Action = "pay_early"
				rec.Reason = "Discount benefit exceeds financing cost"
				rec.RecommendedPaymentDate = datetime.FormatDate(*inv.EarlyPaymentDate)
				rec.DiscountAmount = &discount
			} else {
				rec.Reason = "Optimal cash management"
			}
		}
		recs = append(recs, rec)
	}
	return recs
}

// RecommendReceivables asks for accelerated collection on invoices due when
// the projected balance is under the buffer, and a standard reminder cadence
// otherwise.
func RecommendReceivables(invoices []invoice.Invoice, forecast []invoice.ForecastDay, projection []ProjectionPoint, buffer float64) []ReceivableRecommendation {
	recs := make([]ReceivableRecommendation, 0, len(invoices))
	for _, inv := range byDueDate(invoices) {
		balance, ok := balanceOnDueDate(inv, forecast, projection)
		if !ok {
			continue
		}

		rec := ReceivableRecommendation{
			InvoiceID: inv.ID,
			Amount:    inv.Amount,
			DueDate:   datetime.FormatDate(inv.DueDate),
		}
		if balance < buffer {
			rec.Action = "accelerate"
			rec.Reason = "Cash flow constraint"
			rec.RecommendedActions = []CollectionStep{
				{Type: "reminder", Timing: "immediately", Priority: "high"},
				{Type: "call", Timing: "3_days_before_due", Priority: "high"},
			}
		} else {
			rec.Action = "standard"
			rec.Reason = "Regular collection process"
			rec.RecommendedActions = []CollectionStep{
				{Type: "reminder", Timing: "7_days_before_due", Priority: "normal"},
				{Type: "reminder", Timing: "1_day_after_due", Priority: "normal"},
			}
			if inv.Amount > largeReceivable {
				rec.RecommendedActions = append(rec.RecommendedActions,
					CollectionStep{Type: "call", Timing: "3_days_after_due", Priority: "high"})
			}
		}
		recs = append(recs, rec)
	}
	return recs
}
