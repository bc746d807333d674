package payables

import (
	"math"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/importance"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/iwvelando/cashflow-planner/pkg/mathutil"
)

// PaymentType tags how a payment was scheduled.
type PaymentType string

// Payment types.
const (
	EarlyWithDiscount      PaymentType = "early_with_discount"
	OnDueDate              PaymentType = "on_due_date"
	EarlyImportantSupplier PaymentType = "early_important_supplier"
	DelayedCashConstraint  PaymentType = "delayed_cash_constraint"
)

const (
	importantSupplierThreshold = 0.8
	importantSupplierWindow    = 5
	maxDelayDays               = 10
)

// Payment is one scheduled supplier payment. RemainingCash is the cash left
// after this and every earlier payment in the schedule.
type Payment struct {
	InvoiceID      string      `json:"invoice_id" yaml:"invoice_id"`
	SupplierID     string      `json:"supplier_id" yaml:"supplier_id"`
	Amount         float64     `json:"amount" yaml:"amount"`
	PaymentAmount  float64     `json:"payment_amount" yaml:"payment_amount"`
	DueDate        string      `json:"due_date" yaml:"due_date"`
	PaymentDate    string      `json:"payment_date" yaml:"payment_date"`
	PaymentType    PaymentType `json:"payment_type" yaml:"payment_type"`
	Priority       float64     `json:"priority" yaml:"priority"`
	DiscountAmount float64     `json:"discount_amount" yaml:"discount_amount"`
	RemainingCash  float64     `json:"remaining_cash" yaml:"remaining_cash"`
}

// Metrics summarize a payment schedule. Percentages are scaled to 0-100.
type Metrics struct {
	TotalPayable          float64 `json:"total_payable" yaml:"total_payable"`
	TotalDiscountCaptured float64 `json:"total_discount_captured" yaml:"total_discount_captured"`
	DiscountPercentage    float64 `json:"discount_percentage" yaml:"discount_percentage"`
	OnTimePercentage      float64 `json:"on_time_percentage" yaml:"on_time_percentage"`
	RemainingCash         float64 `json:"remaining_cash" yaml:"remaining_cash"`
}

// Schedule is the payment plan for one optimize call.
type Schedule struct {
	Payments []Payment `json:"payment_schedule" yaml:"payment_schedule"`
	Metrics  Metrics   `json:"metrics" yaml:"metrics"`
}

// Policy carries the rates the scheduler weighs against each other.
type Policy struct {
	BorrowingRate float64
	MinCashBuffer float64
}

// BuildSchedule walks the prioritized invoices in order and commits each
// payment against the cash still available. The allocation is greedy: an
// earlier invoice can starve a later one.
func BuildSchedule(cashPosition float64, prioritized []Prioritized, suppliers importance.Snapshot, policy Policy, today time.Time) Schedule {
	remaining := cashPosition
	payments := make([]Payment, 0, len(prioritized))

	var totalPayable, totalDiscount float64
	onTime := 0

	for _, p := range prioritized {
		inv := p.Invoice
		amount := inv.Amount
		totalPayable += amount

		payment := Payment{
			InvoiceID:     inv.ID,
			SupplierID:    p.SupplierID,
			Amount:        amount,
			PaymentAmount: amount,
			DueDate:       datetime.FormatDate(inv.DueDate),
			PaymentDate:   datetime.FormatDate(inv.DueDate),
			PaymentType:   OnDueDate,
			Priority:      p.Priority,
		}

		if inv.HasDiscount() {
			daysUntilDiscount, _ := inv.DaysUntilDiscount(today)
			discount := amount * *inv.DiscountRate
			daysEarly := p.DaysUntilDue - daysUntilDiscount
			opportunityCost := amount * policy.BorrowingRate * float64(daysEarly)

			if discount > opportunityCost && remaining >= amount {
				payment.PaymentDate = datetime.FormatDate(*inv.EarlyPaymentDate)
				payment.PaymentAmount = amount - discount
				payment.PaymentType = EarlyWithDiscount
				payment.DiscountAmount = discount
				totalDiscount += discount
			}
			remaining -= payment.PaymentAmount
		} else {
			score := suppliers.Get(p.SupplierID)
			switch {
			case score > importantSupplierThreshold:
				if p.DaysUntilDue <= importantSupplierWindow && remaining >= amount {
					payment.PaymentDate = datetime.FormatDate(today)
					payment.PaymentType = EarlyImportantSupplier
				}
				remaining -= amount
			case remaining < policy.MinCashBuffer+amount:
				// Deferred payments are not deducted until they are actually made.
				payment.PaymentDate = datetime.FormatDate(datetime.AddDays(inv.DueDate, DelayDays(score)))
				payment.PaymentType = DelayedCashConstraint
			default:
				remaining -= amount
			}
		}

		if payment.PaymentType != DelayedCashConstraint {
			onTime++
		}
		payment.RemainingCash = remaining
		payments = append(payments, payment)
	}

	return Schedule{
		Payments: payments,
		Metrics: Metrics{
			TotalPayable:          totalPayable,
			TotalDiscountCaptured: totalDiscount,
			DiscountPercentage:    mathutil.CalculatePercentage(totalDiscount, totalPayable),
			OnTimePercentage:      mathutil.CalculatePercentage(float64(onTime), float64(len(payments))),
			RemainingCash:         remaining,
		},
	}
}

// DelayDays is how long a cash-constrained payment to a supplier with the
// given importance is pushed past its due date: 1 to 10 days, shorter for
// more important suppliers.
func DelayDays(score float64) int {
	days := int(math.Round(30 * (1 - score)))
	if days < 1 {
		days = 1
	}
	if days > maxDelayDays {
		days = maxDelayDays
	}
	return days
}
