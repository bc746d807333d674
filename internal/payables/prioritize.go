// Package payables orders supplier invoices by urgency and turns them into a
// payment schedule that trades discount capture against cash on hand.
package payables

import (
	"sort"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/importance"
	"github.com/iwvelando/cashflow-planner/internal/invoice"
)

// Prioritized is a payable annotated with its urgency for one optimize call.
type Prioritized struct {
	Invoice      invoice.Invoice
	SupplierID   string
	Priority     float64
	DaysUntilDue int
}

// Prioritize scores every invoice and returns them highest priority first.
// Equal scores keep their input order.
func Prioritize(invoices []invoice.Invoice, suppliers importance.Snapshot, today time.Time) []Prioritized {
	prioritized := make([]Prioritized, 0, len(invoices))
	for _, inv := range invoices {
		daysUntilDue := inv.DaysUntilDue(today)
		priority := duePriority(daysUntilDue) +
			discountPriority(inv, today) +
			suppliers.Get(inv.EntityID)*20

		prioritized = append(prioritized, Prioritized{
			Invoice:      inv,
			SupplierID:   inv.EntityID,
			Priority:     priority,
			DaysUntilDue: daysUntilDue,
		})
	}

	sort.SliceStable(prioritized, func(i, j int) bool {
		return prioritized[i].Priority > prioritized[j].Priority
	})
	return prioritized
}

func duePriority(daysUntilDue int) float64 {
	switch {
	case daysUntilDue < 0:
		return 100
	case daysUntilDue < 7:
		return 90
	case daysUntilDue < 14:
		return 80
	case daysUntilDue < 30:
		return 70
	default:
		return 60
	}
}

// discountPriority rewards open discount windows; a 2% discount closing
// within a week is worth 40 points.
func discountPriority(inv invoice.Invoice, today time.Time) float64 {
	daysUntilDiscount, ok := inv.DaysUntilDiscount(today)
	if !ok || daysUntilDiscount < 0 {
		return 0
	}
	rate := *inv.DiscountRate
	if daysUntilDiscount < 7 {
		return 20 * rate * 100
	}
	return 10 * rate * 100
}
