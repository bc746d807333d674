// Package receivables ranks customer invoices and chooses collection actions
// that balance faster cash against relationship damage and collection cost.
package receivables

import (
	"math"
	"sort"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/importance"
	"github.com/iwvelando/cashflow-planner/internal/invoice"
)

// Prioritized is a receivable annotated with its collection urgency.
type Prioritized struct {
	Invoice     invoice.Invoice
	CustomerID  string
	Priority    float64
	DaysOverdue int
}

// Prioritize scores every invoice and returns them highest priority first.
// Less important customers are chased harder. Equal scores keep input order.
func Prioritize(invoices []invoice.Invoice, customers importance.Snapshot, today time.Time) []Prioritized {
	prioritized := make([]Prioritized, 0, len(invoices))
	for _, inv := range invoices {
		daysOverdue := inv.DaysOverdue(today)
		priority := overduePriority(daysOverdue) +
			math.Min(20, inv.Amount/5000) +
			(1-customers.Get(inv.EntityID))*20

		prioritized = append(prioritized, Prioritized{
			Invoice:     inv,
			CustomerID:  inv.EntityID,
			Priority:    priority,
			DaysOverdue: daysOverdue,
		})
	}

	sort.SliceStable(prioritized, func(i, j int) bool {
		return prioritized[i].Priority > prioritized[j].Priority
	})
	return prioritized
}

// overduePriority bands on days overdue; non-positive values count days
// until due.
func overduePriority(daysOverdue int) float64 {
	switch {
	case daysOverdue > 90:
		return 100
	case daysOverdue > 60:
		return 90
	case daysOverdue > 30:
		return 80
	case daysOverdue > 0:
		return 70
	case -daysOverdue < 7:
		return 60
	case -daysOverdue < 14:
		return 50
	default:
		return 40
	}
}
