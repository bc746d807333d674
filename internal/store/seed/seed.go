// Package seed generates a reproducible sample book of customers, suppliers
// and open invoices.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/iwvelando/cashflow-planner/pkg/mathutil"
	"go.uber.org/zap"
)

const (
	receivableCount    = 20
	receivableTerms    = 30
	receivableMaxAge   = 60
	payableCount       = 15
	payableTerms       = 45
	payableMaxAge      = 45
	discountShare      = 0.3
	discountRate       = 0.02
	discountWindowDays = 10
)

// Customers are the sample customers.
var Customers = []invoice.Entity{
	{ID: "cust001", Name: "Acme Corp"},
	{ID: "cust002", Name: "Beta Industries"},
	{ID: "cust003", Name: "Gamma Technologies"},
	{ID: "cust004", Name: "Delta Services"},
	{ID: "cust005", Name: "Epsilon Enterprises"},
}

// Suppliers are the sample suppliers.
var Suppliers = []invoice.Entity{
	{ID: "supp001", Name: "Alpha Materials"},
	{ID: "supp002", Name: "Bravo Components"},
	{ID: "supp003", Name: "Charlie Manufacturing"},
	{ID: "supp004", Name: "Delta Logistics"},
	{ID: "supp005", Name: "Echo Electronics"},
}

// Dataset is one generated sample book.
type Dataset struct {
	Customers []invoice.Entity
	Suppliers []invoice.Entity
	Invoices  []invoice.Invoice
}

// Generate builds a dataset dated relative to today. The same seed and day
// always yield the same invoices.
func Generate(seed int64, today time.Time) Dataset {
	rng := rand.New(rand.NewSource(seed))
	today = datetime.Truncate(today)

	ds := Dataset{
		Customers: append([]invoice.Entity(nil), Customers...),
		Suppliers: append([]invoice.Entity(nil), Suppliers...),
		Invoices:  make([]invoice.Invoice, 0, receivableCount+payableCount),
	}

	for i := 0; i < receivableCount; i++ {
		customer := Customers[rng.Intn(len(Customers))]
		amount := uniform(rng, 5000, 50000)
		issue := datetime.AddDays(today, -rng.Intn(receivableMaxAge+1))
		ds.Invoices = append(ds.Invoices, invoice.Invoice{
			ID:        fmt.Sprintf("AR%04d", i+1),
			Amount:    amount,
			Type:      invoice.Receivable,
			IssueDate: issue,
			DueDate:   datetime.AddDays(issue, receivableTerms),
			EntityID:  customer.ID,
		})
	}

	for i := 0; i < payableCount; i++ {
		supplier := Suppliers[rng.Intn(len(Suppliers))]
		amount := uniform(rng, 3000, 40000)
		issue := datetime.AddDays(today, -rng.Intn(payableMaxAge+1))
		inv := invoice.Invoice{
			ID:        fmt.Sprintf("AP%04d", i+1),
			Amount:    amount,
			Type:      invoice.Payable,
			IssueDate: issue,
			DueDate:   datetime.AddDays(issue, payableTerms),
			EntityID:  supplier.ID,
		}
		if rng.Float64() < discountShare {
			early := datetime.AddDays(issue, discountWindowDays)
			rate := discountRate
			inv.EarlyPaymentDate = &early
			inv.DiscountRate = &rate
		}
		ds.Invoices = append(ds.Invoices, inv)
	}
	return ds
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return mathutil.Round(lo + rng.Float64()*(hi-lo))
}

// Target is a store that can also register counterparties.
type Target interface {
	AddEntities(ctx context.Context, customers, suppliers []invoice.Entity) error
	CreateInvoice(ctx context.Context, inv invoice.Invoice) (*invoice.Invoice, error)
}

// Apply writes the dataset to target and returns how many invoices were
// created. Invoices the target refuses are logged and skipped.
func Apply(ctx context.Context, logger *zap.Logger, target Target, ds Dataset) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := target.AddEntities(ctx, ds.Customers, ds.Suppliers); err != nil {
		return 0, fmt.Errorf("seed: entities: %w", err)
	}

	created := 0
	for _, inv := range ds.Invoices {
		if _, err := target.CreateInvoice(ctx, inv); err != nil {
			logger.Warn("sample invoice not created",
				zap.String("op", "seed.Apply"),
				zap.String("invoice", inv.ID),
				zap.Error(err),
			)
			continue
		}
		created++
	}

	logger.Info("sample data generated",
		zap.String("op", "seed.Apply"),
		zap.Int("customers", len(ds.Customers)),
		zap.Int("suppliers", len(ds.Suppliers)),
		zap.Int("invoices", created),
	)
	return created, nil
}
