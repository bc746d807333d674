package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/internal/receivables"
	"github.com/iwvelando/cashflow-planner/internal/store/seed"
	"github.com/iwvelando/cashflow-planner/internal/workingcapital"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
)

// growBook adds copies of the seeded invoices under fresh ids so the
// optimizers see a book several times the sample size.
func growBook(t testing.TB, s *stack, copies int) int {
	t.Helper()
	ds := seed.Generate(42, today)
	added := 0
	for c := 0; c < copies; c++ {
		for _, inv := range ds.Invoices {
			inv.ID = fmt.Sprintf("%s-x%d", inv.ID, c)
			inv.DueDate = datetime.AddDays(inv.DueDate, c%7)
			if inv.EarlyPaymentDate != nil && inv.EarlyPaymentDate.After(inv.DueDate) {
				inv.EarlyPaymentDate, inv.DiscountRate = nil, nil
			}
			if _, err := s.store.CreateInvoice(context.Background(), inv); err != nil {
				t.Fatalf("CreateInvoice(%s) error = %v", inv.ID, err)
			}
			added++
		}
	}
	return added
}

// TestPerformance times each optimizer over a large book.
func TestPerformance(t *testing.T) {
	s := newStack(t)
	added := growBook(t, s, 40)
	ctx := context.Background()
	cash := s.conf.Planner.InitialCash

	start := time.Now()
	ap, err := s.payables.Optimize(ctx, cash)
	if err != nil {
		t.Fatalf("payables Optimize failed: %v", err)
	}
	payablesTime := time.Since(start)

	start = time.Now()
	ar, err := s.receivables.Optimize(ctx, cash, receivables.ObjectiveBalanced)
	if err != nil {
		t.Fatalf("receivables Optimize failed: %v", err)
	}
	receivablesTime := time.Since(start)

	start = time.Now()
	wc, err := s.planner.Optimize(ctx, workingcapital.Request{Scenario: workingcapital.ScenarioBase})
	if err != nil {
		t.Fatalf("planner Optimize failed: %v", err)
	}
	plannerTime := time.Since(start)

	totalTime := payablesTime + receivablesTime + plannerTime

	t.Logf("Performance metrics (%d extra invoices):", added)
	t.Logf("  Payment schedule: %v (%d payments)", payablesTime, len(ap.Payments))
	t.Logf("  Collection strategy: %v (%d plans)", receivablesTime, len(ar.Plans))
	t.Logf("  Working capital plan: %v (%d days)", plannerTime, len(wc.Projection))
	t.Logf("  Total time: %v", totalTime)

	if totalTime > 5*time.Second {
		t.Errorf("Total processing time %v exceeds 5 second threshold", totalTime)
	}
}

// TestRepeatedRuns checks that many runs against one store stay consistent.
func TestRepeatedRuns(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	first, err := s.payables.Optimize(ctx, s.conf.Planner.InitialCash)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	for i := 0; i < 25; i++ {
		next, err := s.payables.Optimize(ctx, s.conf.Planner.InitialCash)
		if err != nil {
			t.Fatalf("Optimize failed on run %d: %v", i, err)
		}
		if next.Metrics != first.Metrics {
			t.Fatalf("run %d metrics %+v differ from first run %+v", i, next.Metrics, first.Metrics)
		}
	}
}

// TestConcurrentOptimizers runs the optimizers and importance updates side by
// side. Run with -race to catch unsynchronized state.
func TestConcurrentOptimizers(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	errs := make(chan error, 30)

	for i := 0; i < 10; i++ {
		score := float64(i) / 10
		go func() {
			errs <- s.payables.SetSupplierImportance("supp002", score)
		}()
		go func() {
			_, err := s.receivables.Optimize(ctx, s.conf.Planner.InitialCash, receivables.ObjectiveCashFlow)
			errs <- err
		}()
		go func() {
			_, err := s.planner.Optimize(ctx, workingcapital.Request{})
			errs <- err
		}()
	}
	for i := 0; i < 30; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent call failed: %v", err)
		}
	}
}

func BenchmarkPayablesOptimize(b *testing.B) {
	s := newStack(b)
	growBook(b, s, 10)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.payables.Optimize(ctx, s.conf.Planner.InitialCash); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReceivablesOptimize(b *testing.B) {
	s := newStack(b)
	growBook(b, s, 10)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.receivables.Optimize(ctx, s.conf.Planner.InitialCash, receivables.ObjectiveBalanced); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWorkingCapitalOptimize(b *testing.B) {
	s := newStack(b)
	growBook(b, s, 10)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.planner.Optimize(ctx, workingcapital.Request{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSimulate(b *testing.B) {
	forecast := make([]invoice.ForecastDay, 365)
	for i := range forecast {
		forecast[i] = invoice.ForecastDay{Date: datetime.AddDays(today, i), Inflow: float64(i%5) * 10000, Outflow: float64(i%3) * 15000}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		workingcapital.Simulate(forecast, 500000, 100000, 0.95, 0.95)
	}
}
