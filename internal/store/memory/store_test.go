package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock() time.Time { return datetime.MustParseDate("2025-04-01") }

func record(id string, typ invoice.Type, amount float64, due, entity string) invoice.Invoice {
	return invoice.Invoice{
		ID:        id,
		Type:      typ,
		Amount:    amount,
		IssueDate: datetime.MustParseDate("2025-03-01"),
		DueDate:   datetime.MustParseDate(due),
		EntityID:  entity,
	}
}

func TestCreateInvoice(t *testing.T) {
	s := New(clock)
	s.AddCustomer(invoice.Entity{ID: "c1", Name: "Acme"})
	s.AddSupplier(invoice.Entity{ID: "s1", Name: "Parts Co"})
	ctx := context.Background()

	created, err := s.CreateInvoice(ctx, record("AR1", invoice.Receivable, 100, "2025-04-10", "c1"))
	require.NoError(t, err)
	assert.Equal(t, "AR1", created.ID)

	_, err = s.CreateInvoice(ctx, record("AR1", invoice.Receivable, 100, "2025-04-10", "c1"))
	assert.True(t, errors.Is(err, invoice.ErrNotCreated), "duplicate id")

	_, err = s.CreateInvoice(ctx, record("AP1", invoice.Payable, 100, "2025-04-10", "c1"))
	assert.True(t, errors.Is(err, invoice.ErrNotCreated), "customer cannot own a payable")

	_, err = s.CreateInvoice(ctx, record("AP1", invoice.Payable, 100, "2025-04-10", "s1"))
	assert.NoError(t, err)
}

func TestListInvoicesFiltersAndOrders(t *testing.T) {
	s := New(clock)
	s.Load(
		record("late", invoice.Payable, 1, "2025-05-01", "s"),
		record("early", invoice.Payable, 1, "2025-03-20", "s"),
		record("outside", invoice.Payable, 1, "2025-05-02", "s"),
		record("ar", invoice.Receivable, 1, "2025-04-02", "c"),
	)

	got, err := s.ListInvoices(context.Background(), invoice.Payable, 30)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "late", got[1].ID)
}

func TestCashFlowForecastAggregatesByDueDate(t *testing.T) {
	s := New(clock)
	s.Load(
		record("a", invoice.Receivable, 100, "2025-04-05", "c"),
		record("b", invoice.Receivable, 50, "2025-04-05", "c"),
		record("c", invoice.Payable, 70, "2025-04-05", "s"),
		record("d", invoice.Payable, 30, "2025-04-02", "s"),
		record("e", invoice.Payable, 999, "2026-01-01", "s"),
	)

	rows, err := s.CashFlowForecast(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, []invoice.ForecastRow{
		{Date: "2025-04-02", Outflow: 30},
		{Date: "2025-04-05", Inflow: 150, Outflow: 70},
	}, rows)
}

func TestEntityForInvoice(t *testing.T) {
	s := New(clock)
	s.Load(
		record("owned", invoice.Payable, 1, "2025-04-05", "s1"),
		record("orphan", invoice.Payable, 1, "2025-04-05", ""),
		record("linked", invoice.Payable, 1, "2025-04-05", ""),
	)
	s.Link("linked", "s2")
	ctx := context.Background()

	id, ok, err := s.EntityForInvoice(ctx, "owned")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s1", id)

	id, ok, _ = s.EntityForInvoice(ctx, "linked")
	assert.True(t, ok)
	assert.Equal(t, "s2", id)

	_, ok, _ = s.EntityForInvoice(ctx, "orphan")
	assert.False(t, ok)
}

func TestEntitiesSorted(t *testing.T) {
	s := New(clock)
	s.AddSupplier(invoice.Entity{ID: "s2"})
	s.AddSupplier(invoice.Entity{ID: "s1"})
	assert.Equal(t, []invoice.Entity{{ID: "s1"}, {ID: "s2"}}, s.Suppliers())
	assert.Empty(t, s.Customers())
}
