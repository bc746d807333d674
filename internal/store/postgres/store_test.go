package postgres

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []interface{}
}

type stubDB struct {
	execs    []execCall
	execErr  error
	queries  []execCall
	rows     [][]interface{}
	queryErr error
	row      []interface{}
	rowErr   error
}

func (s *stubDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, s.execErr
}

func (s *stubDB) Query(_ context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	s.queries = append(s.queries, execCall{sql: sql, args: args})
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return &stubRows{rows: s.rows, idx: -1}, nil
}

func (s *stubDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	s.queries = append(s.queries, execCall{sql: sql, args: args})
	return stubRow{values: s.row, err: s.rowErr}
}

func assign(dest []interface{}, values []interface{}) error {
	if len(dest) != len(values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(values[i]))
	}
	return nil
}

type stubRow struct {
	values []interface{}
	err    error
}

func (r stubRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type stubRows struct {
	rows [][]interface{}
	idx  int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]interface{}, error)               { return r.rows[r.idx], nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *stubRows) Scan(dest ...interface{}) error {
	return assign(dest, r.rows[r.idx])
}

func clock() time.Time { return datetime.MustParseDate("2025-04-01").Add(10 * time.Hour) }

func TestMigrateRunsEveryStatement(t *testing.T) {
	db := &stubDB{}
	require.NoError(t, New(db, nil, clock).Migrate(context.Background()))
	require.Len(t, db.execs, len(migrations))
	assert.Contains(t, db.execs[2].sql, "CREATE TABLE IF NOT EXISTS invoices")
}

func TestMigrateStopsOnError(t *testing.T) {
	db := &stubDB{execErr: errors.New("permission denied")}
	err := New(db, nil, clock).Migrate(context.Background())
	require.Error(t, err)
	assert.Len(t, db.execs, 1)
	assert.Contains(t, err.Error(), "CREATE TABLE IF NOT EXISTS customers")
}

func TestCreateInvoiceRoutesEntity(t *testing.T) {
	db := &stubDB{}
	s := New(db, nil, clock)
	rate := 0.02
	early := datetime.MustParseDate("2025-04-10")

	_, err := s.CreateInvoice(context.Background(), invoice.Invoice{
		ID: "AP1", Amount: 100, Type: invoice.Payable, EntityID: "s1",
		IssueDate: datetime.MustParseDate("2025-04-01"), DueDate: datetime.MustParseDate("2025-05-01"),
		EarlyPaymentDate: &early, DiscountRate: &rate,
	})
	require.NoError(t, err)
	require.Len(t, db.execs, 1)
	args := db.execs[0].args
	assert.Nil(t, args[5].(*string), "customer_id")
	assert.Equal(t, "s1", *args[6].(*string), "supplier_id")

	_, err = s.CreateInvoice(context.Background(), invoice.Invoice{ID: "AR1", Amount: 100, Type: invoice.Receivable, EntityID: "c1"})
	require.NoError(t, err)
	args = db.execs[1].args
	assert.Equal(t, "c1", *args[5].(*string))
	assert.Nil(t, args[6].(*string))
}

func TestCreateInvoiceMapsConstraintViolations(t *testing.T) {
	for _, code := range []string{codeUniqueViolation, codeForeignKeyViolation, codeCheckViolation} {
		db := &stubDB{execErr: &pgconn.PgError{Code: code, Message: "violates constraint"}}
		_, err := New(db, nil, clock).CreateInvoice(context.Background(), invoice.Invoice{ID: "X", Type: invoice.Payable})
		assert.True(t, errors.Is(err, invoice.ErrNotCreated), code)
	}

	boom := errors.New("connection reset")
	_, err := New(&stubDB{execErr: boom}, nil, clock).CreateInvoice(context.Background(), invoice.Invoice{ID: "X"})
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, invoice.ErrNotCreated))
}

func TestListInvoicesScansRows(t *testing.T) {
	due := datetime.MustParseDate("2025-04-20")
	early := datetime.MustParseDate("2025-04-10")
	rate := 0.02
	db := &stubDB{rows: [][]interface{}{
		{"AP1", 1000.0, "AP", datetime.MustParseDate("2025-04-01"), due, "s1", &early, &rate},
		{"AP2", 500.0, "AP", datetime.MustParseDate("2025-04-01"), due, "", nil, nil},
	}}

	got, err := New(db, nil, clock).ListInvoices(context.Background(), invoice.Payable, 30)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, invoice.Payable, got[0].Type)
	assert.True(t, got[0].HasDiscount())
	assert.False(t, got[1].HasDiscount())

	require.Len(t, db.queries, 1)
	assert.Equal(t, "AP", db.queries[0].args[0])
	assert.Equal(t, datetime.MustParseDate("2025-05-01"), db.queries[0].args[1])
}

func TestCashFlowForecastFormatsDates(t *testing.T) {
	db := &stubDB{rows: [][]interface{}{
		{datetime.MustParseDate("2025-04-02"), 100.0, 0.0},
		{datetime.MustParseDate("2025-04-05"), 0.0, 50.0},
	}}
	got, err := New(db, nil, clock).CashFlowForecast(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, []invoice.ForecastRow{
		{Date: "2025-04-02", Inflow: 100},
		{Date: "2025-04-05", Outflow: 50},
	}, got)
	assert.True(t, strings.Contains(db.queries[0].sql, "GROUP BY due_date"))
}

func TestEntityForInvoice(t *testing.T) {
	owner := "c7"
	id, ok, err := New(&stubDB{row: []interface{}{&owner}}, nil, clock).EntityForInvoice(context.Background(), "AR1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c7", id)

	_, ok, err = New(&stubDB{rowErr: pgx.ErrNoRows}, nil, clock).EntityForInvoice(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = New(&stubDB{row: []interface{}{nil}}, nil, clock).EntityForInvoice(context.Background(), "orphan")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddEntitiesUpserts(t *testing.T) {
	db := &stubDB{}
	err := New(db, nil, clock).AddEntities(context.Background(),
		[]invoice.Entity{{ID: "c1", Name: "Acme"}},
		[]invoice.Entity{{ID: "s1", Name: "Parts"}, {ID: "s2", Name: "Bolts"}},
	)
	require.NoError(t, err)
	require.Len(t, db.execs, 3)
	assert.Contains(t, db.execs[0].sql, "INSERT INTO customers")
	assert.Contains(t, db.execs[2].sql, "INSERT INTO suppliers")
}
