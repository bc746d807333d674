// Package postgres is the pgx-backed invoice.Store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres error codes mapped to invoice.ErrNotCreated.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// Connect opens a pool and verifies it can reach the server.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store reads and writes invoices in PostgreSQL.
type Store struct {
	db     dbtx
	logger *zap.Logger
	clock  datetime.Clock
}

// New wraps a pool or transaction. A nil clock uses the wall clock.
func New(db dbtx, logger *zap.Logger, clock datetime.Clock) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = datetime.SystemClock
	}
	return &Store{db: db, logger: logger, clock: clock}
}

// Migrate creates the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Info("running database migrations", zap.String("op", "postgres.Migrate"))
	for _, stmt := range migrations {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migration failed: %w\nstatement: %s", err, stmt)
		}
	}
	s.logger.Info("database migrations complete", zap.String("op", "postgres.Migrate"))
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS suppliers (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,

	// An invoice belongs to a customer (AR) or a supplier (AP), never both.
	`CREATE TABLE IF NOT EXISTS invoices (
		id                 TEXT PRIMARY KEY,
		amount             NUMERIC(18,2) NOT NULL CHECK (amount > 0),
		type               TEXT NOT NULL CHECK (type IN ('AR', 'AP')),
		issue_date         DATE NOT NULL,
		due_date           DATE NOT NULL,
		customer_id        TEXT REFERENCES customers(id),
		supplier_id        TEXT REFERENCES suppliers(id),
		early_payment_date DATE,
		discount_rate      DOUBLE PRECISION CHECK (discount_rate BETWEEN 0 AND 1),
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (issue_date <= due_date),
		CHECK ((early_payment_date IS NULL) = (discount_rate IS NULL))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_invoices_type_due ON invoices (type, due_date)`,
}

// AddEntities upserts customers and suppliers.
func (s *Store) AddEntities(ctx context.Context, customers, suppliers []invoice.Entity) error {
	for _, c := range customers {
		if _, err := s.db.Exec(ctx,
			`INSERT INTO customers (id, name) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, c.ID, c.Name); err != nil {
			return fmt.Errorf("postgres: upsert customer %s: %w", c.ID, err)
		}
	}
	for _, sup := range suppliers {
		if _, err := s.db.Exec(ctx,
			`INSERT INTO suppliers (id, name) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, sup.ID, sup.Name); err != nil {
			return fmt.Errorf("postgres: upsert supplier %s: %w", sup.ID, err)
		}
	}
	return nil
}

// CreateInvoice inserts inv under its customer or supplier. Constraint
// violations (duplicate id, unknown entity) return invoice.ErrNotCreated.
func (s *Store) CreateInvoice(ctx context.Context, inv invoice.Invoice) (*invoice.Invoice, error) {
	var customerID, supplierID *string
	entity := inv.EntityID
	if inv.Type == invoice.Receivable {
		customerID = &entity
	} else {
		supplierID = &entity
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO invoices (id, amount, type, issue_date, due_date, customer_id, supplier_id, early_payment_date, discount_rate)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.Amount, string(inv.Type), inv.IssueDate, inv.DueDate,
		customerID, supplierID, inv.EarlyPaymentDate, inv.DiscountRate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case codeUniqueViolation, codeForeignKeyViolation, codeCheckViolation:
				return nil, fmt.Errorf("postgres: %s: %w", pgErr.Message, invoice.ErrNotCreated)
			}
		}
		return nil, fmt.Errorf("postgres: insert invoice %s: %w", inv.ID, err)
	}

	created := inv
	return &created, nil
}

func (s *Store) cutoff(horizonDays int) time.Time {
	return datetime.AddDays(datetime.Today(s.clock), horizonDays)
}

// ListInvoices returns invoices of typ due on or before today + horizonDays.
func (s *Store) ListInvoices(ctx context.Context, typ invoice.Type, horizonDays int) ([]invoice.Invoice, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, amount::float8, type, issue_date, due_date,
		        COALESCE(customer_id, supplier_id, ''), early_payment_date, discount_rate
		   FROM invoices
		  WHERE type = $1 AND due_date <= $2
		  ORDER BY due_date, id`,
		string(typ), s.cutoff(horizonDays),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list invoices: %w", err)
	}
	defer rows.Close()

	var out []invoice.Invoice
	for rows.Next() {
		var (
			inv     invoice.Invoice
			rawType string
		)
		if err := rows.Scan(&inv.ID, &inv.Amount, &rawType, &inv.IssueDate, &inv.DueDate,
			&inv.EntityID, &inv.EarlyPaymentDate, &inv.DiscountRate); err != nil {
			return nil, fmt.Errorf("postgres: scan invoice: %w", err)
		}
		inv.Type = invoice.Type(rawType)
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list invoices: %w", err)
	}
	return out, nil
}

// CashFlowForecast aggregates receivables as inflow and payables as outflow
// per due date.
func (s *Store) CashFlowForecast(ctx context.Context, horizonDays int) ([]invoice.ForecastRow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT due_date,
		        COALESCE(SUM(amount) FILTER (WHERE type = 'AR'), 0)::float8,
		        COALESCE(SUM(amount) FILTER (WHERE type = 'AP'), 0)::float8
		   FROM invoices
		  WHERE due_date <= $1
		  GROUP BY due_date
		  ORDER BY due_date`,
		s.cutoff(horizonDays),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: cash flow forecast: %w", err)
	}
	defer rows.Close()

	var out []invoice.ForecastRow
	for rows.Next() {
		var (
			date time.Time
			row  invoice.ForecastRow
		)
		if err := rows.Scan(&date, &row.Inflow, &row.Outflow); err != nil {
			return nil, fmt.Errorf("postgres: scan forecast row: %w", err)
		}
		row.Date = datetime.FormatDate(date)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: cash flow forecast: %w", err)
	}
	return out, nil
}

// EntityForInvoice looks up the customer or supplier that owns an invoice.
func (s *Store) EntityForInvoice(ctx context.Context, invoiceID string) (string, bool, error) {
	var entityID *string
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(customer_id, supplier_id) FROM invoices WHERE id = $1`, invoiceID,
	).Scan(&entityID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: entity for invoice %s: %w", invoiceID, err)
	}
	if entityID == nil || *entityID == "" {
		return "", false, nil
	}
	return *entityID, true, nil
}
