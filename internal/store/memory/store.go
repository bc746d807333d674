// Package memory is an in-process invoice.Store used by tests, the seed mode,
// and deployments without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/datetime"
)

// Store keeps invoices and counterparties in memory.
type Store struct {
	mu        sync.RWMutex
	clock     datetime.Clock
	invoices  []invoice.Invoice
	byID      map[string]int
	links     map[string]string
	customers map[string]invoice.Entity
	suppliers map[string]invoice.Entity
}

// New returns an empty store. A nil clock uses the wall clock.
func New(clock datetime.Clock) *Store {
	if clock == nil {
		clock = datetime.SystemClock
	}
	return &Store{
		clock:     clock,
		byID:      make(map[string]int),
		links:     make(map[string]string),
		customers: make(map[string]invoice.Entity),
		suppliers: make(map[string]invoice.Entity),
	}
}

// AddCustomer registers a customer that AR invoices may reference.
func (s *Store) AddCustomer(e invoice.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[e.ID] = e
}

// AddSupplier registers a supplier that AP invoices may reference.
func (s *Store) AddSupplier(e invoice.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[e.ID] = e
}

// Load stores invoices without entity checks, replacing any with the same id.
func (s *Store) Load(invoices ...invoice.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range invoices {
		if idx, ok := s.byID[inv.ID]; ok {
			s.invoices[idx] = inv
			continue
		}
		s.byID[inv.ID] = len(s.invoices)
		s.invoices = append(s.invoices, inv)
	}
}

// AddEntities registers counterparties in bulk.
func (s *Store) AddEntities(_ context.Context, customers, suppliers []invoice.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range customers {
		s.customers[e.ID] = e
	}
	for _, e := range suppliers {
		s.suppliers[e.ID] = e
	}
	return nil
}

// Link records the owning entity for an invoice stored without one.
func (s *Store) Link(invoiceID, entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[invoiceID] = entityID
}

// CreateInvoice stores inv when its owning entity is known and its id is new.
func (s *Store) CreateInvoice(_ context.Context, inv invoice.Invoice) (*invoice.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[inv.ID]; exists {
		return nil, fmt.Errorf("memory: invoice %s already exists: %w", inv.ID, invoice.ErrNotCreated)
	}
	entities := s.suppliers
	if inv.Type == invoice.Receivable {
		entities = s.customers
	}
	if _, ok := entities[inv.EntityID]; !ok {
		return nil, fmt.Errorf("memory: unknown entity %s for %s invoice: %w", inv.EntityID, inv.Type, invoice.ErrNotCreated)
	}

	s.byID[inv.ID] = len(s.invoices)
	s.invoices = append(s.invoices, inv)
	created := inv
	return &created, nil
}

// ListInvoices returns invoices of typ due on or before today + horizonDays,
// ordered by due date.
func (s *Store) ListInvoices(_ context.Context, typ invoice.Type, horizonDays int) ([]invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := datetime.AddDays(datetime.Today(s.clock), horizonDays)
	var out []invoice.Invoice
	for _, inv := range s.invoices {
		if inv.Type != typ || inv.DueDate.After(cutoff) {
			continue
		}
		out = append(out, inv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

// CashFlowForecast sums AR amounts as inflow and AP amounts as outflow per
// due date, for invoices due on or before today + horizonDays.
func (s *Store) CashFlowForecast(_ context.Context, horizonDays int) ([]invoice.ForecastRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := datetime.AddDays(datetime.Today(s.clock), horizonDays)
	byDate := make(map[string]*invoice.ForecastRow)
	var dates []string
	for _, inv := range s.invoices {
		if inv.DueDate.After(cutoff) {
			continue
		}
		date := datetime.FormatDate(inv.DueDate)
		row, ok := byDate[date]
		if !ok {
			row = &invoice.ForecastRow{Date: date}
			byDate[date] = row
			dates = append(dates, date)
		}
		switch inv.Type {
		case invoice.Receivable:
			row.Inflow += inv.Amount
		case invoice.Payable:
			row.Outflow += inv.Amount
		}
	}

	sort.Strings(dates)
	rows := make([]invoice.ForecastRow, 0, len(dates))
	for _, date := range dates {
		rows = append(rows, *byDate[date])
	}
	return rows, nil
}

// EntityForInvoice returns the linked or embedded owner of an invoice.
func (s *Store) EntityForInvoice(_ context.Context, invoiceID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entityID, ok := s.links[invoiceID]; ok {
		return entityID, true, nil
	}
	if idx, ok := s.byID[invoiceID]; ok && s.invoices[idx].EntityID != "" {
		return s.invoices[idx].EntityID, true, nil
	}
	return "", false, nil
}

// Customers lists registered customers ordered by id.
func (s *Store) Customers() []invoice.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedEntities(s.customers)
}

// Suppliers lists registered suppliers ordered by id.
func (s *Store) Suppliers() []invoice.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedEntities(s.suppliers)
}

func sortedEntities(m map[string]invoice.Entity) []invoice.Entity {
	out := make([]invoice.Entity, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
