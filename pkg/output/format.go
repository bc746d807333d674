// Package output provides utilities for formatting and displaying optimization results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/cashflow-planner/internal/payables"
	"github.com/iwvelando/cashflow-planner/internal/receivables"
	"github.com/iwvelando/cashflow-planner/internal/workingcapital"
	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/format"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Report bundles the results of one optimize run. Nil sections are omitted.
type Report struct {
	WorkingCapital *workingcapital.Result `json:"working_capital,omitempty" yaml:"working_capital,omitempty"`
	Payables       *payables.Result       `json:"accounts_payable,omitempty" yaml:"accounts_payable,omitempty"`
	Receivables    *receivables.Result    `json:"accounts_receivable,omitempty" yaml:"accounts_receivable,omitempty"`
}

// Write renders report to w in the named output format.
func Write(w io.Writer, outputFormat string, report Report) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, report)
	case constants.OutputFormatCSV:
		return CsvFormat(w, report)
	case constants.OutputFormatJSON:
		return JSONFormat(w, report)
	case constants.OutputFormatYAML:
		return YAMLFormat(w, report)
	}
	return validation.ValidateOutputFormat(outputFormat)
}

// JSONFormat outputs the report as indented JSON.
func JSONFormat(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// YAMLFormat outputs the report as YAML.
func YAMLFormat(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, report Report) error {
	p := message.NewPrinter(language.English)
	out := &errWriter{w: w}

	if wc := report.WorkingCapital; wc != nil {
		out.printf("--- Working capital plan (%s scenario) ---\n", wc.Scenario)
		out.printf("Initial cash      | %s\n", format.Currency(wc.InitialCash))
		out.printf("Minimum buffer    | %s\n", format.Currency(wc.MinCashBuffer))
		out.printf("Average balance   | %s\n", format.Currency(wc.Metrics.AverageCashBalance))
		out.printf("Minimum balance   | %s\n", format.Currency(wc.Metrics.MinimumCashBalance))
		out.printf("Total borrowing   | %s over %d days\n", format.Currency(wc.Metrics.TotalBorrowing), wc.Metrics.BorrowingDays)
		out.printf("Borrowing cost    | %s\n", format.Currency(wc.Metrics.BorrowingCost))
		out.printf("Investment income | %s\n", format.Currency(wc.Metrics.InvestmentIncome))
		if len(wc.Recommendations.AccountsPayable) > 0 {
			out.printf("\nPayables\nInvoice    | Amount        | Due        | Action      | Pay on\n")
			for _, rec := range wc.Recommendations.AccountsPayable {
				out.print(p.Sprintf("%-10s | $%12.2f | %s | %-11s | %s\n",
					rec.InvoiceID, rec.Amount, rec.DueDate, rec.Action, rec.RecommendedPaymentDate))
			}
		}
		if len(wc.Recommendations.AccountsReceivable) > 0 {
			out.printf("\nReceivables\nInvoice    | Amount        | Due        | Action\n")
			for _, rec := range wc.Recommendations.AccountsReceivable {
				out.print(p.Sprintf("%-10s | $%12.2f | %s | %s\n", rec.InvoiceID, rec.Amount, rec.DueDate, rec.Action))
			}
		}
		out.printf("\n")
	}

	if ap := report.Payables; ap != nil {
		out.printf("--- Payment schedule ---\n")
		out.printf("Invoice    | Supplier   | Payment       | Pay on     | Type\n")
		for _, pay := range ap.Payments {
			out.print(p.Sprintf("%-10s | %-10s | $%12.2f | %s | %s\n",
				pay.InvoiceID, pay.SupplierID, pay.PaymentAmount, pay.PaymentDate, pay.PaymentType))
		}
		out.printf("Total payable %s, discounts captured %s (%s), on time %s, remaining cash %s\n\n",
			format.Currency(ap.Metrics.TotalPayable),
			format.Currency(ap.Metrics.TotalDiscountCaptured),
			format.Percent(ap.Metrics.DiscountPercentage),
			format.Percent(ap.Metrics.OnTimePercentage),
			format.Currency(ap.Metrics.RemainingCash))
	}

	if ar := report.Receivables; ar != nil {
		out.printf("--- Collection strategy (%s) ---\n", ar.Objective)
		out.printf("Invoice    | Customer   | Amount        | Overdue | Actions\n")
		for _, plan := range ar.Plans {
			out.print(p.Sprintf("%-10s | %-10s | $%12.2f | %7d | %s\n",
				plan.InvoiceID, plan.CustomerID, plan.Amount, plan.DaysOverdue, actionNames(plan.Actions)))
		}
		out.printf("Total receivable %s, action cost %s, financial impact %s, ROI %.2f\n",
			format.Currency(ar.Metrics.TotalReceivable),
			format.Currency(ar.Metrics.TotalActionsCost),
			format.Currency(ar.Metrics.TotalFinancialImpact),
			ar.Metrics.ROI)
	}
	return out.err
}

// CsvFormat outputs one CSV section per result, separated by blank lines.
func CsvFormat(w io.Writer, report Report) error {
	sections := make([][][]string, 0, 3)

	if wc := report.WorkingCapital; wc != nil {
		rows := [][]string{{"day", "balance", "borrowed"}}
		for _, point := range wc.Projection {
			rows = append(rows, []string{strconv.Itoa(point.Day), money(point.Balance), money(point.Borrowed)})
		}
		sections = append(sections, rows)
	}
	if ap := report.Payables; ap != nil {
		rows := [][]string{{"invoice_id", "supplier_id", "amount", "payment_amount", "due_date", "payment_date", "payment_type", "priority", "discount_amount", "remaining_cash"}}
		for _, pay := range ap.Payments {
			rows = append(rows, []string{
				pay.InvoiceID, pay.SupplierID, money(pay.Amount), money(pay.PaymentAmount), pay.DueDate, pay.PaymentDate,
				string(pay.PaymentType), strconv.FormatFloat(pay.Priority, 'f', -1, 64), money(pay.DiscountAmount), money(pay.RemainingCash),
			})
		}
		sections = append(sections, rows)
	}
	if ar := report.Receivables; ar != nil {
		rows := [][]string{{"invoice_id", "customer_id", "amount", "due_date", "days_overdue", "priority", "actions", "expected_collection_date", "financial_impact"}}
		for _, plan := range ar.Plans {
			rows = append(rows, []string{
				plan.InvoiceID, plan.CustomerID, money(plan.Amount), plan.DueDate, strconv.Itoa(plan.DaysOverdue),
				strconv.FormatFloat(plan.Priority, 'f', -1, 64), actionNames(plan.Actions), plan.ExpectedCollectionDate, money(plan.FinancialImpact),
			})
		}
		sections = append(sections, rows)
	}

	for i, rows := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
	}
	return nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func actionNames(actions []receivables.Action) string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a.Type)
	}
	return strings.Join(names, ";")
}

// errWriter keeps the first write error so callers check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) print(s string) {
	if e.err == nil {
		_, e.err = io.WriteString(e.w, s)
	}
}

func (e *errWriter) printf(formatStr string, args ...interface{}) {
	if e.err == nil {
		_, e.err = fmt.Fprintf(e.w, formatStr, args...)
	}
}
