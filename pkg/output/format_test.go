package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/iwvelando/cashflow-planner/internal/payables"
	"github.com/iwvelando/cashflow-planner/internal/receivables"
	"github.com/iwvelando/cashflow-planner/internal/workingcapital"
	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() Report {
	return Report{
		WorkingCapital: &workingcapital.Result{
			RunID:         "run-1",
			Scenario:      workingcapital.ScenarioBase,
			InitialCash:   500000,
			MinCashBuffer: 100000,
			Metrics: workingcapital.SimulationMetrics{
				AverageCashBalance: 450000,
				MinimumCashBalance: 380000,
			},
			Recommendations: workingcapital.Recommendations{
				AccountsPayable: []workingcapital.PayableRecommendation{{
					InvoiceID: "AP1", Amount: 12000, DueDate: "2025-04-10", Action: "pay_on_time",
					Reason: "Maintain supplier relationship", RecommendedPaymentDate: "2025-04-10",
				}},
			},
			Projection: []workingcapital.ProjectionPoint{
				{Day: 0, Balance: 500000},
				{Day: 1, Balance: 488000},
			},
		},
		Payables: &payables.Result{
			RunID: "run-2",
			Schedule: payables.Schedule{
				Payments: []payables.Payment{{
					InvoiceID: "AP1", SupplierID: "s1", Amount: 12000, PaymentAmount: 11760,
					DueDate: "2025-04-10", PaymentDate: "2025-04-05", PaymentType: payables.EarlyWithDiscount,
					Priority: 100, DiscountAmount: 240, RemainingCash: 488240,
				}},
				Metrics: payables.Metrics{TotalPayable: 12000, TotalDiscountCaptured: 240, DiscountPercentage: 2, OnTimePercentage: 100, RemainingCash: 488240},
			},
		},
		Receivables: &receivables.Result{
			RunID:     "run-3",
			Objective: receivables.ObjectiveBalanced,
			Strategy: receivables.Strategy{
				Plans: []receivables.Plan{{
					InvoiceID: "AR1", CustomerID: "c1", Amount: 20000, DueDate: "2025-03-01", DaysOverdue: 31,
					Priority: 90, ExpectedCollectionDate: "2025-04-06", FinancialImpact: 12,
					Actions: []receivables.Action{{Type: receivables.PhoneCall}, {Type: receivables.ReminderEmail}},
				}},
				Metrics: receivables.Metrics{TotalReceivable: 20000, TotalActionsCost: 100, TotalFinancialImpact: 12, ROI: 0.12},
			},
		},
	}
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrettyFormat(&buf, sampleReport()))
	out := buf.String()

	for _, want := range []string{
		"--- Working capital plan (base scenario) ---",
		"Initial cash      | $500,000.00",
		"12,000.00",
		"--- Payment schedule ---",
		"early_with_discount",
		"discounts captured $240.00 (2.0%)",
		"--- Collection strategy (balanced) ---",
		"phone_call;reminder_email",
		"ROI 0.12",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPrettyFormatSkipsMissingSections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrettyFormat(&buf, Report{Payables: sampleReport().Payables}))
	assert.NotContains(t, buf.String(), "Working capital")
	assert.NotContains(t, buf.String(), "Collection strategy")
}

func TestCsvFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CsvFormat(&buf, sampleReport()))

	sections := strings.Split(buf.String(), "\n\n")
	require.Len(t, sections, 3)

	projection, err := csv.NewReader(strings.NewReader(sections[0])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"day", "balance", "borrowed"}, {"0", "500000.00", "0.00"}, {"1", "488000.00", "0.00"}}, projection)

	schedule, err := csv.NewReader(strings.NewReader(sections[1])).ReadAll()
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, "early_with_discount", schedule[1][6])
	assert.Equal(t, "240.00", schedule[1][8])

	plans, err := csv.NewReader(strings.NewReader(sections[2])).ReadAll()
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "phone_call;reminder_email", plans[1][6])
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONFormat(&buf, sampleReport()))

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "working_capital")
	assert.Contains(t, decoded, "accounts_payable")
	assert.Contains(t, decoded, "accounts_receivable")

	var ap payables.Result
	require.NoError(t, json.Unmarshal(decoded["accounts_payable"], &ap))
	assert.Equal(t, sampleReport().Payables.Schedule, ap.Schedule)
}

func TestYAMLFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, YAMLFormat(&buf, Report{Payables: sampleReport().Payables}))

	var decoded map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	section := decoded["accounts_payable"]
	require.NotNil(t, section)
	assert.Equal(t, "run-2", section["run_id"])
	assert.Contains(t, section, "payment_schedule")
	assert.NotContains(t, decoded, "working_capital")
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "xml", sampleReport())
	require.Error(t, err)
	assert.True(t, validation.IsValidation(err))

	for _, f := range []string{constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON, constants.OutputFormatYAML} {
		assert.NoError(t, Write(&bytes.Buffer{}, f, sampleReport()), f)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestPrettyFormatReportsWriteErrors(t *testing.T) {
	assert.EqualError(t, PrettyFormat(failingWriter{}, sampleReport()), "disk full")
}
