// Package constants provides shared constants for the cashflow-planner application.
package constants

// DateLayout is the calendar date format used by invoices, forecasts, and
// every date rendered in reports.
const DateLayout = "2006-01-02"

// Planner defaults
const (
	// DefaultHorizonDays is the forward-looking window for invoices and forecasts.
	DefaultHorizonDays = 90

	// MaxHorizonDays bounds any horizon accepted from callers.
	MaxHorizonDays = 365

	// DefaultBorrowingRate is the daily borrowing rate (about 3.65% annual).
	DefaultBorrowingRate = 0.0001

	// DefaultInvestmentRate is the daily return on excess cash.
	DefaultInvestmentRate = 0.00005

	// DefaultMinCashBuffer is the balance the simulator keeps before borrowing.
	DefaultMinCashBuffer = 100000.0

	// DefaultInitialCash is the opening balance used when a caller supplies none.
	DefaultInitialCash = 500000.0

	// DefaultImportance applies to any counterparty without an explicit score.
	DefaultImportance = 0.5
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON renders reports as indented JSON
	OutputFormatJSON = "json"

	// OutputFormatYAML renders reports as YAML
	OutputFormatYAML = "yaml"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"
)

// Server and worker defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultRateLimit is the per-IP request budget per minute
	DefaultRateLimit = 120

	// DefaultMaxBodyBytes caps JSON request bodies (256 KB)
	DefaultMaxBodyBytes int64 = 256 * 1024

	// DefaultMaxBodySize is DefaultMaxBodyBytes in configuration form
	DefaultMaxBodySize = "256K"

	// DefaultWorkerConcurrency is the asynq worker concurrency
	DefaultWorkerConcurrency = 5

	// DefaultWorkerQueue is the asynq queue optimization tasks are sent to
	DefaultWorkerQueue = "cashflow"

	// DefaultCacheTTLSeconds is how long cached collaborator reads live
	DefaultCacheTTLSeconds = 300
)

// Numeric constants
const (
	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)
