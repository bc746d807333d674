// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and validating it.
package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CASHFLOW_STORAGE_POSTGRESDSN.
const EnvPrefix = "CASHFLOW"

// Configuration holds all configuration for the cash-flow planner.
type Configuration struct {
	Planner    PlannerConfig    `yaml:"planner,omitempty"`
	Weights    WeightsConfig    `yaml:"weights,omitempty"`
	Importance ImportanceConfig `yaml:"importance,omitempty"`
	Storage    StorageConfig    `yaml:"storage,omitempty"`
	Server     ServerConfig     `yaml:"server,omitempty"`
	Worker     WorkerConfig     `yaml:"worker,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Output     OutputConfig     `yaml:"output,omitempty"`
}

// PlannerConfig holds the financial parameters shared by every optimizer.
type PlannerConfig struct {
	HorizonDays    int     `yaml:"horizonDays,omitempty"`
	BorrowingRate  float64 `yaml:"borrowingRate,omitempty"`  // per day
	InvestmentRate float64 `yaml:"investmentRate,omitempty"` // per day
	MinCashBuffer  float64 `yaml:"minCashBuffer,omitempty"`
	InitialCash    float64 `yaml:"initialCash,omitempty"`
}

// WeightsConfig seeds the working-capital objective weights. All zero means
// use the defaults.
type WeightsConfig struct {
	Liquidity       float64 `yaml:"liquidity,omitempty"`
	FinancingCost   float64 `yaml:"financingCost,omitempty"`
	TransactionCost float64 `yaml:"transactionCost,omitempty"`
	Relationship    float64 `yaml:"relationship,omitempty"`
}

// ImportanceConfig seeds counterparty importance scores in [0,1].
type ImportanceConfig struct {
	Suppliers map[string]float64 `yaml:"suppliers,omitempty"`
	Customers map[string]float64 `yaml:"customers,omitempty"`
}

// StorageConfig selects the invoice store. Without a DSN an in-memory store
// is used; with a Redis address reads are cached.
type StorageConfig struct {
	PostgresDSN string        `yaml:"postgresDSN,omitempty"`
	RedisAddr   string        `yaml:"redisAddr,omitempty"`
	CacheTTL    time.Duration `yaml:"cacheTTL,omitempty"`
	SeedSample  bool          `yaml:"seedSample,omitempty"`
}

// ServerConfig holds HTTP server options.
type ServerConfig struct {
	Address     string `yaml:"address,omitempty"`
	RateLimit   int    `yaml:"rateLimit,omitempty"`   // requests per minute per client
	MaxBodySize string `yaml:"maxBodySize,omitempty"` // e.g. 256K, 1M
}

// WorkerConfig holds task queue options.
type WorkerConfig struct {
	RedisAddr   string `yaml:"redisAddr,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
	Queue       string `yaml:"queue,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json, yaml
}

// Default returns a configuration with every default filled in.
func Default() *Configuration {
	conf := &Configuration{}
	conf.Normalize()
	return conf
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("planner.horizonDays", constants.DefaultHorizonDays)
	v.SetDefault("planner.borrowingRate", constants.DefaultBorrowingRate)
	v.SetDefault("planner.investmentRate", constants.DefaultInvestmentRate)
	v.SetDefault("planner.minCashBuffer", constants.DefaultMinCashBuffer)
	v.SetDefault("planner.initialCash", constants.DefaultInitialCash)
	v.SetDefault("storage.postgresDSN", "")
	v.SetDefault("storage.redisAddr", "")
	v.SetDefault("storage.cacheTTL", time.Duration(constants.DefaultCacheTTLSeconds)*time.Second)
	v.SetDefault("storage.seedSample", false)
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.rateLimit", constants.DefaultRateLimit)
	v.SetDefault("server.maxBodySize", constants.DefaultMaxBodySize)
	v.SetDefault("worker.redisAddr", "")
	v.SetDefault("worker.concurrency", constants.DefaultWorkerConcurrency)
	v.SetDefault("worker.queue", constants.DefaultWorkerQueue)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("output.format", constants.OutputFormatPretty)
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Environment variables prefixed with EnvPrefix override
// file values.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.Normalize()
	return &configuration, nil
}

// Normalize fills unset values with defaults and clamps the horizon.
func (c *Configuration) Normalize() {
	if c.Planner.HorizonDays <= 0 {
		c.Planner.HorizonDays = constants.DefaultHorizonDays
	}
	if c.Planner.HorizonDays > constants.MaxHorizonDays {
		c.Planner.HorizonDays = constants.MaxHorizonDays
	}
	if c.Planner.BorrowingRate == 0 {
		c.Planner.BorrowingRate = constants.DefaultBorrowingRate
	}
	if c.Planner.InvestmentRate == 0 {
		c.Planner.InvestmentRate = constants.DefaultInvestmentRate
	}
	if c.Planner.MinCashBuffer == 0 {
		c.Planner.MinCashBuffer = constants.DefaultMinCashBuffer
	}
	if c.Planner.InitialCash == 0 {
		c.Planner.InitialCash = constants.DefaultInitialCash
	}
	if c.Weights.sum() == 0 {
		c.Weights = WeightsConfig{Liquidity: 0.4, FinancingCost: 0.3, TransactionCost: 0.1, Relationship: 0.2}
	}
	if c.Storage.CacheTTL <= 0 {
		c.Storage.CacheTTL = time.Duration(constants.DefaultCacheTTLSeconds) * time.Second
	}
	if c.Server.Address == "" {
		c.Server.Address = constants.DefaultServerAddress
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = constants.DefaultRateLimit
	}
	if c.Server.MaxBodySize == "" {
		c.Server.MaxBodySize = constants.DefaultMaxBodySize
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = constants.DefaultWorkerConcurrency
	}
	if c.Worker.Queue == "" {
		c.Worker.Queue = constants.DefaultWorkerQueue
	}
	if c.Worker.RedisAddr == "" {
		c.Worker.RedisAddr = c.Storage.RedisAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
}

func (w WeightsConfig) sum() float64 {
	return w.Liquidity + w.FinancingCost + w.TransactionCost + w.Relationship
}

// Validate returns the first setting that would make the planner misbehave.
func (c *Configuration) Validate() error {
	if c.Planner.BorrowingRate < 0 {
		return validation.Errorf("planner.borrowingRate", "must not be negative")
	}
	if c.Planner.InvestmentRate < 0 {
		return validation.Errorf("planner.investmentRate", "must not be negative")
	}
	if c.Planner.MinCashBuffer < 0 {
		return validation.Errorf("planner.minCashBuffer", "must not be negative")
	}
	for key, w := range map[string]float64{
		"weights.liquidity":       c.Weights.Liquidity,
		"weights.financingCost":   c.Weights.FinancingCost,
		"weights.transactionCost": c.Weights.TransactionCost,
		"weights.relationship":    c.Weights.Relationship,
	} {
		if w < 0 || math.IsNaN(w) {
			return validation.Errorf(key, "must not be negative")
		}
	}
	if err := checkScores("importance.suppliers", c.Importance.Suppliers); err != nil {
		return err
	}
	if err := checkScores("importance.customers", c.Importance.Customers); err != nil {
		return err
	}
	return validation.ValidateOutputFormat(c.Output.Format)
}

func checkScores(field string, scores map[string]float64) error {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if s := scores[id]; s < 0 || s > 1 || math.IsNaN(s) {
			return validation.Errorf(field+"."+id, "importance must be between 0 and 1, got %v", s)
		}
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings for settings that are legal but probably unintended.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Planner.MinCashBuffer > c.Planner.InitialCash {
		warnings = append(warnings, fmt.Sprintf(
			"planner.minCashBuffer (%.2f) exceeds planner.initialCash (%.2f): the first simulated day will borrow",
			c.Planner.MinCashBuffer, c.Planner.InitialCash))
	}
	if c.Planner.BorrowingRate > 0.01 {
		warnings = append(warnings, fmt.Sprintf(
			"planner.borrowingRate %.4f is a daily rate; %.1f%% per year looks unusually high",
			c.Planner.BorrowingRate, c.Planner.BorrowingRate*365*100))
	}
	if c.Planner.InvestmentRate > c.Planner.BorrowingRate {
		warnings = append(warnings, "planner.investmentRate exceeds planner.borrowingRate")
	}
	if c.Storage.PostgresDSN == "" && !c.Storage.SeedSample {
		warnings = append(warnings, "no storage.postgresDSN configured and storage.seedSample is off: the in-memory store starts empty")
	}
	if c.Worker.RedisAddr == "" {
		warnings = append(warnings, "worker.redisAddr is empty: worker mode is unavailable")
	}

	return warnings
}
