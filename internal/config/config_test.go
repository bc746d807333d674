package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iwvelando/cashflow-planner/pkg/constants"
	"github.com/iwvelando/cashflow-planner/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Empty config file",
			configPath: writeConfig(t, "{}\n"),
		},
		{
			name:       "Malformed config file",
			configPath: writeConfig(t, "planner: [1, 2\n"),
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, config)
			assert.Equal(t, Default(), config)
		})
	}
}

func TestLoadConfigurationValues(t *testing.T) {
	path := writeConfig(t, `
planner:
  horizonDays: 30
  borrowingRate: 0.0002
  minCashBuffer: 50000
  initialCash: 250000
weights:
  liquidity: 1
  financingCost: 1
  transactionCost: 1
  relationship: 1
importance:
  suppliers:
    supp001: 0.9
  customers:
    cust002: 0.2
storage:
  redisAddr: localhost:6379
  cacheTTL: 30s
server:
  address: 127.0.0.1:9000
logging:
  level: debug
  format: console
output:
  format: json
`)

	conf, err := LoadConfiguration(path)
	require.NoError(t, err)

	assert.Equal(t, 30, conf.Planner.HorizonDays)
	assert.Equal(t, 0.0002, conf.Planner.BorrowingRate)
	assert.Equal(t, constants.DefaultInvestmentRate, conf.Planner.InvestmentRate)
	assert.Equal(t, 50000.0, conf.Planner.MinCashBuffer)
	assert.Equal(t, 250000.0, conf.Planner.InitialCash)
	assert.Equal(t, WeightsConfig{1, 1, 1, 1}, conf.Weights)
	assert.Equal(t, map[string]float64{"supp001": 0.9}, conf.Importance.Suppliers)
	assert.Equal(t, map[string]float64{"cust002": 0.2}, conf.Importance.Customers)
	assert.Equal(t, 30*time.Second, conf.Storage.CacheTTL)
	assert.Equal(t, "localhost:6379", conf.Worker.RedisAddr, "worker falls back to the cache redis")
	assert.Equal(t, "127.0.0.1:9000", conf.Server.Address)
	assert.Equal(t, constants.DefaultRateLimit, conf.Server.RateLimit)
	assert.Equal(t, "debug", conf.Logging.Level)
	assert.Equal(t, "console", conf.Logging.Format)
	assert.Equal(t, constants.OutputFormatJSON, conf.Output.Format)
	assert.NoError(t, conf.Validate())
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	path := writeConfig(t, "planner:\n  horizonDays: 30\n")
	t.Setenv("CASHFLOW_PLANNER_HORIZONDAYS", "45")
	t.Setenv("CASHFLOW_STORAGE_POSTGRESDSN", "postgres://localhost/cashflow")

	conf, err := LoadConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, 45, conf.Planner.HorizonDays)
	assert.Equal(t, "postgres://localhost/cashflow", conf.Storage.PostgresDSN)
}

func TestNormalizeClampsHorizon(t *testing.T) {
	conf := &Configuration{Planner: PlannerConfig{HorizonDays: 1000}}
	conf.Normalize()
	assert.Equal(t, constants.MaxHorizonDays, conf.Planner.HorizonDays)

	conf = &Configuration{Planner: PlannerConfig{HorizonDays: -3}}
	conf.Normalize()
	assert.Equal(t, constants.DefaultHorizonDays, conf.Planner.HorizonDays)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Configuration)
		field  string
	}{
		{"negative borrowing rate", func(c *Configuration) { c.Planner.BorrowingRate = -1 }, "planner.borrowingRate"},
		{"negative buffer", func(c *Configuration) { c.Planner.MinCashBuffer = -1 }, "planner.minCashBuffer"},
		{"negative weight", func(c *Configuration) { c.Weights.Relationship = -0.1 }, "weights.relationship"},
		{"supplier importance too high", func(c *Configuration) {
			c.Importance.Suppliers = map[string]float64{"a": 0.5, "b": 1.5}
		}, "importance.suppliers.b"},
		{"customer importance negative", func(c *Configuration) {
			c.Importance.Customers = map[string]float64{"c": -0.5}
		}, "importance.customers.c"},
		{"unknown output format", func(c *Configuration) { c.Output.Format = "xml" }, "output.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := Default()
			tt.mutate(conf)
			err := conf.Validate()
			require.Error(t, err)
			assert.True(t, validation.IsValidation(err))
			var ve *validation.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestValidateConfiguration(t *testing.T) {
	conf := Default()
	conf.Storage.SeedSample = true
	conf.Worker.RedisAddr = "localhost:6379"
	assert.Empty(t, conf.ValidateConfiguration())

	conf.Planner.MinCashBuffer = conf.Planner.InitialCash + 1
	conf.Planner.BorrowingRate = 0.05
	conf.Storage.SeedSample = false
	conf.Worker.RedisAddr = ""
	warnings := conf.ValidateConfiguration()
	assert.Len(t, warnings, 4)
	assert.Contains(t, warnings[0], "planner.minCashBuffer")
	assert.Contains(t, warnings[1], "planner.borrowingRate")
}
