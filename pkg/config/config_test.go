package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: test
source:
  type: csv
  csv_dir: /tmp/bars
models:
  - { name: naive, kind: naive, weight: 1, enabled: true }
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.Equal(t, "info", c.Logger.Level)
	assert.Equal(t, time.Hour, c.Cache.SeriesTTL)
	assert.Equal(t, 24*time.Hour, c.Cache.JobTTL)
	assert.Equal(t, "current_month", c.Backtest.DefaultTestPeriod)
	assert.Equal(t, "2months", c.Backtest.DefaultLookback)
	assert.Equal(t, "80_20", c.Backtest.DefaultSplit)
	assert.Equal(t, 2, c.Queue.Workers)
	require.Len(t, c.Models, 1)
	assert.Equal(t, ModelEntry{Name: "naive", Kind: "naive", Weight: 1, Enabled: true}, c.Models[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing environment", `
source: {type: csv, csv_dir: x}
models: [{kind: naive, enabled: true}]`, "environment"},
		{"bad source", `
environment: test
source: {type: parquet}
models: [{kind: naive, enabled: true}]`, "source.type"},
		{"clickhouse without host", `
environment: test
source: {type: clickhouse}
models: [{kind: naive, enabled: true}]`, "clickhouse.host"},
		{"unknown kind", `
environment: test
source: {type: csv, csv_dir: x}
models: [{kind: lasso, enabled: true}]`, "unknown kind"},
		{"negative weight", `
environment: test
source: {type: csv, csv_dir: x}
models: [{kind: naive, weight: -1, enabled: true}]`, "weight"},
		{"duplicate", `
environment: test
source: {type: csv, csv_dir: x}
models: [{kind: naive, enabled: true}, {name: naive, kind: drift, enabled: true}]`, "duplicate"},
		{"none enabled", `
environment: test
source: {type: csv, csv_dir: x}
models: [{kind: naive}]`, "enabled"},
		{"remote without url", `
environment: test
source: {type: csv, csv_dir: x}
models: [{name: lstm, kind: remote, enabled: true}]`, "model_service.url"},
		{"bad lookback", `
environment: test
source: {type: csv, csv_dir: x}
models: [{kind: naive, enabled: true}]
backtest: {default_lookback: 2weeks}`, "default_lookback"},
		{"kafka without brokers", `
environment: test
source: {type: csv, csv_dir: x}
models: [{kind: naive, enabled: true}]
kafka: {enabled: true}`, "kafka.brokers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

	t.Setenv("FINCAST_ENV", "staging")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MODEL_SERVICE_URL", "http://models:8000")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, "redis:6380", c.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "http://models:8000", c.ModelService.URL)
}

func TestLoadShippedConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", c.Source.Type)
	assert.Len(t, c.Models, 8)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
