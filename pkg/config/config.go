package config

import (
	"fmt"
	"os"
	"time"

	"FinCast/pkg/util"

	"gopkg.in/yaml.v3"
)

// ModelEntry registers one forecasting model.
type ModelEntry struct {
	Name    string  `yaml:"name"`
	Kind    string  `yaml:"kind"`
	Weight  float64 `yaml:"weight"`
	Enabled bool    `yaml:"enabled"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Logger struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		Output    string `yaml:"output"`
		Collector struct {
			Enabled       bool          `yaml:"enabled"`
			FlushInterval time.Duration `yaml:"flush_interval"`
		} `yaml:"collector"`
	} `yaml:"logger"`
	Source struct {
		Type   string `yaml:"type"`
		CSVDir string `yaml:"csv_dir"`
		Table  string `yaml:"table"`
	} `yaml:"source"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		LogTopic     string   `yaml:"log_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Queue struct {
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
	Cache struct {
		SeriesTTL time.Duration `yaml:"series_ttl"`
		JobTTL    time.Duration `yaml:"job_ttl"`
	} `yaml:"cache"`
	Models       []ModelEntry `yaml:"models"`
	ModelService struct {
		URL      string        `yaml:"url"`
		Timeout  time.Duration `yaml:"timeout"`
		Retries  int           `yaml:"retries"`
		Lookback int           `yaml:"lookback"`
		Breaker  struct {
			Failures uint32        `yaml:"failures"`
			Timeout  time.Duration `yaml:"timeout"`
		} `yaml:"breaker"`
	} `yaml:"model_service"`
	Backtest struct {
		DefaultTestPeriod string `yaml:"default_test_period"`
		DefaultLookback   string `yaml:"default_lookback"`
		DefaultSplit      string `yaml:"default_split"`
	} `yaml:"backtest"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"ratelimit"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FINCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.ModelService.URL = v
	}

	return c, c.Validate()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "stdout"
	}
	if c.Source.Table == "" {
		c.Source.Table = "daily_bars"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 2
	}
	if c.Queue.RetryDelay == 0 {
		c.Queue.RetryDelay = 5 * time.Second
	}
	if c.Cache.SeriesTTL == 0 {
		c.Cache.SeriesTTL = time.Hour
	}
	if c.Cache.JobTTL == 0 {
		c.Cache.JobTTL = 24 * time.Hour
	}
	if c.Backtest.DefaultTestPeriod == "" {
		c.Backtest.DefaultTestPeriod = "current_month"
	}
	if c.Backtest.DefaultLookback == "" {
		c.Backtest.DefaultLookback = "2months"
	}
	if c.Backtest.DefaultSplit == "" {
		c.Backtest.DefaultSplit = "80_20"
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
}

var (
	validSources     = []string{"clickhouse", "csv"}
	validKinds       = []string{"naive", "drift", "seasonal", "bagging", "remote"}
	validTestPeriods = []string{"current_month", "current_3months"}
	validLookbacks   = []string{"1month", "2months", "3months", "6months", "1year"}
	validSplits      = []string{"80_20", "70_30"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if !oneOf(c.Source.Type, validSources) {
		return fmt.Errorf("source.type must be one of %v, got '%s'", validSources, c.Source.Type)
	}
	if c.Source.Type == "csv" && c.Source.CSVDir == "" {
		return fmt.Errorf("source.csv_dir is required for csv source")
	}
	if c.Source.Type == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for clickhouse source")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("models cannot be empty")
	}
	enabled := 0
	seen := map[string]bool{}
	for i, m := range c.Models {
		if !oneOf(m.Kind, validKinds) {
			return fmt.Errorf("models[%d]: unknown kind '%s'", i, m.Kind)
		}
		if m.Weight < 0 {
			return fmt.Errorf("models[%d]: weight must be >= 0", i)
		}
		name := m.Name
		if name == "" {
			name = m.Kind
		}
		if seen[name] {
			return fmt.Errorf("models[%d]: duplicate name '%s'", i, name)
		}
		seen[name] = true
		if m.Kind == "remote" && m.Enabled && c.ModelService.URL == "" {
			return fmt.Errorf("models[%d]: remote model '%s' requires model_service.url", i, name)
		}
		if m.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one model must be enabled")
	}

	if !oneOf(c.Backtest.DefaultTestPeriod, validTestPeriods) {
		return fmt.Errorf("backtest.default_test_period '%s' is not one of %v", c.Backtest.DefaultTestPeriod, validTestPeriods)
	}
	if !oneOf(c.Backtest.DefaultLookback, validLookbacks) {
		return fmt.Errorf("backtest.default_lookback '%s' is not one of %v", c.Backtest.DefaultLookback, validLookbacks)
	}
	if !oneOf(c.Backtest.DefaultSplit, validSplits) {
		return fmt.Errorf("backtest.default_split '%s' is not one of %v", c.Backtest.DefaultSplit, validSplits)
	}
	return nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
