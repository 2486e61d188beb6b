// internal/config/config.go
//
// 服務設定：先讀 YAML 檔（不存在則使用預設值），再以環境變數覆寫。
// .env 由各 cmd 在呼叫 Load 之前以 godotenv 載入。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"banksystem/internal/logging"
	"banksystem/internal/storage"
)

// DefaultSeedAccounts 為找不到任何快照時建立的帳戶。
var DefaultSeedAccounts = []string{"John", "Alice", "Bob", "Vasya"}

// Config 為整個服務的設定。
type Config struct {
	Storage      string                 `yaml:"storage"`
	DataFile     string                 `yaml:"data_file"`
	SeedAccounts []string               `yaml:"seed_accounts"`
	HTTP         HTTPConfig             `yaml:"http"`
	Postgres     storage.PostgresConfig `yaml:"postgres"`
	Log          logging.Config         `yaml:"log"`
	Metrics      MetricsConfig          `yaml:"metrics"`
	Resilience   ResilienceConfig       `yaml:"resilience"`
}

// HTTPConfig 為 HTTP server 的位址與逾時設定。
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig 控制 Prometheus 指標。
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// ResilienceConfig 對應 storage.ResilientConfig。
type ResilienceConfig struct {
	Timeout             time.Duration `yaml:"timeout"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

// Default 回傳預設設定：CSV 檔 balances.csv、:8080、四個預設帳戶。
func Default() Config {
	rc := storage.DefaultResilientConfig()
	return Config{
		Storage:      storage.BackendCSV,
		DataFile:     "balances.csv",
		SeedAccounts: append([]string(nil), DefaultSeedAccounts...),
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Postgres: storage.DefaultPostgresConfig(),
		Log:      logging.DefaultConfig(),
		Metrics:  MetricsConfig{Enabled: true, Namespace: "bank"},
		Resilience: ResilienceConfig{
			Timeout:             rc.Timeout,
			OpenTimeout:         rc.OpenTimeout,
			ConsecutiveFailures: rc.ConsecutiveFailures,
		},
	}
}

// Load 讀取 path 指定的 YAML 檔並套用環境變數。
// path 為空或檔案不存在時回傳預設值（仍會套用環境變數）。
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BANK_STORAGE"); v != "" {
		c.Storage = strings.ToLower(v)
	}
	if v := os.Getenv("BANK_DATA_FILE"); v != "" {
		c.DataFile = v
	}
	if v := os.Getenv("BANK_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := os.LookupEnv("BANK_SEED_ACCOUNTS"); ok {
		c.SeedAccounts = splitList(v)
	}

	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		c.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid POSTGRES_PORT %q: %w", v, err)
		}
		c.Postgres.Port = port
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		c.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		c.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		c.Postgres.Database = v
	}
	if v := os.Getenv("POSTGRES_SSLMODE"); v != "" {
		c.Postgres.SSLMode = v
	}

	c.Log = logging.ApplyEnv(c.Log)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate 檢查後端名稱與必要欄位。
func (c Config) Validate() error {
	switch c.Storage {
	case storage.BackendCSV, storage.BackendJSON:
		if c.DataFile == "" {
			return fmt.Errorf("data_file is required for %s storage", c.Storage)
		}
	case storage.BackendPostgres:
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return errors.New("postgres host and database are required")
		}
	default:
		return fmt.Errorf("%w: %q", storage.ErrUnknownBackend, c.Storage)
	}
	if c.HTTP.Addr == "" {
		return errors.New("http addr is required")
	}
	return nil
}

// StoreOptions 轉成 storage.Open 的參數。
func (c Config) StoreOptions() storage.Options {
	return storage.Options{
		Backend:  c.Storage,
		Path:     c.DataFile,
		Postgres: c.Postgres,
	}
}

// ResilientConfig 轉成 storage.ResilientConfig，未設定的欄位沿用預設值。
func (c Config) ResilientConfig() storage.ResilientConfig {
	rc := storage.DefaultResilientConfig()
	if c.Resilience.Timeout > 0 {
		rc.Timeout = c.Resilience.Timeout
	}
	if c.Resilience.OpenTimeout > 0 {
		rc.OpenTimeout = c.Resilience.OpenTimeout
	}
	if c.Resilience.ConsecutiveFailures > 0 {
		rc.ConsecutiveFailures = c.Resilience.ConsecutiveFailures
	}
	return rc
}
