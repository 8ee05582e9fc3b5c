package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Storage backend names.
const (
	BackendBadger    = "badger"
	BackendSurrealDB = "surrealdb"
)

// Config holds all configuration for the round-up server
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Pricing     PricingConfig    `toml:"pricing"`
	Investing   InvestingConfig  `toml:"investing"`
	AutoInvest  AutoInvestConfig `toml:"auto_invest"`
	Auth        AuthConfig       `toml:"auth"`
	Logging     LoggingConfig    `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the record store backend.
type StorageConfig struct {
	Backend   string          `toml:"backend"`
	Badger    BadgerConfig    `toml:"badger"`
	SurrealDB SurrealDBConfig `toml:"surrealdb"`
}

// BadgerConfig holds the embedded store location.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// SurrealDBConfig holds SurrealDB connection settings.
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// PricingConfig holds reference price source configuration
type PricingConfig struct {
	EODHD EODHDConfig `toml:"eodhd"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// InvestingConfig maps each allocation bucket to the instrument bought for it.
type InvestingConfig struct {
	Buckets BucketInstruments `toml:"buckets"`
}

// BucketInstruments has one entry per allocation bucket.
type BucketInstruments struct {
	Stocks InstrumentConfig `toml:"stocks"`
	Bonds  InstrumentConfig `toml:"bonds"`
	ETFs   InstrumentConfig `toml:"etfs"`
}

// InstrumentConfig describes a tradable instrument and its fallback price.
type InstrumentConfig struct {
	Symbol         string  `toml:"symbol"`
	ReferencePrice float64 `toml:"reference_price"`
	InvestmentType string  `toml:"investment_type"`
}

// AutoInvestConfig controls the scheduled investment of pending round-ups.
type AutoInvestConfig struct {
	Enabled   bool     `toml:"enabled"`
	Schedule  string   `toml:"schedule"`
	MinAmount float64  `toml:"min_amount"`
	UserIDs   []string `toml:"user_ids"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend: BackendBadger,
			Badger:  BadgerConfig{Path: "data/roundup"},
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Namespace: "roundup",
				Database:  "roundup",
				Username:  "root",
				Password:  "root",
			},
		},
		Pricing: PricingConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
		Investing: InvestingConfig{
			Buckets: BucketInstruments{
				Stocks: InstrumentConfig{Symbol: "VTI", ReferencePrice: 100, InvestmentType: "etf"},
				Bonds:  InstrumentConfig{Symbol: "BND", ReferencePrice: 80, InvestmentType: "etf"},
				ETFs:   InstrumentConfig{Symbol: "SPY", ReferencePrice: 400, InvestmentType: "etf"},
			},
		},
		AutoInvest: AutoInvestConfig{
			Enabled:   false,
			Schedule:  "0 9 * * 1",
			MinAmount: 5,
			UserIDs:   []string{"default"},
		},
		Auth: AuthConfig{
			JWTSecret: "dev-jwt-secret-change-in-production",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendBadger, BackendSurrealDB:
	default:
		return fmt.Errorf("unknown storage backend %q (supported: %s, %s)", c.Storage.Backend, BackendBadger, BackendSurrealDB)
	}
	for name, inst := range map[string]InstrumentConfig{
		"stocks": c.Investing.Buckets.Stocks,
		"bonds":  c.Investing.Buckets.Bonds,
		"etfs":   c.Investing.Buckets.ETFs,
	} {
		if strings.TrimSpace(inst.Symbol) == "" {
			return fmt.Errorf("investing.buckets.%s.symbol is required", name)
		}
		if inst.ReferencePrice < 0 {
			return fmt.Errorf("investing.buckets.%s.reference_price must not be negative", name)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ROUNDUP_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("ROUNDUP_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("ROUNDUP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if backend := os.Getenv("ROUNDUP_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}

	if path := os.Getenv("ROUNDUP_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if addr := os.Getenv("ROUNDUP_SURREALDB_ADDRESS"); addr != "" {
		config.Storage.SurrealDB.Address = addr
	}

	if user := os.Getenv("ROUNDUP_SURREALDB_USERNAME"); user != "" {
		config.Storage.SurrealDB.Username = user
	}

	if pass := os.Getenv("ROUNDUP_SURREALDB_PASSWORD"); pass != "" {
		config.Storage.SurrealDB.Password = pass
	}

	if key := os.Getenv("EODHD_API_KEY"); key != "" {
		config.Pricing.EODHD.APIKey = key
	}

	if enabled := os.Getenv("ROUNDUP_AUTO_INVEST"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.AutoInvest.Enabled = b
		}
	}

	if schedule := os.Getenv("ROUNDUP_AUTO_INVEST_SCHEDULE"); schedule != "" {
		config.AutoInvest.Schedule = schedule
	}

	if secret := os.Getenv("ROUNDUP_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	if level := os.Getenv("ROUNDUP_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("ROUNDUP_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// IsProduction reports whether the environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production") || strings.EqualFold(c.Environment, "prod")
}
