package config

import (
	"fmt"
	"os"

	sdkmath "cosmossdk.io/math"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"YieldVault/internal/auth"
	"YieldVault/internal/model"
	"YieldVault/internal/treasury"
)

// Token is a token listed at startup.
type Token struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int32  `yaml:"decimals"`
}

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level"  env:"VAULT_LOG_LEVEL"`
		Format string `yaml:"format" env:"VAULT_LOG_FORMAT"`
	} `yaml:"log"`
	Store struct {
		// Driver is "memory", "sqlite", "postgres" or "mysql".
		Driver    string `yaml:"driver"     env:"VAULT_STORE_DRIVER"`
		DSN       string `yaml:"dsn"        env:"VAULT_STORE_DSN"`
		StateFile string `yaml:"state_file" env:"VAULT_STATE_FILE"`
	} `yaml:"store"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"database"`
	Limits struct {
		// Amounts are base-unit integers; max_index_growth is a ratio.
		MaxSingleTransfer  string `yaml:"max_single_transfer"   env:"VAULT_MAX_SINGLE_TRANSFER"`
		DailyTransferLimit string `yaml:"daily_transfer_limit"  env:"VAULT_DAILY_TRANSFER_LIMIT"`
		MaxBatchSize       int    `yaml:"max_batch_size"        env:"VAULT_MAX_BATCH_SIZE"`
		MaxIndexGrowth     string `yaml:"max_index_growth"      env:"VAULT_MAX_INDEX_GROWTH"`
		MaxGasFeePerUser   string `yaml:"max_gas_fee_per_user"  env:"VAULT_MAX_GAS_FEE"`
		DisplayDecimals    int32  `yaml:"display_decimals"      env:"VAULT_DISPLAY_DECIMALS"`
	} `yaml:"limits"`
	Roles struct {
		Admins    []string `yaml:"admins"    env:"VAULT_ADMINS"    envSeparator:","`
		Guardians []string `yaml:"guardians" env:"VAULT_GUARDIANS" envSeparator:","`
		Oracles   []string `yaml:"oracles"   env:"VAULT_ORACLES"   envSeparator:","`
	} `yaml:"roles"`
	Tokens   []Token `yaml:"tokens"`
	Schedule struct {
		SnapshotCron string `yaml:"snapshot_cron" env:"CRON_SNAPSHOT"`
		ReportCron   string `yaml:"report_cron"   env:"CRON_REPORT"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id"   env:"TELEGRAM_CHAT_ID"`
	} `yaml:"telegram"`
	Telemetry struct {
		Enabled     bool   `yaml:"enabled"      env:"VAULT_OTEL_ENABLED"`
		Endpoint    string `yaml:"endpoint"     env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
		ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
	} `yaml:"telemetry"`
	Proxy string `yaml:"proxy" env:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Tokens are file-only; keep env from walking the slice.
	tokens := cfg.Tokens
	cfg.Tokens = nil
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Tokens = tokens

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Driver == "memory" && c.Store.StateFile == "" {
		c.Store.StateFile = "data/vault_state.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/yield_vault.db"
	}
	if c.Limits.DisplayDecimals == 0 {
		c.Limits.DisplayDecimals = 6
	}
	if c.Schedule.SnapshotCron == "" {
		c.Schedule.SnapshotCron = "0 */15 * * * *"
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 9 * * *"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "yield-vault"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite", "postgres", "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}
	if len(c.Roles.Admins) == 0 {
		return fmt.Errorf("roles.admins needs at least one address")
	}
	if _, err := c.RoleBook(); err != nil {
		return err
	}
	if _, err := c.TreasuryLimits(); err != nil {
		return err
	}
	for i, t := range c.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("tokens[%d].symbol is required", i)
		}
		if _, err := model.ParseAddress(t.Address); err != nil {
			return fmt.Errorf("tokens[%d].address: %w", i, err)
		}
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	return nil
}

// TreasuryLimits converts the limits section, falling back to
// treasury.DefaultLimits for anything unset.
func (c *Config) TreasuryLimits() (treasury.Limits, error) {
	l := treasury.DefaultLimits()
	var err error
	if l.MaxSingleTransfer, err = parseAmount("limits.max_single_transfer", c.Limits.MaxSingleTransfer, l.MaxSingleTransfer); err != nil {
		return treasury.Limits{}, err
	}
	if l.DailyTransferLimit, err = parseAmount("limits.daily_transfer_limit", c.Limits.DailyTransferLimit, l.DailyTransferLimit); err != nil {
		return treasury.Limits{}, err
	}
	if l.MaxGasFeePerUser, err = parseAmount("limits.max_gas_fee_per_user", c.Limits.MaxGasFeePerUser, l.MaxGasFeePerUser); err != nil {
		return treasury.Limits{}, err
	}
	if c.Limits.MaxBatchSize < 0 {
		return treasury.Limits{}, fmt.Errorf("limits.max_batch_size must not be negative")
	}
	if c.Limits.MaxBatchSize > 0 {
		l.MaxBatchSize = c.Limits.MaxBatchSize
	}
	if c.Limits.MaxIndexGrowth != "" {
		ratio, err := sdkmath.LegacyNewDecFromStr(c.Limits.MaxIndexGrowth)
		if err != nil {
			return treasury.Limits{}, fmt.Errorf("limits.max_index_growth: %w", err)
		}
		if ratio.LT(sdkmath.LegacyOneDec()) {
			return treasury.Limits{}, fmt.Errorf("limits.max_index_growth must be at least 1")
		}
		// LegacyDec carries 18 decimals, the same scale as the index.
		l.MaxIndexGrowth = sdkmath.NewIntFromBigInt(ratio.BigInt())
	}
	if l.MaxSingleTransfer.GT(l.DailyTransferLimit) {
		return treasury.Limits{}, fmt.Errorf("limits.max_single_transfer exceeds daily_transfer_limit")
	}
	return l, nil
}

func parseAmount(field, s string, fallback sdkmath.Int) (sdkmath.Int, error) {
	if s == "" {
		return fallback, nil
	}
	v, ok := sdkmath.NewIntFromString(s)
	if !ok || !v.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("%s: %q is not a positive integer", field, s)
	}
	return v, nil
}

// RoleBook builds the role assignments from the roles section.
func (c *Config) RoleBook() (*auth.RoleBook, error) {
	book := auth.NewRoleBook()
	sections := []struct {
		name  string
		role  auth.Role
		addrs []string
	}{
		{"roles.admins", auth.RoleAdmin, c.Roles.Admins},
		{"roles.guardians", auth.RoleGuardian, c.Roles.Guardians},
		{"roles.oracles", auth.RoleOracle, c.Roles.Oracles},
	}
	for _, s := range sections {
		for _, raw := range s.addrs {
			addr, err := model.ParseAddress(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", s.name, err)
			}
			if addr.IsZero() {
				return nil, fmt.Errorf("%s: zero address", s.name)
			}
			book.Grant(s.role, addr)
		}
	}
	return book, nil
}
