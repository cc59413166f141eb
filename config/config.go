/*
Package config loads server configuration.

SOURCES (highest precedence first):
  1. Command-line flags (-port, -db), applied by cmd/server
  2. Environment variables, prefix HRE_, "." replaced by "_"
     (HRE_SERVER_PORT, HRE_AUTH_JWT_SECRET, ...)
  3. Config file (-config path, or ./config.yaml, ./config/config.yaml)
  4. Defaults below

KEYS:
  server.port                  HTTP port (8080)
  server.cors.allowed_origins  CORS origins (["*"])
  server.scenarios             mount the demo scenario endpoints (false)
  db.path                      SQLite path (timeoff.db, ":memory:" allowed)
  log.level                    debug|info|warn|error (info)
  log.format                   json|console (json)
  auth.jwt_secret              HS256 secret, at least 16 characters
  payroll.tax_rate             flat income tax rate as a fraction (0.15)
  payroll.workers              parallel employees per batch (4)
  payroll.schedule.enabled     run last month's batch periodically (false)
  payroll.schedule.interval    how often (24h)
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Log     LogConfig     `mapstructure:"log"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Payroll PayrollConfig `mapstructure:"payroll"`
}

type ServerConfig struct {
	Port      int        `mapstructure:"port"`
	CORS      CORSConfig `mapstructure:"cors"`
	Scenarios bool       `mapstructure:"scenarios"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type PayrollConfig struct {
	TaxRate  string         `mapstructure:"tax_rate"`
	Workers  int            `mapstructure:"workers"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

type ScheduleConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// TaxRateDecimal parses payroll.tax_rate. Call after Validate.
func (p PayrollConfig) TaxRateDecimal() decimal.Decimal {
	return decimal.RequireFromString(p.TaxRate)
}

// Load reads configuration from path (optional), the environment and
// defaults, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.scenarios", false)
	v.SetDefault("db.path", "timeoff.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("payroll.tax_rate", "0.15")
	v.SetDefault("payroll.workers", 4)
	v.SetDefault("payroll.schedule.enabled", false)
	v.SetDefault("payroll.schedule.interval", "24h")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range 1-65535", c.Server.Port)
	}
	if c.DB.Path == "" {
		return errors.New("config: db.path is required")
	}
	rate, err := decimal.NewFromString(c.Payroll.TaxRate)
	if err != nil {
		return fmt.Errorf("config: payroll.tax_rate %q is not a number", c.Payroll.TaxRate)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("config: payroll.tax_rate %s must be between 0 and 1", rate)
	}
	if c.Payroll.Workers < 1 {
		return fmt.Errorf("config: payroll.workers must be positive, got %d", c.Payroll.Workers)
	}
	if c.Payroll.Schedule.Enabled && c.Payroll.Schedule.Interval <= 0 {
		return errors.New("config: payroll.schedule.interval must be positive")
	}
	return nil
}
