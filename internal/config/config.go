package config

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/matrixise/amm-tracker/internal/scheduler"
)

const (
	DefaultBaseDecimals         = 18
	DefaultDisplayChars         = 7
	DefaultMaxConcurrentQueries = 8
	DefaultQueryTimeout         = 10 * time.Second
)

// Config represents the application configuration
type Config struct {
	RPCUrl               string        `mapstructure:"rpc_url"`
	RPCUrls              []string      `mapstructure:"rpc_urls" validate:"required,min=1,dive,url"`
	Owner                string        `mapstructure:"owner" validate:"omitempty,eth_addr"`
	Tokens               []TokenConfig `mapstructure:"tokens" validate:"omitempty,dive"`
	Pool                 *PoolConfig   `mapstructure:"pool"`
	BaseDecimals         uint8         `mapstructure:"base_decimals" validate:"max=77"`
	DisplayChars         int           `mapstructure:"display_chars" validate:"min=1,max=78"`
	MaxConcurrentQueries int           `mapstructure:"max_concurrent_queries" validate:"min=0,max=256"`
	RPCRateLimit         float64       `mapstructure:"rpc_rate_limit" validate:"min=0"`
	QueryTimeout         string        `mapstructure:"query_timeout" validate:"omitempty,duration"`
	Interval             string        `mapstructure:"interval" validate:"omitempty,schedule"`
	Timezone             string        `mapstructure:"timezone" validate:"omitempty,timezone"`
	RunImmediately       *bool         `mapstructure:"run_immediately"`
	LogLevel             string        `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat            string        `mapstructure:"log_format" validate:"omitempty,oneof=text json"`
	HTTPPort             int           `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
}

// TokenConfig is one tracked token. An empty symbol is resolved on chain.
type TokenConfig struct {
	Symbol  string `mapstructure:"symbol" validate:"omitempty,max=32"`
	Address string `mapstructure:"address" validate:"required,eth_addr"`
}

// PoolConfig is the AMM pool. An empty share precision is read from the
// contract's PRECISION().
type PoolConfig struct {
	Address        string `mapstructure:"address" validate:"required,eth_addr"`
	SharePrecision string `mapstructure:"share_precision" validate:"omitempty,bigint"`
}

// Precision returns the configured share precision, or nil when unset.
func (p PoolConfig) Precision() *big.Int {
	if p.SharePrecision == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(p.SharePrecision, 10)
	if !ok {
		return nil
	}
	return v
}

// Normalize folds rpc_url into rpc_urls and trims user-supplied strings.
func (c *Config) Normalize() error {
	if len(c.RPCUrls) == 0 && c.RPCUrl != "" {
		c.RPCUrls = []string{c.RPCUrl}
	}
	c.RPCUrl = ""
	if len(c.RPCUrls) == 0 {
		return errors.New("either rpc_url or rpc_urls must be set")
	}

	c.Owner = strings.TrimSpace(c.Owner)
	for i := range c.Tokens {
		c.Tokens[i].Symbol = strings.TrimSpace(c.Tokens[i].Symbol)
		c.Tokens[i].Address = strings.TrimSpace(c.Tokens[i].Address)
	}
	if c.Pool != nil {
		c.Pool.Address = strings.TrimSpace(c.Pool.Address)
		c.Pool.SharePrecision = strings.TrimSpace(c.Pool.SharePrecision)
	}
	return nil
}

// GetTimezone returns the schedule location, UTC when unset or unknown.
func (c *Config) GetTimezone() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldRunImmediately defaults to true.
func (c *Config) ShouldRunImmediately() bool {
	return c.RunImmediately == nil || *c.RunImmediately
}

// IsCronExpression reports whether Interval is a cron expression rather
// than a duration.
func (c *Config) IsCronExpression() bool {
	return scheduler.IsCronExpression(c.Interval)
}

// GetQueryTimeout returns the per-call RPC timeout.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.QueryTimeout)
	if err != nil || d <= 0 {
		return DefaultQueryTimeout
	}
	return d
}

func ethAddressValidator(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

func durationValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

func scheduleValidator(fl validator.FieldLevel) bool {
	return scheduler.ValidateScheduleInterval(fl.Field().String()) == nil
}

func timezoneValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

// bigintValidator accepts positive base-10 integers of any size.
func bigintValidator(fl validator.FieldLevel) bool {
	v, ok := new(big.Int).SetString(fl.Field().String(), 10)
	return ok && v.Sign() > 0
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("eth_addr", ethAddressValidator)
	_ = validate.RegisterValidation("duration", durationValidator)
	_ = validate.RegisterValidation("schedule", scheduleValidator)
	_ = validate.RegisterValidation("timezone", timezoneValidator)
	_ = validate.RegisterValidation("bigint", bigintValidator)
	return validate
}
