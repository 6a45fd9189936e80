package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	ownerAddr = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"
	daiAddr   = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	wethAddr  = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	poolAddr  = "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
)

// validConfig is the smallest config that passes validation.
func validConfig() *Config {
	return &Config{
		RPCUrls:      []string{"https://rpc.example.com"},
		Tokens:       []TokenConfig{{Symbol: "DAI", Address: daiAddr}},
		BaseDecimals: DefaultBaseDecimals,
		DisplayChars: DefaultDisplayChars,
	}
}

func checkValid(t *testing.T, cfg *Config, wantError bool) {
	t.Helper()
	err := NewValidator().Struct(cfg)
	if wantError {
		assert.Error(t, err)
	} else {
		assert.NoError(t, err)
	}
}

func TestEthAddressValidator(t *testing.T) {
	tests := []struct {
		name      string
		address   string
		wantError bool
	}{
		{"valid address with 0x prefix", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", false},
		{"valid address all lowercase", "0x742d35cc6634c0532925a3b844bc9e7595f0beb0", false},
		{"zero address is valid", "0x0000000000000000000000000000000000000000", false},
		{"valid address without 0x prefix", "742d35Cc6634C0532925a3b844Bc9e7595f0bEb0", false},
		{"too short", "0x742d35Cc", true},
		{"too long", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb123", true},
		{"invalid hex character", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEg0", true},
	}

	for _, tt := range tests {
		t.Run("owner "+tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Owner = tt.address
			checkValid(t, cfg, tt.wantError)
		})
		t.Run("token "+tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Tokens = []TokenConfig{{Symbol: "X", Address: tt.address}}
			checkValid(t, cfg, tt.wantError)
		})
		t.Run("pool "+tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Pool = &PoolConfig{Address: tt.address}
			checkValid(t, cfg, tt.wantError)
		})
	}
}

func TestEmptyOwnerIsValid(t *testing.T) {
	cfg := validConfig()
	cfg.Owner = ""
	checkValid(t, cfg, false)
}

func TestScheduleValidator(t *testing.T) {
	tests := []struct {
		name      string
		interval  string
		wantError bool
	}{
		{"empty is one-shot", "", false},
		{"valid duration 5m", "5m", false},
		{"valid duration 30s", "30s", false},
		{"valid duration 12h", "12h", false},
		{"valid cron", "*/5 * * * *", false},
		{"valid cron with seconds", "*/30 * * * * *", false},
		{"non-aligned 7m", "7m", true},
		{"non-aligned 5h", "5h", true},
		{"garbage", "every five minutes", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Interval = tt.interval
			checkValid(t, cfg, tt.wantError)
		})
	}
}

func TestTimezoneValidator(t *testing.T) {
	tests := []struct {
		name      string
		timezone  string
		wantError bool
	}{
		{"UTC", "UTC", false},
		{"America/New_York", "America/New_York", false},
		{"Europe/Paris", "Europe/Paris", false},
		{"empty timezone is valid (defaults to UTC)", "", false},
		{"invalid timezone", "Invalid/Timezone", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Timezone = tt.timezone
			checkValid(t, cfg, tt.wantError)
		})
	}
}

func TestDurationValidator(t *testing.T) {
	tests := []struct {
		name      string
		timeout   string
		wantError bool
	}{
		{"empty uses default", "", false},
		{"seconds", "10s", false},
		{"sub-second", "750ms", false},
		{"zero", "0s", true},
		{"negative", "-1s", true},
		{"not a duration", "ten seconds", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.QueryTimeout = tt.timeout
			checkValid(t, cfg, tt.wantError)
		})
	}
}

func TestBigintValidator(t *testing.T) {
	tests := []struct {
		name      string
		precision string
		wantError bool
	}{
		{"unset reads from contract", "", false},
		{"power of ten", "1000000", false},
		{"larger than uint64", "100000000000000000000000000000", false},
		{"not a power of ten", "12345", false},
		{"zero", "0", true},
		{"negative", "-10", true},
		{"decimal", "1.5", true},
		{"hex", "0x10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Pool = &PoolConfig{Address: poolAddr, SharePrecision: tt.precision}
			checkValid(t, cfg, tt.wantError)
		})
	}
}

func TestValidatorBounds(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{"no RPC URL", func(c *Config) { c.RPCUrls = nil }, true},
		{"invalid RPC URL", func(c *Config) { c.RPCUrls = []string{"not-a-url"} }, true},
		{"no tokens", func(c *Config) { c.Tokens = nil }, false},
		{"symbol too long", func(c *Config) { c.Tokens[0].Symbol = "ABCDEFGHIJKLMNOPQRSTUVWXYZABCDEFG" }, true},
		{"empty symbol resolved on chain", func(c *Config) { c.Tokens[0].Symbol = "" }, false},
		{"display chars zero", func(c *Config) { c.DisplayChars = 0 }, true},
		{"base decimals 77", func(c *Config) { c.BaseDecimals = 77 }, false},
		{"base decimals 78", func(c *Config) { c.BaseDecimals = 78 }, true},
		{"negative concurrency", func(c *Config) { c.MaxConcurrentQueries = -1 }, true},
		{"negative rate limit", func(c *Config) { c.RPCRateLimit = -0.5 }, true},
		{"port too low", func(c *Config) { c.HTTPPort = 1023 }, true},
		{"port too high", func(c *Config) { c.HTTPPort = 65536 }, true},
		{"valid port", func(c *Config) { c.HTTPPort = 9090 }, false},
		{"invalid log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"invalid log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"json log format", func(c *Config) { c.LogFormat = "json" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			checkValid(t, cfg, tt.wantError)
		})
	}
}

func TestValidatorIntegration(t *testing.T) {
	cfg := &Config{
		RPCUrls: []string{"https://rpc1.example.com", "https://rpc2.example.com"},
		Owner:   ownerAddr,
		Tokens: []TokenConfig{
			{Symbol: "DAI", Address: daiAddr},
			{Symbol: "WETH", Address: wethAddr},
		},
		Pool:                 &PoolConfig{Address: poolAddr, SharePrecision: "1000000"},
		BaseDecimals:         18,
		DisplayChars:         7,
		MaxConcurrentQueries: 8,
		RPCRateLimit:         25,
		QueryTimeout:         "10s",
		Interval:             "5m",
		Timezone:             "America/New_York",
		LogLevel:             "debug",
		LogFormat:            "text",
		HTTPPort:             8080,
	}
	checkValid(t, cfg, false)
}
