package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		wantError bool
		check     func(*Config)
	}{
		{
			name: "single rpc_url converts to rpc_urls",
			cfg:  &Config{RPCUrl: "https://rpc1.example.com"},
			check: func(c *Config) {
				assert.Empty(t, c.RPCUrl)
				assert.Equal(t, []string{"https://rpc1.example.com"}, c.RPCUrls)
			},
		},
		{
			name: "rpc_urls takes precedence over rpc_url",
			cfg: &Config{
				RPCUrl:  "https://rpc1.example.com",
				RPCUrls: []string{"https://rpc2.example.com", "https://rpc3.example.com"},
			},
			check: func(c *Config) {
				assert.Empty(t, c.RPCUrl)
				assert.Equal(t, []string{"https://rpc2.example.com", "https://rpc3.example.com"}, c.RPCUrls)
			},
		},
		{
			name:      "both empty returns error",
			cfg:       &Config{},
			wantError: true,
		},
		{
			name: "trims owner, tokens and pool",
			cfg: &Config{
				RPCUrls: []string{"https://rpc.example.com"},
				Owner:   "  " + ownerAddr + "\n",
				Tokens:  []TokenConfig{{Symbol: " DAI ", Address: " " + daiAddr}},
				Pool:    &PoolConfig{Address: poolAddr + " ", SharePrecision: " 1000 "},
			},
			check: func(c *Config) {
				assert.Equal(t, ownerAddr, c.Owner)
				assert.Equal(t, TokenConfig{Symbol: "DAI", Address: daiAddr}, c.Tokens[0])
				assert.Equal(t, PoolConfig{Address: poolAddr, SharePrecision: "1000"}, *c.Pool)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Normalize()
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(tt.cfg)
			}
		})
	}
}

func TestConfigGetTimezone(t *testing.T) {
	tests := []struct {
		timezone string
		want     string
	}{
		{"UTC", "UTC"},
		{"", "UTC"},
		{"Europe/Brussels", "Europe/Brussels"},
		{"Not/AZone", "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.timezone, func(t *testing.T) {
			cfg := &Config{Timezone: tt.timezone}
			assert.Equal(t, tt.want, cfg.GetTimezone().String())
		})
	}
}

func TestConfigShouldRunImmediately(t *testing.T) {
	yes, no := true, false

	assert.True(t, (&Config{RunImmediately: &yes}).ShouldRunImmediately())
	assert.False(t, (&Config{RunImmediately: &no}).ShouldRunImmediately())
	assert.True(t, (&Config{}).ShouldRunImmediately(), "nil defaults to true")
}

func TestConfigIsCronExpression(t *testing.T) {
	assert.False(t, (&Config{Interval: "5m"}).IsCronExpression())
	assert.True(t, (&Config{Interval: "*/5 * * * *"}).IsCronExpression())
	assert.True(t, (&Config{Interval: "*/30 * * * * *"}).IsCronExpression())
}

func TestConfigGetQueryTimeout(t *testing.T) {
	assert.Equal(t, 3*time.Second, (&Config{QueryTimeout: "3s"}).GetQueryTimeout())
	assert.Equal(t, DefaultQueryTimeout, (&Config{}).GetQueryTimeout())
	assert.Equal(t, DefaultQueryTimeout, (&Config{QueryTimeout: "bogus"}).GetQueryTimeout())
}

func TestPoolConfigPrecision(t *testing.T) {
	assert.Nil(t, PoolConfig{}.Precision())
	assert.Nil(t, PoolConfig{SharePrecision: "abc"}.Precision())

	p := PoolConfig{SharePrecision: "1000000000000000000000"}.Precision()
	require.NotNil(t, p)
	assert.Equal(t, "1000000000000000000000", p.String())
}
