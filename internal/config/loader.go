package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "AMM_TRACKER"

// envKeys are bound to AMM_TRACKER_<KEY>, dots becoming underscores.
var envKeys = []string{
	"rpc_url",
	"rpc_urls",
	"owner",
	"pool.address",
	"pool.share_precision",
	"base_decimals",
	"display_chars",
	"max_concurrent_queries",
	"rpc_rate_limit",
	"query_timeout",
	"interval",
	"timezone",
	"run_immediately",
	"log_level",
	"log_format",
	"http_port",
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("interval", "")
	v.SetDefault("http_port", 8080)
	v.SetDefault("run_immediately", true)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("base_decimals", DefaultBaseDecimals)
	v.SetDefault("display_chars", DefaultDisplayChars)
	v.SetDefault("max_concurrent_queries", DefaultMaxConcurrentQueries)
	v.SetDefault("rpc_rate_limit", 0)
	v.SetDefault("query_timeout", DefaultQueryTimeout.String())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Env lists arrive as one comma-separated string.
	if raw, ok := v.Get("rpc_urls").(string); ok {
		cfg.RPCUrls = splitList(raw)
	}

	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("config normalization failed: %w", err)
	}

	if err := NewValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads an optional .env file, then config along with the
// optional DATABASE_URL. An empty URL means snapshot history is disabled.
func LoadWithDefaults(configPath string) (*Config, string, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, "", err
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, "", err
	}
	return cfg, DatabaseURL(), nil
}

// LoadDotEnv exports ./.env into the process environment. Variables that are
// already set win; a missing file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// DatabaseURL reads DATABASE_URL, falling back to AMM_TRACKER_DATABASE_URL.
func DatabaseURL() string {
	v := viper.New()
	_ = v.BindEnv("database_url", "DATABASE_URL", envPrefix+"_DATABASE_URL")
	return v.GetString("database_url")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
