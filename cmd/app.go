package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"github.com/matrixise/amm-tracker/internal/aggregator"
	"github.com/matrixise/amm-tracker/internal/blockchain"
	"github.com/matrixise/amm-tracker/internal/config"
	"github.com/matrixise/amm-tracker/internal/coordinator"
	"github.com/matrixise/amm-tracker/internal/logger"
)

// app holds what every command that talks to the chain needs.
type app struct {
	cfg         *config.Config
	databaseURL string
	client      *blockchain.Client
	owner       string
	tokens      []aggregator.Token
	pool        *aggregator.Pool
}

// loadConfig reads configuration and sets up logging. The --log-level flag
// wins over the config file when given explicitly.
func loadConfig() (*config.Config, string, error) {
	logger.Setup(logLevel)

	cfg, databaseURL, err := config.LoadWithDefaults(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return nil, "", err
	}

	level := cfg.LogLevel
	if rootCmd.PersistentFlags().Changed("log-level") {
		level = logLevel
	}
	logger.SetupWithFormat(level, cfg.LogFormat)

	return cfg, databaseURL, nil
}

// newApp connects to the RPC endpoints and binds the configured contracts.
func newApp(ctx context.Context) (*app, error) {
	cfg, databaseURL, err := loadConfig()
	if err != nil {
		return nil, err
	}

	client, err := blockchain.NewClient(cfg.RPCUrls, blockchain.Options{
		Timeout:   cfg.GetQueryTimeout(),
		RateLimit: cfg.RPCRateLimit,
	})
	if err != nil {
		slog.Error("Failed to connect to RPC", "error", err)
		return nil, err
	}

	if len(cfg.RPCUrls) == 1 {
		slog.Info("RPC connection established", "endpoint", cfg.RPCUrls[0])
	} else {
		slog.Info("RPC connection established with failover",
			"endpoints", len(cfg.RPCUrls),
			"primary", cfg.RPCUrls[0])
	}

	tokens, err := client.ResolveTokens(ctx, cfg.Tokens)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve tokens: %w", err)
	}
	pool, err := client.ResolvePool(ctx, cfg.Pool)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve pool: %w", err)
	}

	a := &app{
		cfg:         cfg,
		databaseURL: databaseURL,
		client:      client,
		owner:       checksum(cfg.Owner),
		tokens:      tokens,
		pool:        pool,
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"owner", a.owner,
		"tokens", a.symbols(),
		"pool", lo.TernaryF(pool != nil, func() string { return pool.Address }, func() string { return "" }),
	)
	return a, nil
}

// newCoordinator builds a coordinator over the configured aggregators.
func (a *app) newCoordinator(observers ...coordinator.Observer) *coordinator.Coordinator {
	return coordinator.New(
		aggregator.NewBalanceAggregator(a.cfg.BaseDecimals, a.cfg.MaxConcurrentQueries),
		aggregator.NewPoolAggregator(a.cfg.BaseDecimals, a.cfg.MaxConcurrentQueries),
		coordinator.Observers(observers),
	)
}

func (a *app) symbols() []string {
	return lo.Map(a.tokens, func(t aggregator.Token, _ int) string { return t.Symbol })
}

func (a *app) close() {
	a.client.Close()
}

func checksum(address string) string {
	if address == "" {
		return ""
	}
	return common.HexToAddress(address).Hex()
}
