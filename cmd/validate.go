package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/matrixise/amm-tracker/internal/scheduler"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without contacting any RPC endpoint.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, databaseURL, err := loadConfig()
	if err != nil {
		return err
	}

	schedule := "on demand"
	if cfg.Interval != "" {
		schedule = scheduler.DescribeSchedule(cfg.Interval, cfg.GetTimezone())
	}

	slog.Info("Configuration valid",
		"rpc_urls", len(cfg.RPCUrls),
		"owner", cfg.Owner,
		"tokens", len(cfg.Tokens),
		"pool", cfg.Pool != nil,
		"schedule", schedule,
		"query_timeout", cfg.GetQueryTimeout(),
		"log_level", cfg.LogLevel,
		"database_url_set", databaseURL != "",
	)

	return nil
}
