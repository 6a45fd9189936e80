package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matrixise/amm-tracker/internal/api"
	"github.com/matrixise/amm-tracker/internal/coordinator"
	"github.com/matrixise/amm-tracker/internal/health"
	"github.com/matrixise/amm-tracker/internal/metrics"
	"github.com/matrixise/amm-tracker/internal/scheduler"
	"github.com/matrixise/amm-tracker/internal/storage"
)

var interval string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tracker daemon",
	Long: `Serve the owner's details over HTTP and keep them fresh. With an interval
the values are refreshed on a clock-aligned schedule; without one they are
fetched at startup and whenever POST /api/refresh is called.`,
	RunE: runTracker,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&interval, "interval", "", "refresh interval - duration (5m, 1h) or cron (\"*/5 * * * *\") - overrides config")
}

func runTracker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	runInterval := a.cfg.Interval
	if interval != "" {
		if err := scheduler.ValidateScheduleInterval(interval); err != nil {
			return fmt.Errorf("invalid --interval: %w", err)
		}
		runInterval = interval
	}

	m := metrics.New()
	observers := []coordinator.Observer{m}

	var history api.History
	var db health.Database
	if a.databaseURL != "" {
		if err := storage.RunMigrations(ctx, a.databaseURL); err != nil {
			slog.Error("Failed to apply migrations", "error", err)
			return err
		}
		store, err := storage.NewStore(ctx, a.databaseURL)
		if err != nil {
			slog.Error("Failed to connect to PostgreSQL", "error", err)
			return err
		}
		defer store.Close()
		slog.Info("PostgreSQL connection established, recording snapshots")

		observers = append(observers, storage.NewRecorder(store))
		history, db = store, store
	} else {
		slog.Info("DATABASE_URL not set, snapshot history disabled")
	}

	coord := a.newCoordinator(observers...)
	defer coord.Close()
	refresh := scheduler.NewSignal(coord, coord.RefreshCounter())

	var expected time.Duration
	if runInterval == "" {
		coord.Configure(a.owner, a.tokens, a.pool)
	} else {
		// The first scheduled tick, or RunNow, fetches the primed inputs.
		coord.Prime(a.owner, a.tokens, a.pool)

		sched, err := scheduler.New(scheduler.Config{
			Interval:       runInterval,
			Timezone:       a.cfg.GetTimezone(),
			RunImmediately: a.cfg.ShouldRunImmediately(),
			Logger:         slog.Default(),
		}, refresh)
		if err != nil {
			slog.Error("Failed to create scheduler", "error", err)
			return fmt.Errorf("scheduler creation failed: %w", err)
		}
		defer func() {
			if err := sched.Stop(); err != nil {
				slog.Error("Scheduler shutdown error", "error", err)
			}
		}()
		sched.Start()
		expected = scheduler.ExpectedInterval(runInterval)
	}

	checker := health.NewChecker(a.client, coord, db, expected)

	server := api.NewServer(api.ServerConfig{
		Port:         a.cfg.HTTPPort,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		Symbols:      a.symbols(),
		DisplayChars: a.cfg.DisplayChars,
	}, coord, refresh, history, checker.Handler(), m.Handler())

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	slog.Info("Tracker running", "port", a.cfg.HTTPPort, "interval", runInterval)

	select {
	case <-ctx.Done():
		slog.Info("Shutdown requested, stopping daemon")
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	return nil
}
