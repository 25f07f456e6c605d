package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repopilot/internal/engine"
	"github.com/fyrsmithlabs/repopilot/internal/history"
	"github.com/fyrsmithlabs/repopilot/internal/server"
	"github.com/fyrsmithlabs/repopilot/internal/telemetry"
	"github.com/fyrsmithlabs/repopilot/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the repository and analyze on new commits",
	Long: `Run repopilot as a daemon: watch the repository's git metadata for
new commits, run an analysis cycle whenever history changes (debounced
and rate-limited), and expose health, status, and metrics over HTTP.

Examples:
  # Watch with a configuration file
  repopilot watch --config repopilot.yaml

  # Configure via environment only
  REPOPILOT_REPOSITORY_PATH=/path/to/repo repopilot watch`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := telemetry.New(registry)
	eng := engine.New(cfg, history.NewReader(), history.NewWriter(), log, metrics)

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server.Port, log.Underlying().Named("server"), registry)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error(ctx, "status server failed", zap.Error(err))
				stop()
			}
		}()
	}

	runner := func(ctx context.Context) {
		result, err := eng.RunCycle(ctx)
		if err != nil {
			log.Error(ctx, "analysis cycle failed", zap.Error(err))
		}
		if srv != nil {
			srv.RecordCycle(result)
		}
	}

	w := watch.New(
		cfg.Repository.Path,
		cfg.Watch.Debounce.Duration(),
		cfg.Watch.MinCycleInterval.Duration(),
		log,
		runner,
	)

	log.Info(ctx, "watching repository",
		zap.String("path", cfg.Repository.Path),
		zap.Duration("debounce", cfg.Watch.Debounce.Duration()),
		zap.Duration("min_cycle_interval", cfg.Watch.MinCycleInterval.Duration()),
	)
	watchErr := w.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(ctx, "status server shutdown", zap.Error(err))
		}
	}
	return watchErr
}
