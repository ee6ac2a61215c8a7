package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/healing"
	"mercator-hq/warden/pkg/monitor"
	"mercator-hq/warden/pkg/server"
	"mercator-hq/warden/pkg/telemetry/health"

	"github.com/spf13/cobra"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Warden daemon",
	Long: `Start the Warden daemon with the specified configuration.

The daemon runs a readiness cycle on the configured schedule, triggers an
immediate cycle when the signal cache or a freeze marker changes, remediates
detected issues in the background and serves:
  /health     liveness
  /ready      200 unless BLOCKED
  /readiness  the full readiness document
  /version    build information
  /metrics    Prometheus metrics

Examples:
  # Start with default config
  warden run

  # Override listen address
  warden run --listen 0.0.0.0:8090

  # Validate config without starting
  warden run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	a, err := newApp(cfg, appOptions{healing: true})
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	a.start(ctx)
	defer a.close()

	// Retention
	if cfg.Healing.Retention.Days > 0 {
		pruner, err := healing.NewPruner(a.ledger, cfg.Healing.Retention.Days, a.remediator.Gate().Policy(), a.metrics)
		if err != nil {
			return cli.NewConfigError("healing.retention.days", err.Error())
		}
		retention := healing.NewScheduler(pruner, cfg.Healing.Retention.Schedule)
		if err := retention.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer retention.Stop()
			if next := retention.NextRun(); next != nil {
				slog.Debug("ledger retention scheduler started", "next_run", next)
			}
		}
	}

	// Periodic cycles, with one immediately at startup
	scheduler := monitor.NewScheduler(a.monitor, monitor.ScheduleSpec(cfg.Schedule))
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewConfigError("schedule", err.Error())
	}
	defer scheduler.Stop()
	go a.monitor.RunCycle(ctx)

	if config.BoolValue(cfg.Schedule.WatchFiles, config.DefaultWatchFiles) {
		if err := startWatcher(ctx, a); err != nil {
			slog.Warn("file watching disabled", "error", err)
		}
	}

	srv := server.New(&cfg.Server, newMux(a))
	if err := srv.Listen(); err != nil {
		return cli.NewCommandError("run", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(); err != nil {
			errChan <- err
		}
	}()

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Warden v%s\n", Version)
	fmt.Fprintf(w, "✓ Server listening on %s\n", srv.Addr())
	fmt.Fprintf(w, "✓ Readiness endpoint: http://%s/readiness\n", srv.Addr())
	if next := scheduler.NextRun(); next != nil {
		fmt.Fprintf(w, "✓ Next scheduled cycle: %s\n", next.Format("15:04:05"))
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case <-ctx.Done():
		fmt.Fprintln(w, "\nShutting down gracefully...")

		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Fprintln(w, "✓ Server stopped")
		return nil
	}
}

// newMux mounts the health and metrics endpoints.
func newMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	health.NewHandlers(a.monitor, Version, GitCommit, BuildDate).Register(mux)
	if config.BoolValue(a.cfg.Telemetry.Metrics.Enabled, config.DefaultMetricsEnabled) {
		mux.Handle(a.cfg.Telemetry.Metrics.Path, a.metrics.Handler())
	}
	return mux
}

// startWatcher runs a debounced cycle whenever the cache file or a freeze
// marker changes. Only a file cache can be watched.
func startWatcher(ctx context.Context, a *app) error {
	var files []string
	if a.cfg.Cache.Backend == "file" {
		files = append(files, a.cfg.Cache.Path)
	}
	files = append(files, a.cfg.Checks.FreezeMarkers...)
	if len(files) == 0 {
		return nil
	}

	watcher, err := monitor.NewWatcher(files, a.cfg.Schedule.DebounceInterval, a.logger.Component("monitor.watcher"))
	if err != nil {
		return err
	}
	go func() {
		if err := watcher.Watch(ctx, a.monitor.Trigger(ctx, a.cfg.Schedule.WatchMinGap)); err != nil {
			slog.Error("file watcher stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = watcher.Stop()
	}()
	return nil
}
