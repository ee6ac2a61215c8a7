package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/failpoint"
	"mercator-hq/warden/pkg/healing"
	"mercator-hq/warden/pkg/monitor"
	"mercator-hq/warden/pkg/orders"
	"mercator-hq/warden/pkg/probe"
	"mercator-hq/warden/pkg/readiness"
	"mercator-hq/warden/pkg/signals"
	"mercator-hq/warden/pkg/supervisor"
	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app holds every component of one warden process.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	metrics    *metrics.Collector
	cache      signals.Source
	prober     *probe.Prober
	supervisor supervisor.Supervisor
	registry   *failpoint.Registry
	store      *readiness.FileStore
	ledger     healing.Ledger
	remediator *healing.Remediator
	worker     *healing.Worker
	monitor    *monitor.Monitor
}

// appOptions selects optional parts of the composition.
type appOptions struct {
	// healing attaches the remediation worker to the monitor. The worker
	// still has to be started.
	healing bool
	logs    io.Writer
}

// loadConfig reads cfgFile. When the file is absent and --config was left at
// its default, built-in defaults are used.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		cfg, err = config.Default()
	}
	if err == nil {
		return cfg, nil
	}

	var verr config.ValidationError
	if errors.As(err, &verr) && len(verr.Errors) > 0 {
		return nil, cli.NewConfigError(verr.Errors[0].Field, err.Error())
	}
	return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
}

// newApp wires the components described by cfg.
func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	logCfg := logging.FromConfig(cfg.Telemetry.Logging, opts.logs)
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.Install()

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry()),
		store:   readiness.NewFileStore(cfg.Snapshot.Path),
	}

	a.cache = signals.NewSource(cfg.Cache)
	tracker := signals.NewTracker(a.cache, cfg.Signals, signals.Logs{
		EventsLog:   cfg.Events.EventsLog,
		ErrorLog:    cfg.Events.ErrorLog,
		TailRecords: cfg.Events.TailRecords,
	}, nil)

	a.prober = probe.New(cfg.Endpoints, probe.APILog{
		Path:        cfg.Events.APILog,
		TailRecords: cfg.Events.TailRecords,
	}, probe.Options{
		Metrics: a.metrics,
		Logger:  logger.Component("probe"),
	})

	orderChecker, err := orders.NewChecker(cfg.Orders, orders.Options{
		ExecutionLog: cfg.Events.ExecutionLog,
		ErrorLog:     cfg.Events.ErrorLog,
		TailRecords:  cfg.Events.TailRecords,
		Logger:       logger.Component("orders"),
	})
	if err != nil {
		return nil, cli.NewConfigError("orders", err.Error())
	}

	a.supervisor, err = supervisor.New(cfg.Supervisor)
	if err != nil {
		return nil, cli.NewConfigError("supervisor", err.Error())
	}

	checks := failpoint.Catalog(failpoint.Deps{
		Config:     cfg,
		Supervisor: a.supervisor,
		Cache:      a.cache,
		Signals:    tracker,
		Prober:     a.prober,
		Orders:     orderChecker,
	})
	a.registry = failpoint.NewRegistry(checks, failpoint.Options{
		Timeout: cfg.Schedule.CheckTimeout,
		Workers: cfg.Schedule.Workers,
		Metrics: a.metrics,
		Logger:  logger.Slog(),
	})

	a.ledger, err = healing.NewLedger(cfg.Healing.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open healing ledger: %w", err)
	}
	a.remediator = healing.NewRemediator(a.ledger, healing.PolicyFromConfig(cfg.Healing), healing.Options{
		Strategies: []healing.Strategy{
			&healing.RecomputeStrategy{URL: cfg.Healing.RecomputeURL, Batch: cfg.Healing.RecomputeBatch},
			&healing.RefetchStrategy{Prober: a.prober},
			&healing.RestartStrategy{Supervisor: a.supervisor},
		},
		ActionTimeout: cfg.Healing.ActionTimeout,
		Metrics:       a.metrics,
		Logger:        logger.Slog(),
	})

	monOpts := monitor.Options{
		Config:   cfg,
		Registry: a.registry,
		Store:    a.store,
		Metrics:  a.metrics,
		Logger:   logger.Slog(),
	}
	if cfg.Schedule.ReadMaxAge != nil {
		monOpts.MaxAge = *cfg.Schedule.ReadMaxAge
	}
	if opts.healing && config.BoolValue(cfg.Healing.Enabled, config.DefaultHealingEnabled) {
		a.worker = healing.NewWorker(a.remediator, cfg.Healing.QueueSize, a.metrics)
		monOpts.Worker = a.worker
	}
	a.monitor = monitor.New(monOpts)

	return a, nil
}

// start launches the remediation worker, if any.
func (a *app) start(ctx context.Context) {
	if a.worker != nil {
		a.worker.Start(ctx)
	}
}

// close stops the worker, waits for pending annotations and releases the
// ledger.
func (a *app) close() {
	if a.worker != nil {
		a.worker.Stop()
	}
	a.monitor.Wait()
	if err := a.ledger.Close(); err != nil {
		slog.Warn("failed to close healing ledger", "error", err)
	}
}

// printResult writes v to stdout in the --output format.
func printResult(w io.Writer, v any) error {
	format, err := cli.ParseFormat(output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}
	return cli.NewFormatter(format).FormatTo(w, v)
}
