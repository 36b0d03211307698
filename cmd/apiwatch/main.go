// SPDX-License-Identifier: MIT

// Command apiwatch monitors HTTP APIs: it checks configured targets on an
// interval, records history, tracks downtime incidents and serves an admin
// API. Subcommands: report, validate, verify, healthcheck.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/apiwatch/internal/alert"
	"github.com/ManuGH/apiwatch/internal/api"
	"github.com/ManuGH/apiwatch/internal/config"
	"github.com/ManuGH/apiwatch/internal/health"
	"github.com/ManuGH/apiwatch/internal/history"
	xglog "github.com/ManuGH/apiwatch/internal/log"
	"github.com/ManuGH/apiwatch/internal/monitor"
	"github.com/ManuGH/apiwatch/internal/probe"
	"github.com/ManuGH/apiwatch/internal/state"
	"github.com/ManuGH/apiwatch/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "report":
			os.Exit(runReportCLI(os.Args[2:]))
		case "validate":
			os.Exit(runValidateCLI(os.Args[2:]))
		case "verify":
			os.Exit(runVerifyCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML or JSON)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "apiwatch",
		Version: version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := resolveConfigPath(*configPath)

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "apiwatch",
		Version: version,
	})

	if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.data_dir_failed").
			Str("dir", cfg.DataDir).
			Msg("failed to create data directory")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Int("targets", len(cfg.Targets)).
		Dur("interval", cfg.Interval.Std()).
		Str("addr", cfg.API.ListenAddr).
		Msg("starting apiwatch")

	tracer, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "apiwatch",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "telemetry.init_failed").
			Msg("failed to initialize tracing")
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	states, err := state.Open(cfg)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "state.open_failed").
			Str("backend", string(cfg.State.Backend)).
			Msg("failed to open state store")
	}
	defer func() {
		if err := states.Close(); err != nil {
			logger.Warn().Err(err).Msg("state store close failed")
		}
	}()

	histStore, err := history.Open(cfg.EffectiveSQLitePath(), history.DefaultSQLiteConfig())
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "history.open_failed").
			Str("path", cfg.EffectiveSQLitePath()).
			Msg("failed to open history store")
	}
	defer func() {
		if err := histStore.Close(); err != nil {
			logger.Warn().Err(err).Msg("history store close failed")
		}
	}()

	var jsonl *history.JSONLWriter
	if cfg.History.JSONL {
		jsonl, err = history.NewJSONLWriter(cfg.EffectiveLogsDir())
		if err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "history.jsonl_failed").
				Str("dir", cfg.EffectiveLogsDir()).
				Msg("failed to set up per-target log files")
		}
	}

	var notifiers []alert.Notifier
	if cfg.Alerts.Console {
		notifiers = append(notifiers, alert.NewConsoleNotifier())
	}
	if cfg.Alerts.WebhookEnabled && cfg.Alerts.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewWebhookNotifier(alert.WebhookConfig{
			URL:           cfg.Alerts.WebhookURL,
			Timeout:       cfg.Alerts.WebhookTimeout.Std(),
			RatePerMinute: cfg.Alerts.WebhookRatePerMinute,
		}))
	}
	dispatcher := alert.NewDispatcher(notifiers...)

	holder := config.NewHolder(cfg, loader, effectiveConfigPath)
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().
			Err(err).
			Str("event", "config.watcher_failed").
			Msg("config hot reload unavailable, continuing without it")
	}

	// A cycle is stale after three missed intervals.
	cycle := health.NewCycleChecker(3 * cfg.Interval.Std())
	healthMgr := health.NewManager(version)
	healthMgr.RegisterChecker(health.NewPingChecker("history", histStore))
	healthMgr.RegisterChecker(cycle)
	if pinger, ok := states.(health.Pinger); ok {
		healthMgr.RegisterChecker(health.NewPingChecker("state", pinger))
	}

	prober := probe.New(probe.Options{
		Timeout:   cfg.ProbeTimeout.Std(),
		UserAgent: "apiwatch/" + version,
	})
	defer prober.CloseIdleConnections()

	runner := monitor.New(monitor.Options{
		Holder:  holder,
		Prober:  prober,
		States:  states,
		History: histStore,
		JSONL:   jsonl,
		Alerts:  dispatcher,
		Cycle:   cycle,
	})

	server := api.NewServer(api.Options{
		Holder:  holder,
		States:  states,
		History: histStore,
		Health:  healthMgr,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := runner.Run(gctx); err != nil && !isCancel(err) {
			return fmt.Errorf("monitor: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := server.Serve(gctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
		return nil
	})
	if cfg.History.Retention.Std() > 0 {
		g.Go(func() error {
			pruneLoop(gctx, holder, histStore)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon exited with error")
	}

	logger.Info().Str("event", "shutdown").Msg("apiwatch stopped")
}

// resolveConfigPath picks the explicit --config path, or falls back to
// ${APIWATCH_DATA}/config.yaml when that file exists.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(config.ParseString("APIWATCH_DATA", "./data"))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

// pruneLoop drops history older than the configured retention, once an hour.
func pruneLoop(ctx context.Context, holder *config.Holder, store *history.Store) {
	logger := xglog.WithComponent("retention")
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			retention := holder.Get().History.Retention.Std()
			if retention <= 0 {
				continue
			}
			cutoff := time.Now().Add(-retention)
			n, err := store.Prune(ctx, cutoff)
			if err != nil {
				logger.Error().
					Err(err).
					Str("event", "retention.prune_failed").
					Msg("history prune failed")
				continue
			}
			if n > 0 {
				logger.Info().
					Str("event", "retention.pruned").
					Int64("rows", n).
					Time("cutoff", cutoff).
					Msg("pruned old history")
			}
		}
	}
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled)
}
