package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"unishark/triton/pkg/accesslog"
	"unishark/triton/pkg/admin"
	"unishark/triton/pkg/app"
	"unishark/triton/pkg/cli"
	"unishark/triton/pkg/config"
	"unishark/triton/pkg/journal"
	"unishark/triton/pkg/middleware"
	"unishark/triton/pkg/supervisor"
	"unishark/triton/pkg/telemetry/health"
	"unishark/triton/pkg/telemetry/logging"
	"unishark/triton/pkg/telemetry/metrics"
)

var runFlags struct {
	bindAddress string
	workers     int
	logLevel    string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the serving supervisor",
	Long: `Start the serving supervisor with the specified configuration.

The supervisor binds the configured address, resolves the Application
Object, and spawns the worker pool. It exits non-zero if the socket cannot
be bound or the application target is unknown.

Examples:
  # Start with configuration from the environment
  triton run

  # Start with a config file (TRITON_* variables still override)
  triton run --config /etc/triton/config.yaml

  # Override the bind address and pool size
  triton run --bind 127.0.0.1:9000 --workers 4`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.bindAddress, "bind", "b", "", "override bind address (host:port)")
	runCmd.Flags().IntVarP(&runFlags.workers, "workers", "w", 0, "override worker count")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if err := applyFlagOverrides(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := logging.Setup(&cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	// Resolve the Application Object. An unknown target is fatal before
	// any socket is bound.
	registry := app.NewRegistry()
	if err := registry.Register("bot:app", app.Status()); err != nil {
		return cli.NewCommandError("run", err)
	}

	handler, err := registry.Resolve(cfg.App.Target)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	var collector *metrics.Collector
	var sinks []supervisor.EventSink
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics)
		collector.Pool().SetTarget(cfg.Worker.Count)
		sinks = append(sinks, collector.Pool())
		handler = collector.Requests().Middleware(handler)
	}

	// Access log
	var recorder *accesslog.Recorder
	if cfg.AccessLog.Enabled {
		store, err := accesslog.Open(cfg.AccessLog.Path)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer store.Close()

		recorder = accesslog.NewRecorder(store, cfg.AccessLog.Buffer, logger)
		defer recorder.Close()
		handler = recorder.Middleware(handler)

		pruner := accesslog.NewPruner(store, &cfg.AccessLog)
		scheduler := accesslog.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start access log retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}

		fmt.Println("✓ Access log initialized")
	}

	// Worker event journal
	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer jnl.Close()
		sinks = append(sinks, jnl)

		fmt.Println("✓ Worker event journal initialized")
	}

	handler = middleware.Recovery(middleware.RequestID(middleware.Logging(handler)))

	sup := supervisor.New(supervisor.Options{
		Server:  cfg.Server,
		Worker:  cfg.Worker,
		Handler: handler,
		Logger:  logger,
		Sinks:   sinks,
	})

	if err := sup.Start(); err != nil {
		var bindErr *supervisor.BindError
		if errors.As(err, &bindErr) {
			slog.Error("failed to bind listening socket",
				"address", bindErr.Addr,
				"error", bindErr.Err,
			)
		}
		return cli.NewCommandError("run", err)
	}

	fmt.Printf("✓ Listening on %s (%d workers, target %s)\n",
		sup.Addr(), cfg.Worker.Count, cfg.App.Target)

	// Admin endpoint
	if cfg.Telemetry.Admin.Enabled {
		checker := health.New(0)
		checker.Register("pool", func(_ context.Context) error {
			return sup.Healthy()
		})

		adminOpts := admin.Options{
			ListenAddress: cfg.Telemetry.Admin.ListenAddress,
			Checker:       checker,
			Pool:          sup,
			Logger:        logger,
		}
		if collector != nil {
			adminOpts.Metrics = collector.Handler()
		}
		if jnl != nil {
			adminOpts.Events = jnl
		}

		adminSrv := admin.New(adminOpts)
		if err := adminSrv.Start(); err != nil {
			_ = sup.Shutdown(context.Background())
			return cli.NewCommandError("run", err)
		}
		defer func() {
			_ = adminSrv.Shutdown(context.Background())
		}()

		fmt.Printf("✓ Admin endpoint on %s\n", adminSrv.Addr())
	}

	// Config file watcher: a changed worker count resizes the pool in
	// place, everything else requires a restart.
	if cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile, logger)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else {
			go func() {
				err := watcher.Watch(ctx, func(newCfg *config.Config) {
					if err := sup.Resize(newCfg.Worker.Count); err != nil {
						logger.Error("failed to resize pool", "error", err)
						return
					}
					if collector != nil {
						collector.Pool().SetTarget(newCfg.Worker.Count)
					}
				})
				if err != nil {
					logger.Error("config watcher exited", "error", err)
				}
			}()
			defer func() {
				_ = watcher.Stop()
			}()
		}
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()
	resizeChan := cli.NotifyResize()

	for {
		select {
		case sig := <-resizeChan:
			target := sup.Stats().Target
			if cli.IsGrow(sig) {
				target++
			} else {
				target--
			}
			if err := sup.Resize(target); err != nil {
				logger.Warn("pool resize rejected", "signal", sig.String(), "error", err)
				continue
			}
			if collector != nil {
				collector.Pool().SetTarget(target)
			}
			logger.Info("pool resized by signal", "signal", sig.String(), "target", target)

		case sig := <-sigChan:
			fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
			cancel()

			if err := sup.Shutdown(context.Background()); err != nil {
				slog.Error("shutdown failed", "error", err)
				return cli.NewCommandError("run", err)
			}

			fmt.Println("✓ Server stopped")
			return nil
		}
	}
}

// loadConfiguration resolves the effective configuration: from the config
// file with environment overrides when --config is given, from the
// environment alone otherwise.
func loadConfiguration() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadConfigWithEnvOverrides(cfgFile)
	}
	return config.FromEnv()
}

func applyFlagOverrides(cfg *config.Config) error {
	if runFlags.bindAddress != "" {
		host, port, err := config.SplitBindAddress(runFlags.bindAddress)
		if err != nil {
			return fmt.Errorf("invalid --bind address %q: %w", runFlags.bindAddress, err)
		}
		cfg.Server.BindAddress = host
		cfg.Server.Port = port
	}
	if runFlags.workers > 0 {
		cfg.Worker.Count = runFlags.workers
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	return config.Validate(cfg)
}
