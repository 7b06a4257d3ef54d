package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/governance"
	"mercator-hq/warden/pkg/server"
	"mercator-hq/warden/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Warden governance service",
	Long: `Start the Warden governance service with the specified configuration.

The service owns the rate limiter, circuit breakers, failover resolver,
slot governor, and provider selector, and serves read-only status and
metrics over HTTP.

Examples:
  # Start with default config
  warden run

  # Start with custom config
  warden run --config /etc/warden/config.yaml

  # Override listen address
  warden run --listen 0.0.0.0:9090

  # Reload provider quotas, chains, and roles on config file changes
  warden run --watch

  # Validate config without starting
  warden run --dry-run`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "hot-reload quotas, chains, and roles on config changes")
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Warden v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	svc, err := governance.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create governance service: %w", err)
	}
	defer svc.Close()

	if err := svc.Start(); err != nil {
		return fmt.Errorf("failed to start governance service: %w", err)
	}
	fmt.Printf("✓ Governance service started (%d providers, %d roles)\n",
		len(cfg.Providers), len(cfg.Roles))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 2)

	// Optional hot reload of quotas, chains, and roles. Watch blocks until
	// the context is cancelled or Stop is called, so it runs alongside the
	// server rather than ahead of it.
	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, time.Second, logger)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		defer watcher.Stop()

		go func() {
			if err := watcher.Watch(ctx, func(next *config.Config) {
				svc.Reload(next)
			}); err != nil {
				errChan <- fmt.Errorf("config watcher error: %w", err)
			}
		}()
		fmt.Println("✓ Config watcher started")
	}

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.NewServer(&cfg.Server, svc)
		go func() {
			if err := srv.Start(ctx); err != nil {
				errChan <- fmt.Errorf("server error: %w", err)
			}
		}()

		fmt.Printf("✓ Status server listening on %s\n", cfg.Server.ListenAddress)
		fmt.Printf("✓ Status endpoint: http://%s/status\n", cfg.Server.ListenAddress)
		if cfg.Telemetry.Metrics.Enabled {
			fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
		}
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		if srv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown failed", "error", err)
				return err
			}
		}

		fmt.Println("✓ Stopped")
		return nil
	}
}
