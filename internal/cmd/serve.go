package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/placetrack/placetrack/internal/cache"
	"github.com/placetrack/placetrack/internal/config"
	errwrap "github.com/placetrack/placetrack/internal/errors"
	"github.com/placetrack/placetrack/internal/metrics"
	"github.com/placetrack/placetrack/internal/observability"
	"github.com/placetrack/placetrack/internal/ratelimit"
	"github.com/placetrack/placetrack/internal/server"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server drains in-flight requests, stops the cache sweeper and rate
limiter janitors, closes the record store and flushes logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		if cfg == nil {
			return errwrap.NewConfigInvalidError("config not loaded")
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serverHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		observability.InitServerLogger(appName, cfg.Logging.Level, cfg.Logging.Profile)

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(appName, cfg.Metrics.Port); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", appName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", observability.GetMetricsPort()))

		db, err := openStore(cmd.Context())
		if err != nil {
			observability.ServerLogger.Error("Failed to open record store", zap.Error(err))
			return errwrap.WrapDatabaseError(cmd.Context(), err, "store initialization failed")
		}

		// Background workers stop when this context is cancelled during shutdown.
		workerCtx, stopWorkers := context.WithCancel(context.Background())
		defer stopWorkers()

		recordCache := cache.New(cfg.Cache.Shards,
			cache.WithSweepInterval(cfg.Cache.SweepInterval),
			cache.WithMetrics(metrics.CacheRecorder{}))
		recordCache.StartSweeper(workerCtx)

		strictLimiter := ratelimit.New(cfg.RateLimit.Strict.Window, cfg.RateLimit.Strict.MaxRequests,
			ratelimit.WithMetrics(metrics.LimiterRecorder{Profile: "strict"}))
		strictLimiter.StartJanitor(workerCtx)

		generalLimiter := ratelimit.New(cfg.RateLimit.General.Window, cfg.RateLimit.General.MaxRequests,
			ratelimit.WithMetrics(metrics.LimiterRecorder{Profile: "general"}))
		generalLimiter.StartJanitor(workerCtx)

		srv := server.New(cfg.Server, server.Dependencies{
			Store:          db,
			Cache:          recordCache,
			StrictLimiter:  strictLimiter,
			GeneralLimiter: generalLimiter,
			CountTTL:       cfg.Cache.CountTTL,
			DashboardTTL:   cfg.Cache.DashboardTTL,
			Version:        versionInfo.Version,
		})

		metrics.SetServerStartTime(time.Now().Unix())

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: server drains first, then workers and
		// the store, then the logger flushes.
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Stopping background workers and closing store...")
			stopWorkers()
			if err := db.Close(); err != nil {
				observability.ServerLogger.Warn("Store close returned error", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			if _, err := config.Load(cfgFile); err != nil {
				observability.ServerLogger.Error("Failed to reload config file", zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully")

			// TODO: propagate log level changes to the running logger
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")
}
