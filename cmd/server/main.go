/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the HR rules engine server: leave lifecycle,
  balances and payroll over HTTP. Handles configuration, dependency
  injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file, HRE_* environment, flags)
  2. Build the logger
  3. Initialize SQLite store
  4. Create the leave service and payroll generator
  5. Configure HTTP router
  6. Start the payroll scheduler (when enabled)
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: ./config.yaml if present)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides db.path
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the payroll scheduler
  4. Close database connection

EXAMPLES:
  HRE_AUTH_JWT_SECRET=change-me-please-0123 ./server -db="./data/hr.db"
  ./server -config=./config.yaml -port=3000

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/hr-engine/api"
	"github.com/warp/hr-engine/config"
	"github.com/warp/hr-engine/generic"
	"github.com/warp/hr-engine/logging"
	"github.com/warp/hr-engine/payroll"
	"github.com/warp/hr-engine/store/sqlite"
	"github.com/warp/hr-engine/timeoff"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Services
	clock := generic.Clock(time.Now)
	leave := timeoff.NewService(store, store, store, clock, logger.Named("leave"))
	generator := payroll.NewGenerator(store, clock, logger.Named("payroll"), cfg.Payroll.Workers)
	generator.DefaultTaxRate = cfg.Payroll.TaxRateDecimal()

	scheduler := payroll.NewScheduler(generator, logger)
	scheduler.Enabled = cfg.Payroll.Schedule.Enabled
	scheduler.Interval = cfg.Payroll.Schedule.Interval
	scheduler.Start()
	defer scheduler.Stop()

	// Router
	handler := api.NewHandler(leave, generator, store, logger.Named("api"))
	if cfg.Server.Scenarios {
		logger.Warn("demo scenarios enabled; loading one resets the database")
		handler.Scenarios = store
	}
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		Auth:           api.NewAuthenticator(cfg.Auth.JWTSecret),
		Logger:         logger.Named("http"),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port), zap.String("db", cfg.DB.Path))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
