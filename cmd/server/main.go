/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the stock-alert engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store (samples, rule configs, notification archive)
  3. Build engine, reload persisted rules into the registry
  4. Start sampling scheduler and HTTP server

COMMAND-LINE FLAGS:
  -port             HTTP server port (default: 8080)
  -db               SQLite database path (default: stock.db, ":memory:" works)
  -sample-interval  How often to record quantity samples and sweep
                    (default: 15m)
  -json-log         Emit logs as JSON

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, close the database

EXAMPLES:
  ./server -db="./data/stock.db"
  ./server -db=":memory:" -sample-interval=1m

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Sampling loop
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/stock-engine/api"
	"github.com/warp/stock-engine/stock"
	"github.com/warp/stock-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "stock.db", "SQLite database path")
	sampleInterval := flag.Duration("sample-interval", 15*time.Minute, "sampling/sweep interval")
	jsonLog := flag.Bool("json-log", false, "emit logs as JSON")
	flag.Parse()

	logger := logrus.New()
	if *jsonLog {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Initialize engine; the store archives every emitted notification
	engine := stock.NewEngine(logger)
	engine.AddNotifier(store)

	// Initialize handler and reload persisted rules
	handler := api.NewHandler(engine, store, store, logger)
	if err := handler.LoadRules(context.Background()); err != nil {
		logger.WithError(err).Warn("failed to load persisted rules")
	}

	// Start the sampling scheduler
	scheduler := api.NewSampleScheduler(engine, store, logger)
	scheduler.Interval = *sampleInterval
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	router := api.NewRouter(handler)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("server forced to shutdown")
	}

	logger.Info("server stopped")
}
