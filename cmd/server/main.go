/*
main.go - HTTP server entry point

STARTUP SEQUENCE:
  1. Resolve configuration (flags, environment, .env)
  2. Open the configured backend and load the roster
  3. Create API handler and router
  4. Start server with graceful shutdown

EXAMPLES:
  # Text files under ./data
  ./server

  # SQLite database
  ./server -backend=sqlite -db=./data/records.db

  # Different port, JSON logs
  ./server -port=3000 -log-format=json

SEE ALSO:
  - config/config.go: Settings and precedence
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/student-records/api"
	"github.com/warp/student-records/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	mgr, closer, err := cfg.OpenManager(context.Background(), logger)
	if err != nil {
		log.Fatalf("Failed to open roster: %v", err)
	}
	defer closer.Close()

	handler := api.NewHandler(mgr, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr, "backend", cfg.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
