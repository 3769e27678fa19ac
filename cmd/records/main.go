// Command records is the interactive menu for the student record keeper.
//
// It accepts the same flags and RECORDS_* variables as cmd/server (see
// package config); -port is ignored.
package main

import (
	"context"
	"log"
	"os"

	"github.com/warp/student-records/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx := context.Background()
	mgr, closer, err := cfg.OpenManager(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to open roster: %v", err)
	}
	defer closer.Close()

	if err := newShell(mgr, os.Stdin, os.Stdout).run(ctx); err != nil {
		logger.Error("save on exit failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}
