/*
Package config resolves runtime settings and opens the configured store.

PRECEDENCE (highest first):
  1. Command-line flags
  2. Process environment (RECORDS_*)
  3. .env file in the working directory
  4. Defaults

SETTINGS:
  -data       RECORDS_DATA_DIR     Directory for the text files (default: data)
  -backend    RECORDS_BACKEND      "text" or "sqlite" (default: text)
  -db         RECORDS_SQLITE_PATH  SQLite path (default: <data>/records.db)
  -port       RECORDS_PORT         HTTP port for cmd/server (default: 8080)
  -log-level  RECORDS_LOG_LEVEL    debug, info, warn, error (default: info)
  -log-format RECORDS_LOG_FORMAT   text or json (default: text)
  -reset      RECORDS_RESET        Erase all stored data before loading (default: false)
*/
package config

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/warp/student-records/roster"
	"github.com/warp/student-records/store/sqlite"
	"github.com/warp/student-records/store/textfile"
)

const (
	BackendText   = "text"
	BackendSQLite = "sqlite"
)

type Config struct {
	DataDir    string
	Backend    string
	SQLitePath string
	Port       int
	LogLevel   slog.Level
	LogFormat  string
	Reset      bool
}

// Load reads .env from the working directory (if present), the
// environment and args.
func Load(args []string) (*Config, error) {
	return LoadWithEnvFile(".env", args)
}

// LoadWithEnvFile is Load with an explicit .env path. A missing file is
// not an error. The file never modifies the process environment.
func LoadWithEnvFile(envFile string, args []string) (*Config, error) {
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}
	lookup := func(key, def string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		if v, ok := dotenv[key]; ok {
			return v
		}
		return def
	}

	defPort, err := strconv.Atoi(lookup("RECORDS_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("RECORDS_PORT: %w", err)
	}

	defReset, err := strconv.ParseBool(lookup("RECORDS_RESET", "false"))
	if err != nil {
		return nil, fmt.Errorf("RECORDS_RESET: %w", err)
	}

	cfg := &Config{}
	var level string
	fset := flag.NewFlagSet("records", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	fset.StringVar(&cfg.DataDir, "data", lookup("RECORDS_DATA_DIR", "data"), "data directory")
	fset.StringVar(&cfg.Backend, "backend", lookup("RECORDS_BACKEND", BackendText), "storage backend: text or sqlite")
	fset.StringVar(&cfg.SQLitePath, "db", lookup("RECORDS_SQLITE_PATH", ""), "SQLite database path")
	fset.IntVar(&cfg.Port, "port", defPort, "HTTP server port")
	fset.StringVar(&level, "log-level", lookup("RECORDS_LOG_LEVEL", "info"), "log level")
	fset.StringVar(&cfg.LogFormat, "log-format", lookup("RECORDS_LOG_FORMAT", "text"), "log format: text or json")
	fset.BoolVar(&cfg.Reset, "reset", defReset, "erase all stored data before loading")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "records.db")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendText, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendText, BackendSQLite)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}

// NewLogger builds the process logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// resetter is implemented by every backend OpenManager can build.
type resetter interface {
	Reset(ctx context.Context) error
}

// OpenManager opens the configured backend and loads a Manager from it.
// With Reset set, the backend is emptied first. The returned closer
// releases the backend.
func (c *Config) OpenManager(ctx context.Context, logger *slog.Logger) (*roster.Manager, io.Closer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var (
		backend roster.Backend
		closer  io.Closer = nopCloser{}
	)
	switch c.Backend {
	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(c.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database dir: %w", err)
		}
		s, err := sqlite.New(c.SQLitePath, sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		backend, closer = s, s
	default:
		s, err := textfile.New(c.DataDir, textfile.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		backend = s
	}

	if c.Reset {
		if err := backend.(resetter).Reset(ctx); err != nil {
			closer.Close()
			return nil, nil, fmt.Errorf("reset %s backend: %w", c.Backend, err)
		}
		logger.Warn("stored data erased", "backend", c.Backend)
	}

	mgr, err := roster.Open(ctx, backend, roster.WithLogger(logger))
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return mgr, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
