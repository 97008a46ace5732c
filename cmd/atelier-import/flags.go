package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	DefaultsPath    string
	StoreRoot       string
	LogLevel        string
	LogFormat       string
	NATSURL         string
	MetricsPort     int
	Workers         int
	SourceRetries   int
	Compression     string
	BuildArtifacts  bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.DefaultsPath, "defaults",
		getEnv("ATELIER_DEFAULTS", ""),
		"Path to YAML importer defaults file, empty for none (env: ATELIER_DEFAULTS)")

	flag.StringVar(&cfg.StoreRoot, "store-root",
		getEnv("ATELIER_STORE_ROOT", "."),
		"Root directory for .meta sidecar files (env: ATELIER_STORE_ROOT)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("ATELIER_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: ATELIER_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("ATELIER_LOG_FORMAT", "text"),
		"Log format: json, text (env: ATELIER_LOG_FORMAT)")

	flag.StringVar(&cfg.NATSURL, "nats-url",
		getEnv("ATELIER_NATS_URL", ""),
		"NATS server URL for asset-change events, empty to disable (env: ATELIER_NATS_URL)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("ATELIER_METRICS_PORT", 0),
		"Prometheus metrics port, 0 to disable (env: ATELIER_METRICS_PORT)")

	flag.IntVar(&cfg.Workers, "workers",
		getEnvInt("ATELIER_WORKERS", 4),
		"Concurrent import workers (env: ATELIER_WORKERS)")

	flag.IntVar(&cfg.SourceRetries, "source-retries",
		getEnvInt("ATELIER_SOURCE_RETRIES", 0),
		"Extra attempts for transient source read failures, 0 to run once (env: ATELIER_SOURCE_RETRIES)")

	flag.StringVar(&cfg.Compression, "compression",
		getEnv("ATELIER_COMPRESSION", "none"),
		"Artifact payload compression: none, lz4 (env: ATELIER_COMPRESSION)")

	flag.BoolVar(&cfg.BuildArtifacts, "artifacts",
		getEnvBool("ATELIER_ARTIFACTS", false),
		"Build serialized artifact envelopes (env: ATELIER_ARTIFACTS)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("ATELIER_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: ATELIER_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help and exit")

	flag.Parse()
	return cfg
}

// flagArgs returns the positional source file arguments.
func flagArgs() []string {
	return flag.Args()
}

func validateFlags(cfg *CLIConfig) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	switch cfg.Compression {
	case "none", "lz4":
	default:
		return fmt.Errorf("invalid compression %q", cfg.Compression)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if cfg.SourceRetries < 0 {
		return fmt.Errorf("source retries cannot be negative, got %d", cfg.SourceRetries)
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port %d", cfg.MetricsPort)
	}
	return nil
}

func printHelp() {
	fmt.Printf(`%s imports source asset files through the registered importers.

Usage:
  %s [flags] <source file> [<source file>...]

Each source file is matched to an importer by extension, fingerprinted and
imported unless its persisted fingerprint is unchanged. Import metadata is
written to <source>.meta sidecar files under -store-root.

Flags:
`, appName, appName)
	flag.PrintDefaults()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
