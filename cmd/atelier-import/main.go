// Package main implements the atelier-import command line tool. It resolves
// each given source file to a registered importer by extension, runs the
// import pipeline over a worker pool and persists import metadata to .meta
// sidecar files, optionally publishing asset-change events to NATS and
// serving Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/radium-io/atelier-assets/config"
	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/events"
	"github.com/radium-io/atelier-assets/importerregistry"
	"github.com/radium-io/atelier-assets/metric"
	"github.com/radium-io/atelier-assets/natsclient"
	"github.com/radium-io/atelier-assets/pipeline"
	"github.com/radium-io/atelier-assets/pkg/retry"
	"github.com/radium-io/atelier-assets/registry"
	"github.com/radium-io/atelier-assets/types"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "atelier-import"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("import run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printHelp()
		return nil
	}

	paths := flagArgs()
	if len(paths) == 0 {
		printHelp()
		return fmt.Errorf("no source files given")
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defaults, err := loadDefaults(cliCfg.DefaultsPath)
	if err != nil {
		return err
	}

	reg := registry.New()
	if err := importerregistry.Register(reg); err != nil {
		return fmt.Errorf("importer registration: %w", err)
	}
	if err := reg.Seal(); err != nil {
		return fmt.Errorf("registry seal: %w", err)
	}
	logger.Info("registry sealed", "extensions", reg.Extensions())

	notifier, closeNATS, err := setupNotifier(cliCfg, logger)
	if err != nil {
		return err
	}
	defer closeNATS()

	metrics := metric.NewRegistry()
	if cliCfg.MetricsPort > 0 {
		serveMetrics(cliCfg.MetricsPort, metrics, logger)
	}

	runner, err := pipeline.New(pipeline.Config{
		Registry:       reg,
		Store:          pipeline.NewFileStore(cliCfg.StoreRoot),
		Defaults:       defaults,
		Notifier:       notifier,
		Metrics:        metrics,
		Logger:         logger,
		Workers:        cliCfg.Workers,
		QueueSize:      len(paths) + 1,
		BuildArtifacts: cliCfg.BuildArtifacts,
		Compression:    types.CompressionType(cliCfg.Compression),
		Retry:          sourceRetryConfig(cliCfg.SourceRetries),
	})
	if err != nil {
		return fmt.Errorf("pipeline setup: %w", err)
	}

	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("pipeline start: %w", err)
	}
	for _, path := range paths {
		if err := runner.Submit(importRequest(path)); err != nil {
			logger.Error("submit failed", "path", path, "error", err)
		}
	}
	if err := runner.Stop(cliCfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("pipeline shutdown: %w", err)
	}

	stats := runner.Stats()
	logger.Info("import run complete",
		"submitted", stats.Submitted,
		"processed", stats.Processed,
		"failed", stats.Failed)
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d imports failed", stats.Failed, stats.Processed)
	}
	return nil
}

func importRequest(path string) pipeline.Request {
	return pipeline.Request{
		Path: path,
		Open: func(context.Context) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// sourceRetryConfig builds the pipeline's source I/O retry policy. Zero
// retries keeps the pipeline default of running once; anything more uses the
// standard backoff profile with the requested attempt budget. Retries cover
// source open and hashing only, never the import itself.
func sourceRetryConfig(retries int) retry.Config {
	if retries <= 0 {
		return retry.None()
	}
	rc := errors.DefaultRetryConfig()
	rc.MaxRetries = retries
	return rc.ToRetryConfig()
}

func loadDefaults(path string) (*config.Context, error) {
	if path == "" {
		return nil, nil
	}
	layer, err := config.LoadLayer(path)
	if err != nil {
		return nil, fmt.Errorf("importer defaults: %w", err)
	}
	return config.NewContext(layer), nil
}

func setupNotifier(cliCfg *CLIConfig, logger *slog.Logger) (*events.Notifier, func(), error) {
	if cliCfg.NATSURL == "" {
		return events.NewNotifier(nil, "", logger), func() {}, nil
	}

	client := natsclient.New(cliCfg.NATSURL,
		natsclient.WithName(appName),
		natsclient.WithLogger(logger))
	if err := client.Connect(); err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info("connected to nats", "url", cliCfg.NATSURL)
	return events.NewNotifierWithClient(client, "", logger), client.Close, nil
}

func serveMetrics(port int, metrics *metric.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Gatherer(), promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "port", port)
}
