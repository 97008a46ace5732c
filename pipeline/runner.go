// Package pipeline drives boxed importers for source files: it resolves the
// importer for a path, computes the invalidation fingerprint, skips runs
// whose fingerprint is unchanged, threads Options and State blobs through
// the metadata store, and fans independent imports out over a worker pool.
//
// The pipeline decides nothing about *when* an import runs; the host (file
// watcher, daemon, build tool) submits requests. One import per source path
// is in flight at a time; requests for distinct paths run concurrently.
package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/radium-io/atelier-assets/artifact"
	"github.com/radium-io/atelier-assets/config"
	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/events"
	"github.com/radium-io/atelier-assets/fingerprint"
	"github.com/radium-io/atelier-assets/importer"
	"github.com/radium-io/atelier-assets/metric"
	"github.com/radium-io/atelier-assets/pkg/cache"
	"github.com/radium-io/atelier-assets/pkg/retry"
	"github.com/radium-io/atelier-assets/pkg/worker"
	"github.com/radium-io/atelier-assets/registry"
	"github.com/radium-io/atelier-assets/types"
)

// OpenFunc opens the raw byte stream of a source file. The pipeline may call
// it more than once per run (content hashing, state-reset reimport), so it
// must return a fresh reader each time.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// Request asks the pipeline to (re)import one source file. ContentHash is
// the host-computed hash of the raw source bytes; when nil the pipeline
// hashes the source itself.
type Request struct {
	Path        string
	ContentHash []byte
	Open        OpenFunc
}

// Validate checks the request is complete.
func (req Request) Validate() error {
	if req.Path == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Request", "Validate", "path validation")
	}
	if req.Open == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Request", "Validate", "open function validation")
	}
	return nil
}

// Result is the outcome of one import run.
type Result struct {
	Path        string
	ImporterTag types.TypeTag
	Fingerprint fingerprint.Fingerprint

	// Skipped is true when the stored fingerprint matched and the importer
	// never ran. Value is only populated on a skip when the fingerprint
	// cache still holds the previous output.
	Skipped bool

	// StateReset is true when persisted blobs were discarded after a type
	// tag mismatch and the run restarted from defaults.
	StateReset bool

	Value     *importer.Value
	Assets    []types.AssetID
	Artifacts []*artifact.SerializedAsset
	Warnings  []importer.Warning
}

// Config configures a Runner.
type Config struct {
	Registry *registry.Registry
	Store    MetaStore        // defaults to an in-memory store
	Defaults *config.Context  // advisory importer defaults; may be nil
	Notifier *events.Notifier // may be nil
	Metrics  *metric.Registry // may be nil
	Logger   *slog.Logger     // may be nil

	Workers   int // concurrent import workers (default 4)
	QueueSize int // pending request queue (default 256)
	CacheSize int // fingerprint->value cache entries (default 128)

	// BuildArtifacts enables serialized artifact envelopes on results,
	// compressed per Compression (default CompressionNone).
	BuildArtifacts bool
	Compression    types.CompressionType

	// Retry applies to source open/read I/O only, never to the import
	// itself: reimporting identical bytes fails identically. The default
	// runs once; backoff policy is the host's call.
	Retry retry.Config
}

// Runner executes import runs. Create with New, then Start to accept
// Submit()ed requests; ImportOne runs synchronously and needs no Start.
type Runner struct {
	registry    *registry.Registry
	store       MetaStore
	defaults    *config.Context
	notifier    *events.Notifier
	metrics     *metric.Metrics
	logger      *slog.Logger
	cache       *cache.LRU[*importer.Value]
	pool        *worker.Pool[Request]
	retryCfg    retry.Config
	buildArts   bool
	compression types.CompressionType

	inflightMu sync.Mutex
	inflight   map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a Runner. The registry must be sealed before the first import
// runs, not before New.
func New(cfg Config) (*Runner, error) {
	if cfg.Registry == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Runner", "New", "registry validation")
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Notifier == nil {
		cfg.Notifier = events.NewNotifier(nil, "", cfg.Logger)
	}
	if cfg.Compression == "" {
		cfg.Compression = types.CompressionNone
	}
	if !cfg.Compression.Valid() {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Runner", "New", "compression validation")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.None()
	}

	r := &Runner{
		registry:    cfg.Registry,
		store:       cfg.Store,
		defaults:    cfg.Defaults,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger,
		cache:       cache.NewLRU[*importer.Value](cfg.CacheSize),
		retryCfg:    cfg.Retry,
		buildArts:   cfg.BuildArtifacts,
		compression: cfg.Compression,
		inflight:    make(map[string]*pathLock),
	}

	var poolOpts []worker.Option[Request]
	if cfg.Metrics != nil {
		r.metrics = cfg.Metrics.Metrics
		poolOpts = append(poolOpts, worker.WithMetrics[Request](cfg.Metrics.Registerer(), "atelier_import_pool"))
	}
	r.pool = worker.NewPool(cfg.Workers, cfg.QueueSize, func(ctx context.Context, req Request) error {
		_, err := r.ImportOne(ctx, req)
		if err != nil {
			r.logger.Error("import failed", "path", req.Path, "error", err)
		}
		return err
	}, poolOpts...)

	return r, nil
}

// Start launches the worker pool. ctx bounds the lifetime of all queued
// work.
func (r *Runner) Start(ctx context.Context) error {
	return r.pool.Start(ctx)
}

// Submit enqueues an asynchronous import request.
func (r *Runner) Submit(req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return r.pool.Submit(req)
}

// Stop drains queued work and waits for in-flight imports, up to timeout.
func (r *Runner) Stop(timeout time.Duration) error {
	return r.pool.Stop(timeout)
}

// Stats returns worker pool statistics.
func (r *Runner) Stats() worker.PoolStats {
	return r.pool.Stats()
}

// ImportOne runs one import synchronously. Runs for the same path are
// serialized; the caller may invoke it from any goroutine.
//
// On failure the previously persisted meta stays authoritative: nothing is
// committed, so the last successful output remains valid. Cancellation
// behaves the same way.
func (r *Runner) ImportOne(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !r.registry.Sealed() {
		return nil, errors.WrapFatal(errors.ErrRegistryOpen, "Runner", "ImportOne", "registry lifecycle check")
	}

	unlock := r.lockPath(req.Path)
	defer unlock()

	if r.metrics != nil {
		r.metrics.InFlight.Inc()
		defer r.metrics.InFlight.Dec()
	}

	boxed, err := r.registry.ImporterForPath(req.Path)
	if err != nil {
		return nil, errors.Wrap(err, "Runner", "ImportOne", "importer resolution")
	}
	importerLabel := boxed.TypeTag().String()

	meta, found, err := r.store.Load(ctx, req.Path)
	if err != nil {
		return nil, errors.WrapTransient(err, "Runner", "ImportOne", "meta load")
	}

	contentHash := req.ContentHash
	if contentHash == nil {
		contentHash, err = r.hashSource(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	effectiveOptions := meta.OptionsBlob
	if len(effectiveOptions) == 0 {
		effectiveOptions, err = boxed.DefaultOptionsBlob()
		if err != nil {
			return nil, errors.Wrap(err, "Runner", "ImportOne", "default options serialization")
		}
	}

	fp := fingerprint.Compute(boxed.TypeTag(), boxed.Version(), effectiveOptions, contentHash)
	if found && meta.Fingerprint == fp {
		return r.skip(ctx, req, boxed, meta, fp, importerLabel), nil
	}

	start := time.Now()
	op := &importer.Operation{}
	boxedResult, stateReset, err := r.runBoxed(ctx, req, boxed, op, meta)
	if err != nil {
		r.recordOutcome(importerLabel, outcomeFor(ctx, err))
		r.notifier.Publish(ctx, events.Event{
			Type:     events.TypeFailed,
			Path:     req.Path,
			Importer: importerLabel,
			Error:    err.Error(),
		})
		return nil, err
	}
	if stateReset {
		// Options reverted to defaults, so the fingerprint moves with them.
		defaultOptions, blobErr := boxed.DefaultOptionsBlob()
		if blobErr != nil {
			return nil, errors.Wrap(blobErr, "Runner", "ImportOne", "default options serialization")
		}
		fp = fingerprint.Compute(boxed.TypeTag(), boxed.Version(), defaultOptions, contentHash)
	}

	// A cancelled run commits nothing; the previous blobs stay
	// authoritative.
	if ctx.Err() != nil {
		r.recordOutcome(importerLabel, "cancelled")
		return nil, errors.WrapTransient(errors.ErrImportCancelled, "Runner", "ImportOne", "post-import cancellation check")
	}

	newMeta := Meta{
		Fingerprint: fp,
		OptionsBlob: boxedResult.OptionsBlob,
		StateBlob:   boxedResult.StateBlob,
		Assets:      boxedResult.Value.AssetIDs(),
		ImportedAt:  time.Now().UTC(),
	}
	if err := r.store.Save(ctx, req.Path, newMeta); err != nil {
		return nil, errors.WrapTransient(err, "Runner", "ImportOne", "meta save")
	}
	r.cache.Set(cacheKey(req.Path, fp), boxedResult.Value)

	result := &Result{
		Path:        req.Path,
		ImporterTag: boxed.TypeTag(),
		Fingerprint: fp,
		StateReset:  stateReset,
		Value:       boxedResult.Value,
		Assets:      newMeta.Assets,
		Warnings:    op.Warnings(),
	}
	if r.buildArts {
		result.Artifacts, err = r.buildArtifacts(fp, boxedResult.Value)
		if err != nil {
			return nil, err
		}
	}

	if r.metrics != nil {
		r.metrics.ImportsTotal.WithLabelValues(importerLabel, "success").Inc()
		r.metrics.ImportDuration.WithLabelValues(importerLabel).Observe(time.Since(start).Seconds())
		r.metrics.AssetsProduced.Add(float64(len(result.Assets)))
	}
	r.logger.Info("imported source",
		"path", req.Path,
		"importer", importerLabel,
		"assets", len(result.Assets),
		"state_reset", stateReset)
	r.notifier.Publish(ctx, events.Event{
		Type:        events.TypeImported,
		Path:        req.Path,
		Importer:    importerLabel,
		Fingerprint: fp.String(),
		Assets:      result.Assets,
	})

	return result, nil
}

// runBoxed executes the boxed import, downgrading a persisted-blob type
// mismatch to a single reimport from defaults.
func (r *Runner) runBoxed(ctx context.Context, req Request, boxed importer.Boxed,
	op *importer.Operation, meta Meta) (*importer.BoxedResult, bool, error) {

	result, err := r.openAndImport(ctx, req, boxed, op, meta.OptionsBlob, meta.StateBlob)
	if err == nil {
		return result, false, nil
	}
	if !isMismatch(err) {
		return nil, false, err
	}

	// Plugin version incompatibility: warn, drop the stale blobs and
	// reimport from defaults. Asset identities from the old state are lost,
	// which is exactly what the warning tells the user.
	r.logger.Warn("persisted blob type mismatch, reimporting from defaults",
		"path", req.Path, "error", err)
	if r.metrics != nil {
		r.metrics.StateMismatches.Inc()
	}
	r.notifier.Publish(ctx, events.Event{
		Type:     events.TypeStateReset,
		Path:     req.Path,
		Importer: boxed.TypeTag().String(),
		Error:    err.Error(),
	})

	result, err = r.openAndImport(ctx, req, boxed, op, nil, nil)
	if err != nil {
		return nil, true, err
	}
	return result, true, nil
}

func (r *Runner) openAndImport(ctx context.Context, req Request, boxed importer.Boxed,
	op *importer.Operation, optionsBlob, stateBlob []byte) (*importer.BoxedResult, error) {

	source, err := retry.DoWithResult(ctx, r.retryCfg, func() (io.ReadCloser, error) {
		return req.Open(ctx)
	})
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrSourceUnavailable, err),
			"Runner", "ImportOne", "source open")
	}
	defer source.Close()

	return boxed.ImportBoxed(ctx, op, source, optionsBlob, stateBlob, r.defaults)
}

func (r *Runner) skip(ctx context.Context, req Request, boxed importer.Boxed,
	meta Meta, fp fingerprint.Fingerprint, importerLabel string) *Result {

	result := &Result{
		Path:        req.Path,
		ImporterTag: boxed.TypeTag(),
		Fingerprint: fp,
		Skipped:     true,
		Assets:      meta.Assets,
	}
	if value, ok := r.cache.Get(cacheKey(req.Path, fp)); ok {
		result.Value = value
		if r.metrics != nil {
			r.metrics.CacheHits.Inc()
		}
	}
	r.recordOutcome(importerLabel, "skipped")
	r.logger.Debug("skipped unchanged source", "path", req.Path, "fingerprint", fp.String())
	r.notifier.Publish(ctx, events.Event{
		Type:        events.TypeSkipped,
		Path:        req.Path,
		Importer:    importerLabel,
		Fingerprint: fp.String(),
		Assets:      meta.Assets,
	})
	return result
}

func (r *Runner) hashSource(ctx context.Context, req Request) ([]byte, error) {
	return retry.DoWithResult(ctx, r.retryCfg, func() ([]byte, error) {
		source, err := req.Open(ctx)
		if err != nil {
			return nil, err
		}
		defer source.Close()
		return fingerprint.ContentHash(source)
	})
}

func (r *Runner) buildArtifacts(fp fingerprint.Fingerprint, value *importer.Value) ([]*artifact.SerializedAsset, error) {
	artifacts := make([]*artifact.SerializedAsset, 0, len(value.Assets))
	for _, asset := range value.Assets {
		sa, err := artifact.Create(fp, asset, r.compression)
		if err != nil {
			return nil, errors.Wrap(err, "Runner", "ImportOne", "artifact creation")
		}
		artifacts = append(artifacts, sa)
	}
	return artifacts, nil
}

func (r *Runner) recordOutcome(importerLabel, status string) {
	if r.metrics != nil {
		r.metrics.ImportsTotal.WithLabelValues(importerLabel, status).Inc()
	}
}

func (r *Runner) lockPath(path string) func() {
	r.inflightMu.Lock()
	entry, ok := r.inflight[path]
	if !ok {
		entry = &pathLock{}
		r.inflight[path] = entry
	}
	entry.refs++
	r.inflightMu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		r.inflightMu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(r.inflight, path)
		}
		r.inflightMu.Unlock()
	}
}

// cacheKey scopes cached values to their source path. Two paths with
// identical bytes and options share a fingerprint but own distinct asset
// identities, so a bare fingerprint key would serve one path's assets for
// the other.
func cacheKey(path string, fp fingerprint.Fingerprint) string {
	return path + "\x00" + fp.String()
}

func outcomeFor(ctx context.Context, err error) string {
	if ctx.Err() != nil || stderrors.Is(err, errors.ErrImportCancelled) {
		return "cancelled"
	}
	return "failed"
}

func isMismatch(err error) bool {
	return stderrors.Is(err, errors.ErrSerializationMismatch)
}
