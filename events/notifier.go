// Package events publishes asset-change notifications to NATS so editor
// tooling and build stages can react to import outcomes in real time.
// Publishing is best-effort: a nil connection disables it entirely and a
// publish failure is logged locally, never surfaced to the import run.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/radium-io/atelier-assets/natsclient"
	"github.com/radium-io/atelier-assets/types"
)

// Type categorizes an asset-change event
type Type string

const (
	// TypeImported signals a successful import run
	TypeImported Type = "imported"
	// TypeFailed signals a failed import run
	TypeFailed Type = "failed"
	// TypeSkipped signals a run skipped because the fingerprint was unchanged
	TypeSkipped Type = "skipped"
	// TypeStateReset signals persisted blobs were discarded after a type
	// tag mismatch and the source was reimported from defaults
	TypeStateReset Type = "state_reset"
)

// Event describes one import outcome for a source path.
type Event struct {
	Timestamp   string          `json:"timestamp"` // RFC3339 format
	Type        Type            `json:"type"`
	Path        string          `json:"path"`
	Importer    string          `json:"importer,omitempty"` // importer TypeTag
	Fingerprint string          `json:"fingerprint,omitempty"`
	Assets      []types.AssetID `json:"assets,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Notifier publishes events for interested listeners. It wraps a standard
// slog.Logger for local logging while also publishing to NATS for remote
// consumption when a connection is provided.
type Notifier struct {
	subjectPrefix string
	nc            *nats.Conn
	logger        *slog.Logger
	enabled       bool
}

// NewNotifier creates an asset-change notifier. A nil connection produces a
// local-only notifier; a nil logger discards local output.
func NewNotifier(nc *nats.Conn, subjectPrefix string, logger *slog.Logger) *Notifier {
	if subjectPrefix == "" {
		subjectPrefix = "atelier.assets"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{
		subjectPrefix: subjectPrefix,
		nc:            nc,
		logger:        logger,
		enabled:       nc != nil,
	}
}

// NewNotifierWithClient creates a notifier backed by a managed NATS client.
// A nil client, or a client that never connected, yields a local-only
// notifier.
func NewNotifierWithClient(c *natsclient.Client, subjectPrefix string, logger *slog.Logger) *Notifier {
	return NewNotifier(c.Conn(), subjectPrefix, logger)
}

// Publish emits one event. Errors are swallowed after local logging; event
// delivery must never affect import outcomes.
func (n *Notifier) Publish(ctx context.Context, event Event) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	n.logger.Debug("asset event",
		"type", string(event.Type),
		"path", event.Path,
		"assets", len(event.Assets))

	if !n.enabled {
		return
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to marshal asset event", "error", err)
		return
	}

	nc := n.nc
	if nc == nil {
		return
	}

	// Subject: {prefix}.{type}, e.g. atelier.assets.imported
	subject := fmt.Sprintf("%s.%s", n.subjectPrefix, event.Type)
	if err := nc.Publish(subject, data); err != nil {
		n.logger.Error("failed to publish asset event", "subject", subject, "error", err)
	}
}
