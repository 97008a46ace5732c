// Package importer defines the versioned, type-erased import boundary of the
// asset pipeline: the capability interface concrete format importers
// implement, the value/metadata model an import run produces, and the Boxed
// facade the host uses to drive importers without knowing their concrete
// Options and State shapes.
package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/radium-io/atelier-assets/config"
	"github.com/radium-io/atelier-assets/types"
)

// Options configures one import run of a source file. Concrete option types
// are plain serializable structs owned by the importer author; the TypeTag
// identifies the shape so persisted option blobs stay self-describing.
type Options interface {
	TypeTag() types.TypeTag
}

// State is persisted per source file and threaded across import runs. It is
// owned by the host, opaque to it, and mutated only by the importer during a
// run. Importers use it to keep produced AssetIDs stable over time.
//
// Concrete State implementations must be pointer types so the importer can
// mutate them in place.
type State interface {
	TypeTag() types.TypeTag
}

// Importer is the per-format import contract.
//
// Import must read the entirety of the logically relevant portion of source,
// and must be deterministic for identical (source bytes, options, state):
// fingerprint-based reimport skipping relies on it. The defaults context is
// advisory; the importer decides whether and how to consult it. A run is a
// single atomic step with no cross-call state inside the Importer itself.
type Importer[O Options, S State] interface {
	// TypeTag identifies this importer implementation, stable across
	// recompilation and versions.
	TypeTag() types.TypeTag

	// Version is a monotonically increasing format version. Bumping it
	// invalidates every prior output of this importer, forcing a global
	// reimport independent of content or option changes.
	Version() uint32

	// DefaultOptions returns the options used when none are persisted yet.
	// Must be pure and side-effect free.
	DefaultOptions() O

	// DefaultState returns the state used on first import of an unseen
	// source file. Must be pure and side-effect free.
	DefaultState() S

	// Import reads source and produces the assets it contains. state may be
	// mutated in place; the host persists it after the run. Malformed input
	// is reported as *ImportError and treated as a per-asset failure, never
	// fatal to the process.
	Import(ctx context.Context, op *Operation, source io.Reader, opts O, state S, defaults *config.Context) (*Value, error)
}

// Warning is a non-fatal note attached to an import run, surfaced to the
// host alongside the produced value.
type Warning struct {
	Message string
}

// Operation carries per-run bookkeeping an importer may use: minting fresh
// asset identities and recording non-fatal warnings. One Operation is created
// by the host per import run and discarded afterwards.
type Operation struct {
	minted   []types.AssetID
	warnings []Warning
}

// NewAssetID mints a fresh asset identity and records it against the run.
// Importers should store minted ids in their State so the same logical asset
// keeps its identity on the next run.
func (op *Operation) NewAssetID() types.AssetID {
	id := types.NewAssetID()
	op.minted = append(op.minted, id)
	return id
}

// Minted returns the identities minted during this run.
func (op *Operation) Minted() []types.AssetID {
	return op.minted
}

// Warnf records a non-fatal warning for the run.
func (op *Operation) Warnf(format string, args ...any) {
	op.warnings = append(op.warnings, Warning{Message: fmt.Sprintf(format, args...)})
}

// Warnings returns the warnings recorded during this run.
func (op *Operation) Warnings() []Warning {
	return op.warnings
}
