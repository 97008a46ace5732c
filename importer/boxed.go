package importer

import (
	"context"
	"encoding/json"
	"io"

	"github.com/radium-io/atelier-assets/config"
	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/types"
)

// Boxed is the type-erased facade over a concrete Importer. It lets the host
// hold a homogeneous collection of importers, keyed by file extension or
// TypeTag, and drive them through serialized Options and State blobs without
// generic parameters leaking into host code.
type Boxed interface {
	// TypeTag identifies the underlying importer implementation.
	TypeTag() types.TypeTag

	// Version reports the underlying importer's format version.
	Version() uint32

	// OptionsTag is the TypeTag of the importer's Options shape.
	OptionsTag() types.TypeTag

	// StateTag is the TypeTag of the importer's State shape.
	StateTag() types.TypeTag

	// DefaultOptionsBlob serializes the importer's default options. The host
	// uses it to resolve the effective options when none are persisted yet,
	// so fingerprints stay stable between "no blob" and "defaults persisted".
	DefaultOptionsBlob() ([]byte, error)

	// ImportBoxed deserializes the blobs, runs the concrete import, and
	// reserializes the possibly mutated state. Empty blobs select the
	// importer's defaults. A blob whose embedded TypeTag does not match the
	// importer's current Options/State tag fails with
	// errors.ErrSerializationMismatch before any payload decode.
	ImportBoxed(ctx context.Context, op *Operation, source io.Reader,
		optionsBlob, stateBlob []byte, defaults *config.Context) (*BoxedResult, error)
}

// BoxedResult is the outcome of one boxed import run: the produced value and
// the updated blobs the host persists for the next run.
type BoxedResult struct {
	Value       *Value
	OptionsBlob []byte
	StateBlob   []byte
}

type boxed[O Options, S State] struct {
	imp Importer[O, S]
}

// Box wraps a concrete Importer in the type-erased Boxed facade.
func Box[O Options, S State](imp Importer[O, S]) Boxed {
	return &boxed[O, S]{imp: imp}
}

func (b *boxed[O, S]) TypeTag() types.TypeTag {
	return b.imp.TypeTag()
}

func (b *boxed[O, S]) Version() uint32 {
	return b.imp.Version()
}

func (b *boxed[O, S]) OptionsTag() types.TypeTag {
	return b.imp.DefaultOptions().TypeTag()
}

func (b *boxed[O, S]) StateTag() types.TypeTag {
	return b.imp.DefaultState().TypeTag()
}

func (b *boxed[O, S]) DefaultOptionsBlob() ([]byte, error) {
	opts := b.imp.DefaultOptions()
	return EncodeBlob(opts.TypeTag(), opts)
}

func (b *boxed[O, S]) ImportBoxed(ctx context.Context, op *Operation, source io.Reader,
	optionsBlob, stateBlob []byte, defaults *config.Context) (*BoxedResult, error) {

	opts := b.imp.DefaultOptions()
	if len(optionsBlob) > 0 {
		payload, err := DecodeBlob(optionsBlob, opts.TypeTag())
		if err != nil {
			return nil, errors.Wrap(err, "BoxedImporter", "ImportBoxed", "options blob decode")
		}
		if err := json.Unmarshal(payload, &opts); err != nil {
			return nil, errors.WrapInvalid(err, "BoxedImporter", "ImportBoxed", "options payload decode")
		}
	}

	state := b.imp.DefaultState()
	if len(stateBlob) > 0 {
		payload, err := DecodeBlob(stateBlob, state.TypeTag())
		if err != nil {
			return nil, errors.Wrap(err, "BoxedImporter", "ImportBoxed", "state blob decode")
		}
		// State implementations are pointer types: decode in place.
		if err := json.Unmarshal(payload, state); err != nil {
			return nil, errors.WrapInvalid(err, "BoxedImporter", "ImportBoxed", "state payload decode")
		}
	}

	value, err := b.imp.Import(ctx, op, source, opts, state, defaults)
	if err != nil {
		return nil, err
	}
	value.normalize()
	if err := value.Validate(); err != nil {
		return nil, errors.Wrap(err, "BoxedImporter", "ImportBoxed", "value validation")
	}

	newStateBlob, err := EncodeBlob(state.TypeTag(), state)
	if err != nil {
		return nil, errors.Wrap(err, "BoxedImporter", "ImportBoxed", "state reserialization")
	}
	newOptionsBlob, err := EncodeBlob(opts.TypeTag(), opts)
	if err != nil {
		return nil, errors.Wrap(err, "BoxedImporter", "ImportBoxed", "options reserialization")
	}

	return &BoxedResult{
		Value:       value,
		OptionsBlob: newOptionsBlob,
		StateBlob:   newStateBlob,
	}, nil
}
