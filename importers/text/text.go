// Package text provides the plain-text importer: one source file becomes
// one text asset. It is deliberately small and doubles as the reference
// implementation for writing importer plugins.
package text

import (
	"context"
	"io"
	"strings"

	"github.com/radium-io/atelier-assets/config"
	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/importer"
	"github.com/radium-io/atelier-assets/registry"
	"github.com/radium-io/atelier-assets/types"
)

// Stable identities for the importer and its persisted shapes.
var (
	ImporterTag = types.MustTypeTag("5a1fbebd-6ba5-4857-ab63-6343b88e2a33")
	OptionsTag  = types.MustTypeTag("c9b0cd3e-e701-4e6f-9f1f-2db5e8f37be0")
	StateTag    = types.MustTypeTag("20b09a6f-04a8-4ac1-b1e4-7dd6abd3a6f2")
)

// Options configure the text importer.
type Options struct {
	// Uppercase folds the payload to upper case.
	Uppercase bool `json:"uppercase"`
}

// TypeTag implements importer.Options.
func (Options) TypeTag() types.TypeTag { return OptionsTag }

// State keeps the asset identity stable across reimports of the same
// source file.
type State struct {
	ID types.AssetID `json:"id,omitempty"`
}

// TypeTag implements importer.State.
func (*State) TypeTag() types.TypeTag { return StateTag }

// Importer imports plain text sources.
type Importer struct{}

// TypeTag implements importer.Importer.
func (Importer) TypeTag() types.TypeTag { return ImporterTag }

// Version implements importer.Importer.
func (Importer) Version() uint32 { return 1 }

// DefaultOptions implements importer.Importer.
func (Importer) DefaultOptions() Options { return Options{} }

// DefaultState implements importer.Importer.
func (Importer) DefaultState() *State { return &State{} }

// Import reads the whole source as UTF-8 text and produces one asset whose
// payload is the (optionally transformed) text. The "text.normalize_eol"
// context default, when true, rewrites CRLF line endings to LF.
func (Importer) Import(ctx context.Context, op *importer.Operation, source io.Reader,
	opts Options, state *State, defaults *config.Context) (*importer.Value, error) {

	data, err := io.ReadAll(source)
	if err != nil {
		return nil, errors.WrapTransient(err, "TextImporter", "Import", "source read")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "TextImporter", "Import", "cancellation check")
	}

	text := string(data)
	if defaults.ResolveBool("text.normalize_eol", false) {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	if opts.Uppercase {
		text = strings.ToUpper(text)
	}

	if state.ID.IsNil() {
		state.ID = op.NewAssetID()
	}

	return &importer.Value{
		Assets: []importer.ImportedAsset{{
			Metadata: importer.Metadata{ID: state.ID},
			Payload:  []byte(text),
		}},
	}, nil
}

// Register wires the text importer and its persisted shapes into a registry.
func Register(r *registry.Registry) error {
	if err := r.RegisterType(registry.JSONDescriptor[Options](OptionsTag, "text importer options")); err != nil {
		return errors.Wrap(err, "TextImporter", "Register", "options type registration")
	}
	if err := r.RegisterType(registry.JSONDescriptor[State](StateTag, "text importer state")); err != nil {
		return errors.Wrap(err, "TextImporter", "Register", "state type registration")
	}
	return r.RegisterImporter(&registry.ImporterRegistration{
		Tag:         ImporterTag,
		Extensions:  []string{"txt", "text"},
		Description: "plain text importer",
		Factory: func() importer.Boxed {
			return importer.Box[Options, *State](Importer{})
		},
	})
}
