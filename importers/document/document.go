// Package document provides the structured-document importer: a JSON source
// whose sections each become one asset. Its persisted state keeps an ordered
// identity slice so "the Nth section" retains the same AssetID across
// reimports even when section contents change.
package document

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/radium-io/atelier-assets/config"
	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/importer"
	"github.com/radium-io/atelier-assets/registry"
	"github.com/radium-io/atelier-assets/types"
)

// Stable identities for the importer and its persisted shapes.
var (
	ImporterTag = types.MustTypeTag("31c71977-579f-4a4c-a3cf-2c9b6df49ff8")
	OptionsTag  = types.MustTypeTag("8a9e3f0e-4f86-44a0-9a4f-5de0ed3d86cc")
	StateTag    = types.MustTypeTag("e1c2d9fb-8a44-4d74-9326-81d9ac7b7d49")
)

// Options configure the document importer.
type Options struct {
	// SkipEmpty drops sections whose body is empty instead of producing
	// empty assets for them.
	SkipEmpty bool `json:"skip_empty"`
}

// TypeTag implements importer.Options.
func (Options) TypeTag() types.TypeTag { return OptionsTag }

// State holds one AssetID per section index, in document order. Surviving
// indices keep their identity when the document shrinks and regrows.
type State struct {
	IDs []types.AssetID `json:"ids,omitempty"`
}

// TypeTag implements importer.State.
func (*State) TypeTag() types.TypeTag { return StateTag }

// Document is the source schema.
type Document struct {
	Name     string    `json:"name"`
	Sections []Section `json:"sections"`
}

// Section is one addressable unit of a document.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`

	// Dependencies on other assets, by id or by source path.
	BuildDeps []string `json:"build_deps,omitempty"`
	LoadDeps  []string `json:"load_deps,omitempty"`
}

// Importer imports JSON document sources.
type Importer struct{}

// TypeTag implements importer.Importer.
func (Importer) TypeTag() types.TypeTag { return ImporterTag }

// Version implements importer.Importer.
func (Importer) Version() uint32 { return 1 }

// DefaultOptions implements importer.Importer.
func (Importer) DefaultOptions() Options { return Options{} }

// DefaultState implements importer.Importer.
func (Importer) DefaultState() *State { return &State{} }

// Import decodes the document and produces one asset per section. The
// "document.max_sections" context default, when positive, bounds the
// accepted section count.
func (Importer) Import(ctx context.Context, op *importer.Operation, source io.Reader,
	opts Options, state *State, defaults *config.Context) (*importer.Value, error) {

	var doc Document
	if err := decodeDocument(source, &doc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "DocumentImporter", "Import", "cancellation check")
	}

	if max := defaults.ResolveInt("document.max_sections", 0); max > 0 && len(doc.Sections) > max {
		return nil, importer.NewImportError(
			fmt.Sprintf("document has %d sections, limit is %d", len(doc.Sections), max), nil)
	}

	value := &importer.Value{}
	for i, section := range doc.Sections {
		if opts.SkipEmpty && section.Body == "" {
			op.Warnf("section %d (%q) skipped: empty body", i, section.Title)
			continue
		}

		// Identity assignment is positional: index i always maps to
		// state.IDs[i], minted on first sight.
		for len(state.IDs) <= i {
			state.IDs = append(state.IDs, types.NilAssetID)
		}
		if state.IDs[i].IsNil() {
			state.IDs[i] = op.NewAssetID()
		}

		meta := importer.Metadata{ID: state.IDs[i]}
		for _, dep := range section.BuildDeps {
			meta.AddBuildDep(parseRef(dep))
		}
		for _, dep := range section.LoadDeps {
			meta.AddLoadDep(parseRef(dep))
		}

		payload, err := json.Marshal(section)
		if err != nil {
			return nil, errors.WrapInvalid(err, "DocumentImporter", "Import", "section serialization")
		}

		name := section.Title
		if name == "" {
			name = fmt.Sprintf("%s#%d", doc.Name, i)
		}
		value.Assets = append(value.Assets, importer.ImportedAsset{
			Metadata:   meta,
			Name:       name,
			Payload:    payload,
			SearchTags: []string{"document", doc.Name},
		})
	}

	return value, nil
}

func decodeDocument(source io.Reader, doc *Document) error {
	decoder := json.NewDecoder(source)
	if err := decoder.Decode(doc); err != nil {
		var syntaxErr *json.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			return importer.NewImportErrorAt("invalid document JSON: "+syntaxErr.Error(), syntaxErr.Offset, err)
		}
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) {
			return importer.NewImportErrorAt("invalid document field: "+typeErr.Error(), typeErr.Offset, err)
		}
		return importer.NewImportError("invalid document JSON: "+err.Error(), err)
	}
	return nil
}

// parseRef interprets a dependency string as an AssetID when it parses as a
// UUID and as a source path otherwise.
func parseRef(dep string) types.AssetRef {
	if id, err := types.ParseAssetID(dep); err == nil {
		return types.NewIDRef(id)
	}
	return types.NewPathRef(dep)
}

// Register wires the document importer and its persisted shapes into a
// registry.
func Register(r *registry.Registry) error {
	if err := r.RegisterType(registry.JSONDescriptor[Options](OptionsTag, "document importer options")); err != nil {
		return errors.Wrap(err, "DocumentImporter", "Register", "options type registration")
	}
	if err := r.RegisterType(registry.JSONDescriptor[State](StateTag, "document importer state")); err != nil {
		return errors.Wrap(err, "DocumentImporter", "Register", "state type registration")
	}
	return r.RegisterImporter(&registry.ImporterRegistration{
		Tag:         ImporterTag,
		Extensions:  []string{"json"},
		Description: "structured document importer",
		Factory: func() importer.Boxed {
			return importer.Box[Options, *State](Importer{})
		},
	})
}
