// Package registry maps stable TypeTags to descriptors capable of
// constructing and (de)serializing boxed values, and binds file extensions
// to importer factories. Registration happens once at startup during plugin
// loading; the registry is then sealed and becomes read-only, which is the
// concurrency boundary that makes lock-free concurrent reads safe during
// import runs.
package registry

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/importer"
	"github.com/radium-io/atelier-assets/types"
)

// TypeDescriptor binds a TypeTag to construction and serialization hooks for
// a boxed value of that type. The hooks must round-trip:
// Deserialize(Serialize(x)) reproduces an equal value for any x produced by
// the type's own constructors. The host relies on this for persistence.
type TypeDescriptor struct {
	Tag         types.TypeTag
	Description string

	// New constructs a fresh zero value of the type, as a pointer.
	New func() any

	// Serialize encodes a value into a self-describing blob.
	Serialize func(v any) ([]byte, error)

	// Deserialize decodes a self-describing blob produced by Serialize.
	Deserialize func(blob []byte) (any, error)
}

// JSONDescriptor builds a TypeDescriptor for T using the self-describing
// JSON blob envelope. This covers every Options and State shape whose fields
// serialize with encoding/json, which in practice is all of them.
func JSONDescriptor[T any](tag types.TypeTag, description string) *TypeDescriptor {
	return &TypeDescriptor{
		Tag:         tag,
		Description: description,
		New: func() any {
			return new(T)
		},
		Serialize: func(v any) ([]byte, error) {
			return importer.EncodeBlob(tag, v)
		},
		Deserialize: func(blob []byte) (any, error) {
			payload, err := importer.DecodeBlob(blob, tag)
			if err != nil {
				return nil, err
			}
			value := new(T)
			if err := json.Unmarshal(payload, value); err != nil {
				return nil, errors.WrapInvalid(err, "TypeDescriptor", "Deserialize", "payload decode")
			}
			return value, nil
		},
	}
}

// BoxedFactory produces a fresh Boxed importer instance.
type BoxedFactory func() importer.Boxed

// ImporterRegistration is the registry entry for one importer
// implementation: its identity, the source extensions it claims, and the
// factory producing boxed instances. Created once during plugin
// registration and immutable afterwards.
type ImporterRegistration struct {
	Tag         types.TypeTag
	Extensions  []string // lowercase, leading dot ("png", ".png" both accepted)
	Description string
	Factory     BoxedFactory
}

// Registry is the process-wide type and importer table. It has a two-phase
// lifecycle: open for registration at startup, then sealed before any import
// task runs. All mutation fails after Seal.
type Registry struct {
	mu          sync.RWMutex
	sealed      atomic.Bool
	typeTable   map[types.TypeTag]*TypeDescriptor
	importers   map[types.TypeTag]*ImporterRegistration
	byExtension map[string]types.TypeTag
}

// New creates an empty, unsealed registry.
func New() *Registry {
	return &Registry{
		typeTable:   make(map[types.TypeTag]*TypeDescriptor),
		importers:   make(map[types.TypeTag]*ImporterRegistration),
		byExtension: make(map[string]types.TypeTag),
	}
}

// RegisterType registers serialization hooks for a boxed Options or State
// type. Fails with errors.ErrDuplicateTypeTag if the tag is already bound
// and errors.ErrRegistrySealed after sealing.
func (r *Registry) RegisterType(desc *TypeDescriptor) error {
	if desc == nil || desc.New == nil || desc.Serialize == nil || desc.Deserialize == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterType", "descriptor validation")
	}
	if desc.Tag.IsNil() {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterType", "tag validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Checked under the lock: Seal sets the flag while holding it, so a
	// registration can never commit its write after sealing.
	if r.sealed.Load() {
		return errors.WrapFatal(errors.ErrRegistrySealed, "Registry", "RegisterType", "lifecycle check")
	}

	if existing, exists := r.typeTable[desc.Tag]; exists {
		return errors.WrapFatal(
			fmt.Errorf("%w: %s already bound to %q", errors.ErrDuplicateTypeTag, desc.Tag, existing.Description),
			"Registry", "RegisterType", "duplicate tag check")
	}

	r.typeTable[desc.Tag] = desc
	return nil
}

// RegisterImporter binds an importer factory to its TypeTag and claims its
// file extensions. Two importers registering the same extension is an
// explicit registration-time conflict (errors.ErrImporterConflict), never
// resolved by silent precedence; the first registration stays active.
func (r *Registry) RegisterImporter(reg *ImporterRegistration) error {
	if reg == nil || reg.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterImporter", "registration validation")
	}
	if reg.Tag.IsNil() {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterImporter", "tag validation")
	}
	if len(reg.Extensions) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterImporter", "extension validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return errors.WrapFatal(errors.ErrRegistrySealed, "Registry", "RegisterImporter", "lifecycle check")
	}

	if _, exists := r.importers[reg.Tag]; exists {
		return errors.WrapFatal(
			fmt.Errorf("%w: importer %s", errors.ErrDuplicateTypeTag, reg.Tag),
			"Registry", "RegisterImporter", "duplicate tag check")
	}

	normalized := make([]string, 0, len(reg.Extensions))
	for _, ext := range reg.Extensions {
		ext = normalizeExtension(ext)
		if holder, taken := r.byExtension[ext]; taken {
			return errors.WrapFatal(
				fmt.Errorf("%w: %q claimed by importer %s", errors.ErrImporterConflict, ext, holder),
				"Registry", "RegisterImporter", "extension conflict check")
		}
		normalized = append(normalized, ext)
	}

	for _, ext := range normalized {
		r.byExtension[ext] = reg.Tag
	}
	r.importers[reg.Tag] = reg
	return nil
}

// Seal closes the registration phase. After Seal the registry is read-only
// and safe for concurrent reads without locking. Sealing twice fails with
// errors.ErrRegistrySealed.
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return errors.WrapFatal(errors.ErrRegistrySealed, "Registry", "Seal", "lifecycle check")
	}
	r.sealed.Store(true)
	return nil
}

// Sealed reports whether the registration phase has closed.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// ResolveType returns the descriptor registered for a TypeTag, failing with
// errors.ErrUnknownType if absent.
func (r *Registry) ResolveType(tag types.TypeTag) (*TypeDescriptor, error) {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	desc, exists := r.typeTable[tag]
	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrUnknownType, tag),
			"Registry", "ResolveType", "tag lookup")
	}
	return desc, nil
}

// Importer constructs a fresh Boxed instance of the importer registered
// under tag.
func (r *Registry) Importer(tag types.TypeTag) (importer.Boxed, error) {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	reg, exists := r.importers[tag]
	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: importer %s", errors.ErrUnknownType, tag),
			"Registry", "Importer", "tag lookup")
	}
	return reg.Factory(), nil
}

// ImporterForPath resolves a source path to a fresh Boxed instance via its
// file extension, failing with errors.ErrUnknownExtension when no importer
// claims it.
func (r *Registry) ImporterForPath(path string) (importer.Boxed, error) {
	ext := normalizeExtension(filepath.Ext(path))
	if ext == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: path %q has no extension", errors.ErrUnknownExtension, path),
			"Registry", "ImporterForPath", "extension parse")
	}

	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	tag, exists := r.byExtension[ext]
	if !exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownExtension, ext),
			"Registry", "ImporterForPath", "extension lookup")
	}
	return r.importers[tag].Factory(), nil
}

// Extensions returns all claimed extensions in sorted order.
func (r *Registry) Extensions() []string {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ListImporters returns registration metadata for all importers, without
// factories, keyed by tag.
func (r *Registry) ListImporters() map[types.TypeTag]ImporterRegistration {
	if !r.sealed.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}

	result := make(map[types.TypeTag]ImporterRegistration, len(r.importers))
	for tag, reg := range r.importers {
		result[tag] = ImporterRegistration{
			Tag:         reg.Tag,
			Extensions:  append([]string(nil), reg.Extensions...),
			Description: reg.Description,
			// Factory intentionally omitted
		}
	}
	return result
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
