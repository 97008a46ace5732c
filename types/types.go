// Package types contains shared domain identifiers used across the atelier-assets pipeline
package types

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// TypeTag is a stable 128-bit identifier for a concrete Options, State or
// Importer shape. The tag is chosen by the type's author and must survive
// recompilation and version bumps; it is the key under which (de)serialization
// hooks are registered.
type TypeTag uuid.UUID

// NilTypeTag is the zero TypeTag. It is never a valid registration key.
var NilTypeTag TypeTag

// ParseTypeTag parses a canonical UUID string into a TypeTag.
func ParseTypeTag(s string) (TypeTag, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilTypeTag, fmt.Errorf("types.ParseTypeTag: parsing %q failed: %w", s, err)
	}
	return TypeTag(u), nil
}

// MustTypeTag parses a UUID literal and panics on failure.
// Intended for package-level tag constants in importer plugins.
func MustTypeTag(s string) TypeTag {
	tag, err := ParseTypeTag(s)
	if err != nil {
		panic(err)
	}
	return tag
}

// TypeTagFromSlice reconstructs a TypeTag from a 16-byte slice.
// Returns false if the slice is not exactly 16 bytes.
func TypeTagFromSlice(b []byte) (TypeTag, bool) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return NilTypeTag, false
	}
	return TypeTag(u), true
}

// String returns the canonical UUID form of the tag.
func (t TypeTag) String() string {
	return uuid.UUID(t).String()
}

// IsNil reports whether the tag is the zero value.
func (t TypeTag) IsNil() bool {
	return t == NilTypeTag
}

// Bytes returns the tag as a 16-byte slice.
func (t TypeTag) Bytes() []byte {
	b := uuid.UUID(t)
	return b[:]
}

// MarshalText implements encoding.TextMarshaler so tags embed cleanly in
// JSON and YAML documents.
func (t TypeTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TypeTag) UnmarshalText(b []byte) error {
	tag, err := ParseTypeTag(string(b))
	if err != nil {
		return err
	}
	*t = tag
	return nil
}

// AssetID is the globally unique identity of one produced asset. It is
// assigned on first import and kept stable across reimports by threading
// importer state forward; it is never reused for a different asset.
type AssetID uuid.UUID

// NilAssetID is the zero AssetID.
var NilAssetID AssetID

// NewAssetID mints a fresh random asset identity.
func NewAssetID() AssetID {
	return AssetID(uuid.New())
}

// ParseAssetID parses a canonical UUID string into an AssetID.
func ParseAssetID(s string) (AssetID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilAssetID, fmt.Errorf("types.ParseAssetID: parsing %q failed: %w", s, err)
	}
	return AssetID(u), nil
}

// AssetIDFromSlice reconstructs an AssetID from a 16-byte slice.
// Returns false if the slice is not exactly 16 bytes.
func AssetIDFromSlice(b []byte) (AssetID, bool) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return NilAssetID, false
	}
	return AssetID(u), true
}

// String returns the canonical UUID form of the id.
func (id AssetID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the id is the zero value.
func (id AssetID) IsNil() bool {
	return id == NilAssetID
}

// Bytes returns the id as a 16-byte slice.
func (id AssetID) Bytes() []byte {
	b := uuid.UUID(id)
	return b[:]
}

// Compare orders two ids lexicographically by their byte representation.
// Used for canonical dependency ordering in artifact hashing.
func (id AssetID) Compare(other AssetID) int {
	a, b := uuid.UUID(id), uuid.UUID(other)
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (id AssetID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *AssetID) UnmarshalText(b []byte) error {
	parsed, err := ParseAssetID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// AssetRef references an asset either by its AssetID or by the source path
// it will be imported from. Path references let importers declare
// dependencies on assets whose ids are not known until that source is
// itself imported.
type AssetRef struct {
	id   AssetID
	path string
}

// NewIDRef creates a reference to a known asset identity.
func NewIDRef(id AssetID) AssetRef {
	return AssetRef{id: id}
}

// NewPathRef creates a reference to the asset produced from a source path.
func NewPathRef(path string) AssetRef {
	return AssetRef{path: path}
}

// IsID reports whether the reference carries a resolved AssetID.
func (r AssetRef) IsID() bool {
	return !r.id.IsNil()
}

// ID returns the referenced AssetID, or the nil id for path references.
func (r AssetRef) ID() AssetID {
	return r.id
}

// Path returns the referenced source path, or "" for id references.
func (r AssetRef) Path() string {
	return r.path
}

// String renders the reference for logs and error messages.
func (r AssetRef) String() string {
	if r.IsID() {
		return r.id.String()
	}
	return r.path
}

type assetRefJSON struct {
	ID   *AssetID `json:"id,omitempty"`
	Path string   `json:"path,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r AssetRef) MarshalJSON() ([]byte, error) {
	out := assetRefJSON{Path: r.path}
	if r.IsID() {
		out.ID = &r.id
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *AssetRef) UnmarshalJSON(b []byte) error {
	var in assetRefJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if in.ID != nil {
		*r = AssetRef{id: *in.ID}
		return nil
	}
	*r = AssetRef{path: in.Path}
	return nil
}

// ArtifactID identifies one serialized artifact build. It is a hash of the
// import fingerprint, the asset id and the asset's dependency set, so a
// changed input always yields a new artifact identity.
type ArtifactID uint64

// CompressionType selects how an artifact payload is compressed on disk.
type CompressionType string

// Compression constants
const (
	CompressionNone CompressionType = "none"
	CompressionLZ4  CompressionType = "lz4"
)

// Valid reports whether the compression type is a known variant.
func (c CompressionType) Valid() bool {
	return c == CompressionNone || c == CompressionLZ4
}

// MetaPath derives the sidecar metadata path for a source file:
// "textures/wall.png" becomes "textures/wall.png.meta".
func MetaPath(path string) string {
	return filepath.Join(filepath.Dir(path), filepath.Base(path)+".meta")
}
