// Package fingerprint derives the conservative cache key that decides
// whether a source file needs reimporting. The fingerprint folds the
// importer's TypeTag, its format version, the effective serialized options
// and the source content hash; identical fingerprints mean the host may skip
// the reimport, while differing fingerprints force one even when the output
// would not change.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"sort"

	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/types"
)

// Fingerprint is a 256-bit derived cache key.
type Fingerprint [sha256.Size]byte

// Zero is the fingerprint of nothing; no computed fingerprint equals it.
var Zero Fingerprint

// String returns the fingerprint as lowercase hex.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f == Zero
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(b []byte) error {
	decoded, err := hex.DecodeString(string(b))
	if err != nil {
		return errors.WrapInvalid(err, "Fingerprint", "UnmarshalText", "hex decode")
	}
	if len(decoded) != sha256.Size {
		return errors.WrapInvalid(errors.ErrBlobCorrupted, "Fingerprint", "UnmarshalText", "length check")
	}
	copy(f[:], decoded)
	return nil
}

// Compute derives the fingerprint for one (importer, options, source)
// combination. Every field is length-prefixed before hashing so adjacent
// fields can never alias each other.
func Compute(importerTag types.TypeTag, version uint32, optionsBlob, contentHash []byte) Fingerprint {
	h := sha256.New()
	writeField(h, importerTag.Bytes())

	var v [4]byte
	binary.BigEndian.PutUint32(v[:], version)
	writeField(h, v[:])

	writeField(h, optionsBlob)
	writeField(h, contentHash)

	var f Fingerprint
	h.Sum(f[:0])
	return f
}

// ContentHash computes the sha256 content hash of a raw source stream. The
// pipeline accepts precomputed hashes from the watcher; this helper exists
// for hosts that do not track them.
func ContentHash(r io.Reader) ([]byte, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return nil, errors.WrapTransient(err, "Fingerprint", "ContentHash", "source read")
	}
	return h.Sum(nil), nil
}

// ArtifactHash derives the identity of one serialized artifact from the
// import fingerprint, the asset's identity and its dependency set. The
// dependency fold is order-independent: references are sorted and
// deduplicated before hashing.
func ArtifactHash(fp Fingerprint, id types.AssetID, deps []types.AssetRef) types.ArtifactID {
	keys := make([]string, 0, len(deps))
	for _, dep := range deps {
		keys = append(keys, dep.String())
	}
	sort.Strings(keys)

	h := sha256.New()
	writeField(h, fp[:])
	writeField(h, id.Bytes())
	previous := ""
	for i, key := range keys {
		if i > 0 && key == previous {
			continue
		}
		writeField(h, []byte(key))
		previous = key
	}

	sum := h.Sum(nil)
	return types.ArtifactID(binary.BigEndian.Uint64(sum[:8]))
}

func writeField(h io.Writer, field []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(field)))
	h.Write(n[:])
	h.Write(field)
}
