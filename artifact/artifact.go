// Package artifact wraps imported asset payloads in the versioned envelope
// the build stage stores and ships: artifact identity, dependency metadata,
// payload type and optional compression.
package artifact

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/fingerprint"
	"github.com/radium-io/atelier-assets/importer"
	"github.com/radium-io/atelier-assets/types"
)

// Metadata describes one serialized artifact. The artifact id is derived
// from the import fingerprint, the asset id and the dependency set, so any
// relevant input change yields a new artifact identity.
type Metadata struct {
	ID               types.ArtifactID      `json:"id"`
	AssetID          types.AssetID         `json:"asset_id"`
	BuildDeps        []types.AssetRef      `json:"build_deps,omitempty"`
	LoadDeps         []types.AssetRef      `json:"load_deps,omitempty"`
	Compression      types.CompressionType `json:"compression"`
	UncompressedSize uint64                `json:"uncompressed_size"`
	CompressedSize   uint64                `json:"compressed_size"`
}

// SerializedAsset is an artifact envelope plus its (possibly compressed)
// payload bytes.
type SerializedAsset struct {
	Metadata Metadata `json:"metadata"`
	Data     []byte   `json:"data"`
}

// Create builds the serialized artifact for one imported asset. The payload
// is compressed according to compression; CompressionNone stores it
// verbatim.
func Create(fp fingerprint.Fingerprint, asset importer.ImportedAsset, compression types.CompressionType) (*SerializedAsset, error) {
	if !compression.Valid() {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Artifact", "Create", "compression validation")
	}

	deps := append([]types.AssetRef(nil), asset.Metadata.BuildDeps...)
	deps = append(deps, asset.Metadata.LoadDeps...)

	data := asset.Payload
	if compression == types.CompressionLZ4 {
		compressed, err := compressLZ4(asset.Payload)
		if err != nil {
			return nil, errors.Wrap(err, "Artifact", "Create", "payload compression")
		}
		data = compressed
	}

	return &SerializedAsset{
		Metadata: Metadata{
			ID:               fingerprint.ArtifactHash(fp, asset.Metadata.ID, deps),
			AssetID:          asset.Metadata.ID,
			BuildDeps:        asset.Metadata.BuildDeps,
			LoadDeps:         asset.Metadata.LoadDeps,
			Compression:      compression,
			UncompressedSize: uint64(len(asset.Payload)),
			CompressedSize:   uint64(len(data)),
		},
		Data: data,
	}, nil
}

// Payload returns the artifact's uncompressed payload bytes.
func (sa *SerializedAsset) Payload() ([]byte, error) {
	switch sa.Metadata.Compression {
	case types.CompressionNone:
		return sa.Data, nil
	case types.CompressionLZ4:
		return decompressLZ4(sa.Data, sa.Metadata.UncompressedSize)
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Artifact", "Payload", "compression validation")
	}
}

func compressLZ4(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte, uncompressedSize uint64) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out := bytes.NewBuffer(make([]byte, 0, uncompressedSize))
	if _, err := io.Copy(out, r); err != nil {
		return nil, errors.WrapInvalid(err, "Artifact", "Payload", "payload decompression")
	}
	return out.Bytes(), nil
}
