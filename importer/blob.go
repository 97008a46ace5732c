package importer

import (
	"encoding/json"
	"fmt"

	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/types"
)

// Persisted Options and State blobs are self-describing: a JSON envelope
// embedding the value's TypeTag ahead of the type's own serialized payload.
// A reader can therefore detect a plugin type mismatch before attempting to
// decode the payload.
type blobEnvelope struct {
	Type types.TypeTag   `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeBlob serializes v into a self-describing blob under the given tag.
func EncodeBlob(tag types.TypeTag, v any) ([]byte, error) {
	if tag.IsNil() {
		return nil, errors.WrapInvalid(
			fmt.Errorf("nil type tag"),
			"Blob", "EncodeBlob", "tag validation")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Blob", "EncodeBlob", "payload serialization")
	}
	return json.Marshal(blobEnvelope{Type: tag, Data: data})
}

// DecodeBlob validates a blob's embedded TypeTag against want and returns
// the raw payload for the caller to decode. A tag mismatch yields
// errors.ErrSerializationMismatch; an unreadable envelope yields
// errors.ErrBlobCorrupted.
func DecodeBlob(blob []byte, want types.TypeTag) (json.RawMessage, error) {
	var env blobEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrBlobCorrupted, err),
			"Blob", "DecodeBlob", "envelope parse")
	}
	if env.Type.IsNil() {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: missing type tag", errors.ErrBlobCorrupted),
			"Blob", "DecodeBlob", "envelope validation")
	}
	if env.Type != want {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: blob carries %s, expected %s",
				errors.ErrSerializationMismatch, env.Type, want),
			"Blob", "DecodeBlob", "type tag check")
	}
	return env.Data, nil
}

// BlobTag extracts the embedded TypeTag of a blob without decoding its
// payload.
func BlobTag(blob []byte) (types.TypeTag, error) {
	var env blobEnvelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return types.NilTypeTag, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrBlobCorrupted, err),
			"Blob", "BlobTag", "envelope parse")
	}
	return env.Type, nil
}
