package importer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/types"
)

var (
	testOptionsTag = types.MustTypeTag("c0ffee00-0000-4000-8000-000000000001")
	testStateTag   = types.MustTypeTag("c0ffee00-0000-4000-8000-000000000002")
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestEncodeDecodeBlob_RoundTrip(t *testing.T) {
	blob, err := EncodeBlob(testOptionsTag, payload{Name: "wall", Count: 3})
	require.NoError(t, err)

	raw, err := DecodeBlob(blob, testOptionsTag)
	require.NoError(t, err)

	var got payload
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "wall", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestEncodeBlob_RejectsNilTag(t *testing.T) {
	_, err := EncodeBlob(types.NilTypeTag, payload{})
	assert.Error(t, err)
}

// A blob carrying a different tag than expected is a serialization mismatch,
// detected before the payload is decoded.
func TestDecodeBlob_TagMismatch(t *testing.T) {
	blob, err := EncodeBlob(testOptionsTag, payload{Name: "wall"})
	require.NoError(t, err)

	_, err = DecodeBlob(blob, testStateTag)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSerializationMismatch)
}

func TestDecodeBlob_Corrupted(t *testing.T) {
	_, err := DecodeBlob([]byte("not json at all"), testOptionsTag)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBlobCorrupted)

	// Valid JSON but no type tag in the envelope.
	_, err = DecodeBlob([]byte(`{"data":{}}`), testOptionsTag)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBlobCorrupted)
}

func TestBlobTag(t *testing.T) {
	blob, err := EncodeBlob(testOptionsTag, payload{})
	require.NoError(t, err)

	tag, err := BlobTag(blob)
	require.NoError(t, err)
	assert.Equal(t, testOptionsTag, tag)

	_, err = BlobTag([]byte("garbage"))
	assert.ErrorIs(t, err, errors.ErrBlobCorrupted)
}
