package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeTag_ParseAndString(t *testing.T) {
	const raw = "5a1fbebd-6ba5-4857-ab63-6343b88e2a33"

	tag, err := ParseTypeTag(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, tag.String())
	assert.False(t, tag.IsNil())

	_, err = ParseTypeTag("not-a-uuid")
	assert.Error(t, err)
}

func TestTypeTag_RoundTripBytes(t *testing.T) {
	tag := MustTypeTag("c9b0cd3e-e701-4e6f-9f1f-2db5e8f37be0")

	b := tag.Bytes()
	require.Len(t, b, 16)

	got, ok := TypeTagFromSlice(b)
	require.True(t, ok)
	assert.Equal(t, tag, got)

	_, ok = TypeTagFromSlice(b[:8])
	assert.False(t, ok)
}

func TestTypeTag_TextMarshaling(t *testing.T) {
	tag := MustTypeTag("31c71977-5a45-4f21-8e0f-7e3d6cfa84b2")

	data, err := json.Marshal(tag)
	require.NoError(t, err)
	assert.JSONEq(t, `"31c71977-5a45-4f21-8e0f-7e3d6cfa84b2"`, string(data))

	var back TypeTag
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, tag, back)
}

func TestMustTypeTag_PanicsOnGarbage(t *testing.T) {
	assert.Panics(t, func() { MustTypeTag("garbage") })
}

func TestAssetID_Uniqueness(t *testing.T) {
	a := NewAssetID()
	b := NewAssetID()

	assert.False(t, a.IsNil())
	assert.NotEqual(t, a, b)
}

func TestAssetID_Compare(t *testing.T) {
	low, err := ParseAssetID("00000000-0000-0000-0000-000000000001")
	require.NoError(t, err)
	high, err := ParseAssetID("ffffffff-0000-0000-0000-000000000000")
	require.NoError(t, err)

	assert.Equal(t, -1, low.Compare(high))
	assert.Equal(t, 1, high.Compare(low))
	assert.Equal(t, 0, low.Compare(low))
}

func TestAssetRef_Variants(t *testing.T) {
	id := NewAssetID()

	idRef := NewIDRef(id)
	assert.True(t, idRef.IsID())
	assert.Equal(t, id, idRef.ID())
	assert.Equal(t, id.String(), idRef.String())

	pathRef := NewPathRef("textures/wall.png")
	assert.False(t, pathRef.IsID())
	assert.Equal(t, "textures/wall.png", pathRef.Path())
	assert.Equal(t, "textures/wall.png", pathRef.String())
}

func TestAssetRef_JSONRoundTrip(t *testing.T) {
	refs := []AssetRef{
		NewIDRef(NewAssetID()),
		NewPathRef("models/ship.gltf"),
	}

	for _, ref := range refs {
		data, err := json.Marshal(ref)
		require.NoError(t, err)

		var back AssetRef
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, ref, back)
	}
}

func TestCompressionType_Valid(t *testing.T) {
	assert.True(t, CompressionNone.Valid())
	assert.True(t, CompressionLZ4.Valid())
	assert.False(t, CompressionType("zstd").Valid())
}

func TestMetaPath(t *testing.T) {
	assert.Equal(t, "textures/wall.png.meta", MetaPath("textures/wall.png"))
	assert.Equal(t, "scene.json.meta", MetaPath("scene.json"))
}
