package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-io/atelier-assets/types"
)

// A nil connection disables publishing entirely; Publish must still be safe
// to call so hosts without NATS never branch on it.
func TestNotifier_NilConnectionIsLocalOnly(t *testing.T) {
	n := NewNotifier(nil, "", nil)

	assert.NotPanics(t, func() {
		n.Publish(context.Background(), Event{
			Type: TypeImported,
			Path: "a.txt",
		})
	})
}

func TestNotifier_DefaultSubjectPrefix(t *testing.T) {
	n := NewNotifier(nil, "", nil)
	assert.Equal(t, "atelier.assets", n.subjectPrefix)

	custom := NewNotifier(nil, "studio.imports", nil)
	assert.Equal(t, "studio.imports", custom.subjectPrefix)
}

func TestNewNotifierWithClient_NilClient(t *testing.T) {
	n := NewNotifierWithClient(nil, "", nil)
	assert.False(t, n.enabled)

	assert.NotPanics(t, func() {
		n.Publish(context.Background(), Event{Type: TypeFailed, Path: "b.txt", Error: "boom"})
	})
}

func TestEvent_JSONShape(t *testing.T) {
	id := types.NewAssetID()
	event := Event{
		Timestamp:   "2026-08-29T12:00:00Z",
		Type:        TypeImported,
		Path:        "textures/wall.png",
		Importer:    "5a1fbebd-6ba5-4857-ab63-6343b88e2a33",
		Fingerprint: "abcd",
		Assets:      []types.AssetID{id},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "imported", decoded["type"])
	assert.Equal(t, "textures/wall.png", decoded["path"])
	// Empty error omitted from successful events.
	assert.NotContains(t, decoded, "error")
}

func TestNotifier_CancelledContextSkipsPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewNotifier(nil, "", nil)
	assert.NotPanics(t, func() {
		n.Publish(ctx, Event{Type: TypeSkipped, Path: "c.txt"})
	})
}
