package document

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-io/atelier-assets/config"
	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/importer"
	"github.com/radium-io/atelier-assets/registry"
	"github.com/radium-io/atelier-assets/types"
)

const sample = `{
	"name": "manual",
	"sections": [
		{"title": "intro", "body": "welcome"},
		{"title": "usage", "body": "run it", "build_deps": ["diagrams/flow.json"]},
		{"title": "faq", "body": "questions"}
	]
}`

func runImport(t *testing.T, source string, opts Options, state *State, defaults *config.Context) (*importer.Value, *importer.Operation) {
	t.Helper()
	op := &importer.Operation{}
	value, err := Importer{}.Import(context.Background(), op, strings.NewReader(source), opts, state, defaults)
	require.NoError(t, err)
	return value, op
}

func TestImport_OneAssetPerSection(t *testing.T) {
	state := &State{}
	value, _ := runImport(t, sample, Options{}, state, nil)

	require.Len(t, value.Assets, 3)
	assert.Equal(t, "intro", value.Assets[0].Name)
	assert.Equal(t, "usage", value.Assets[1].Name)
	assert.Contains(t, value.Assets[0].SearchTags, "document")
	assert.Contains(t, value.Assets[0].SearchTags, "manual")

	var section Section
	require.NoError(t, json.Unmarshal(value.Assets[1].Payload, &section))
	assert.Equal(t, "run it", section.Body)

	require.Len(t, state.IDs, 3)
	for i, asset := range value.Assets {
		assert.Equal(t, state.IDs[i], asset.Metadata.ID)
	}
}

// The Nth section keeps its identity across reimports, even when its
// content changes.
func TestImport_PositionalIdentityStable(t *testing.T) {
	state := &State{}
	first, _ := runImport(t, sample, Options{}, state, nil)

	edited := strings.Replace(sample, "welcome", "hello there", 1)
	second, _ := runImport(t, edited, Options{}, state, nil)

	require.Len(t, second.Assets, 3)
	for i := range first.Assets {
		assert.Equal(t, first.Assets[i].Metadata.ID, second.Assets[i].Metadata.ID)
	}
}

// A shrunk document keeps identities for surviving indices; regrowing
// restores the original identity for the reappearing index.
func TestImport_ShrinkAndRegrow(t *testing.T) {
	state := &State{}
	full, _ := runImport(t, sample, Options{}, state, nil)

	shrunk := `{"name":"manual","sections":[{"title":"intro","body":"welcome"}]}`
	small, _ := runImport(t, shrunk, Options{}, state, nil)
	require.Len(t, small.Assets, 1)
	assert.Equal(t, full.Assets[0].Metadata.ID, small.Assets[0].Metadata.ID)

	regrown, op := runImport(t, sample, Options{}, state, nil)
	require.Len(t, regrown.Assets, 3)
	assert.Empty(t, op.Minted())
	for i := range full.Assets {
		assert.Equal(t, full.Assets[i].Metadata.ID, regrown.Assets[i].Metadata.ID)
	}
}

func TestImport_DependencyParsing(t *testing.T) {
	id := types.NewAssetID()
	source := `{"name":"d","sections":[{"title":"s","body":"b",
		"build_deps":["textures/wall.png","` + id.String() + `"],
		"load_deps":["shaders/basic.glsl"]}]}`

	value, _ := runImport(t, source, Options{}, &State{}, nil)
	require.Len(t, value.Assets, 1)

	meta := value.Assets[0].Metadata
	require.Len(t, meta.BuildDeps, 2)
	assert.False(t, meta.BuildDeps[0].IsID())
	assert.Equal(t, "textures/wall.png", meta.BuildDeps[0].Path())
	assert.True(t, meta.BuildDeps[1].IsID())
	assert.Equal(t, id, meta.BuildDeps[1].ID())
	require.Len(t, meta.LoadDeps, 1)
}

func TestImport_SkipEmptyOption(t *testing.T) {
	source := `{"name":"d","sections":[
		{"title":"a","body":"content"},
		{"title":"b","body":""},
		{"title":"c","body":"more"}
	]}`

	value, op := runImport(t, source, Options{SkipEmpty: true}, &State{}, nil)
	assert.Len(t, value.Assets, 2)
	require.Len(t, op.Warnings(), 1)
	assert.Contains(t, op.Warnings()[0].Message, "empty body")
}

func TestImport_MaxSectionsDefault(t *testing.T) {
	defaults := config.NewContext(config.NewLayer("global", map[string]any{
		"document.max_sections": 2,
	}))

	_, err := Importer{}.Import(context.Background(), &importer.Operation{},
		strings.NewReader(sample), Options{}, &State{}, defaults)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMalformedSource)
}

func TestImport_MalformedJSONWithOffset(t *testing.T) {
	_, err := Importer{}.Import(context.Background(), &importer.Operation{},
		strings.NewReader(`{"name": }`), Options{}, &State{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMalformedSource)

	var importErr *importer.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Positive(t, importErr.Offset)
}

func TestImport_WrongFieldType(t *testing.T) {
	_, err := Importer{}.Import(context.Background(), &importer.Operation{},
		strings.NewReader(`{"name":"d","sections":"not an array"}`), Options{}, &State{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMalformedSource)
}

func TestImport_MissingTitleGetsIndexedName(t *testing.T) {
	value, _ := runImport(t, `{"name":"d","sections":[{"body":"b"}]}`, Options{}, &State{}, nil)
	require.Len(t, value.Assets, 1)
	assert.Equal(t, "d#0", value.Assets[0].Name)
}

func TestRegister(t *testing.T) {
	r := registry.New()
	require.NoError(t, Register(r))
	require.NoError(t, r.Seal())

	boxed, err := r.ImporterForPath("scene.json")
	require.NoError(t, err)
	assert.Equal(t, ImporterTag, boxed.TypeTag())
}
