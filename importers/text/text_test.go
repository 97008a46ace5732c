package text

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-io/atelier-assets/config"
	"github.com/radium-io/atelier-assets/importer"
	"github.com/radium-io/atelier-assets/registry"
)

func runImport(t *testing.T, source string, opts Options, state *State, defaults *config.Context) *importer.Value {
	t.Helper()
	op := &importer.Operation{}
	value, err := Importer{}.Import(context.Background(), op, strings.NewReader(source), opts, state, defaults)
	require.NoError(t, err)
	return value
}

func TestImport_SingleAsset(t *testing.T) {
	state := &State{}
	value := runImport(t, "hello world", Options{}, state, nil)

	require.Len(t, value.Assets, 1)
	assert.Equal(t, []byte("hello world"), value.Assets[0].Payload)
	assert.False(t, state.ID.IsNil())
	assert.Equal(t, state.ID, value.Assets[0].Metadata.ID)
}

func TestImport_StateKeepsIdentity(t *testing.T) {
	state := &State{}
	first := runImport(t, "v1", Options{}, state, nil)
	second := runImport(t, "v2 completely different", Options{}, state, nil)

	assert.Equal(t, first.Assets[0].Metadata.ID, second.Assets[0].Metadata.ID)
}

func TestImport_UppercaseOption(t *testing.T) {
	value := runImport(t, "Hello", Options{Uppercase: true}, &State{}, nil)
	assert.Equal(t, []byte("HELLO"), value.Assets[0].Payload)
}

func TestImport_NormalizeEOLDefault(t *testing.T) {
	defaults := config.NewContext(config.NewLayer("global", map[string]any{
		"text.normalize_eol": true,
	}))

	value := runImport(t, "a\r\nb\r\nc", Options{}, &State{}, defaults)
	assert.Equal(t, []byte("a\nb\nc"), value.Assets[0].Payload)

	// Without the default, line endings pass through untouched.
	plain := runImport(t, "a\r\nb", Options{}, &State{}, nil)
	assert.Equal(t, []byte("a\r\nb"), plain.Assets[0].Payload)
}

func TestImport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Importer{}.Import(ctx, &importer.Operation{}, strings.NewReader("x"), Options{}, &State{}, nil)
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	r := registry.New()
	require.NoError(t, Register(r))
	require.NoError(t, r.Seal())

	for _, path := range []string{"a.txt", "b.text"} {
		boxed, err := r.ImporterForPath(path)
		require.NoError(t, err)
		assert.Equal(t, ImporterTag, boxed.TypeTag())
		assert.Equal(t, OptionsTag, boxed.OptionsTag())
		assert.Equal(t, StateTag, boxed.StateTag())
	}

	_, err := r.ResolveType(OptionsTag)
	assert.NoError(t, err)
	_, err = r.ResolveType(StateTag)
	assert.NoError(t, err)
}
