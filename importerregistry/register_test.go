package importerregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radium-io/atelier-assets/errors"
	"github.com/radium-io/atelier-assets/importers/document"
	"github.com/radium-io/atelier-assets/importers/text"
	"github.com/radium-io/atelier-assets/registry"
)

func TestRegister_WiresBuiltins(t *testing.T) {
	r := registry.New()
	require.NoError(t, Register(r))

	// The registry stays open for plugin importers.
	assert.False(t, r.Sealed())
	require.NoError(t, r.Seal())

	assert.Equal(t, []string{"json", "text", "txt"}, r.Extensions())

	listed := r.ListImporters()
	assert.Contains(t, listed, text.ImporterTag)
	assert.Contains(t, listed, document.ImporterTag)

	_, err := r.ResolveType(text.OptionsTag)
	assert.NoError(t, err)
	_, err = r.ResolveType(document.StateTag)
	assert.NoError(t, err)
}

func TestRegister_NilRegistry(t *testing.T) {
	err := Register(nil)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestRegister_TwiceConflicts(t *testing.T) {
	r := registry.New()
	require.NoError(t, Register(r))

	err := Register(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateTypeTag)
}
