package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_StoreFetch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)
	assert.True(t, backend.Available(ctx))
	assert.Equal(t, "file://"+dir, backend.LocationURI())

	name := interfaces.ArtifactName("application_processor/inc/ectf_params_secure.h")
	require.NoError(t, backend.Store(ctx, name, []byte("first version, longer")))
	require.NoError(t, backend.Store(ctx, name, []byte("second")))

	data, err := backend.Fetch(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data, "store truncates the previous content")

	info, err := os.Stat(filepath.Join(dir, "application_processor", "inc", "ectf_params_secure.h"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileBackend_NotFound(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)

	_, err = backend.Fetch(context.Background(), "missing.h")
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFileBackend_RejectsEscapingNames(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)

	err = backend.Store(context.Background(), "../outside.h", []byte("x"))
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)

	_, err = backend.Fetch(context.Background(), "/etc/passwd")
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)
}

func TestFileBackend_Unavailable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	backend, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	assert.False(t, backend.Available(context.Background()))
}
