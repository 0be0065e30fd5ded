package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStoreOpen(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "models", "modelo_apple.bin"), []byte("xgb"), 0o600))

	store, err := NewDirStore(root)
	require.NoError(t, err)

	rc, err := store.Open(context.Background(), "models/modelo_apple.bin")
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "xgb", string(body))
}

func TestDirStoreMissing(t *testing.T) {
	t.Parallel()

	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "Modelo_REF.csv")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirStoreRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../secret", "/etc/passwd"} {
		_, err := store.Open(context.Background(), name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestNewBackendSelection(t *testing.T) {
	t.Parallel()

	store, err := New(Config{Backend: "dir", Root: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &DirStore{}, store)

	_, err = New(Config{Backend: "minio"})
	assert.Error(t, err, "minio without endpoint must fail")

	store, err = New(Config{Backend: "minio", Endpoint: "localhost:9000", Bucket: "models"})
	require.NoError(t, err)
	assert.IsType(t, &MinIOStore{}, store)

	_, err = New(Config{Backend: "s3"})
	assert.Error(t, err)
}
