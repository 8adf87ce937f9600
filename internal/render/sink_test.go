package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "post.png")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, writeImage(path, []byte("new")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(imageFileMode), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestWriteImageRejectsEmptyData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "post.png")
	require.Error(t, writeImage(path, nil))
	assert.NoFileExists(t, path)
}

func TestWriteImageMissingDirectory(t *testing.T) {
	t.Parallel()

	err := writeImage(filepath.Join(t.TempDir(), "missing", "post.png"), []byte("png"))
	assert.Error(t, err)
}
