package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1001.png")
	touch(t, dir, "1002.jpeg")
	touch(t, dir, "1003.backup.mp4")
	touch(t, dir, ".1004-tmp.partial.mp4")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "1005"), 0750))

	idx, err := Build(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.True(t, idx.Has("1001"))
	assert.True(t, idx.Has("1002"))
	assert.True(t, idx.Has("1003.backup"), "only the last extension is stripped")
	assert.False(t, idx.Has("1004-tmp.partial"), "hidden temp files are skipped")
	assert.False(t, idx.Has("1005"), "directories are skipped")

	path, ok := idx.Path("1002")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "1002.jpeg"), path)

	_, ok = idx.Path("nope")
	assert.False(t, ok)
}

func TestBuild_DuplicateStem(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "7.png")
	touch(t, dir, "7.jpg")

	idx, err := Build(dir)
	require.NoError(t, err)

	assert.Equal(t, 1, idx.Len())
	path, _ := idx.Path("7")
	assert.Equal(t, filepath.Join(dir, "7.jpg"), path)
}

func TestBuild_EmptyDirectory(t *testing.T) {
	idx, err := Build(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestBuild_MissingDirectory(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, ErrDirectoryMissing)
}

func TestEmpty(t *testing.T) {
	idx := Empty("videos")
	assert.Equal(t, "videos", idx.Dir())
	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.Has("x"))
}
