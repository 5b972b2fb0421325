package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "data", "device", "pestscan.db")

	require.NoError(t, EnsureParentDir(path))
	require.NoError(t, EnsureParentDir(path), "idempotent")

	fi, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureParentDir_BlockedByFile(t *testing.T) {
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "data")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := EnsureParentDir(filepath.Join(blocker, "pestscan.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mkdir")
}

func TestReadPhoto(t *testing.T) {
	tmp := t.TempDir()
	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("rest of jpeg")...)
	path := filepath.Join(tmp, "IMG_1.jpg")
	require.NoError(t, os.WriteFile(path, jpeg, 0o600))

	data, ct, err := ReadPhoto(path)
	require.NoError(t, err)
	assert.Equal(t, jpeg, data)
	assert.Equal(t, "image/jpeg", ct)

	_, _, err = ReadPhoto(filepath.Join(tmp, "missing.jpg"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = ReadPhoto(tmp)
	require.ErrorContains(t, err, "is a directory")
}
