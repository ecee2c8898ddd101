package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/.config/companion")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config/companion"), expanded)

	unchanged, err := ExpandPath("/var/lib/companion")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/companion", unchanged)
}

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blob.json")

	require.NoError(t, WriteAtomic(path, []byte("first"), 0644))
	require.NoError(t, WriteAtomic(path, []byte("second"), 0644))

	bytes, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(bytes))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	exists, err := Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	isDir, err := DirectoryExists(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, isDir)
}
