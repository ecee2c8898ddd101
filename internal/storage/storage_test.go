package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/companion/internal/configuration"
)

func newBackends(t *testing.T) map[string]Storage {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	sqlite, err := NewSQLite(filepath.Join(dir, "db", "chats.db"))
	require.NoError(t, err)
	bolt, err := NewBolt(filepath.Join(dir, "chats.bolt"))
	require.NoError(t, err)
	files, err := NewFile(filepath.Join(dir, "files"))
	require.NoError(t, err)

	server := miniredis.RunT(t)
	redis, err := NewRedis(ctx, &configuration.RedisConfig{Addr: server.Addr(), Prefix: "test"})
	require.NoError(t, err)

	backends := map[string]Storage{
		"sqlite": sqlite,
		"bolt":   bolt,
		"file":   files,
		"redis":  redis,
	}
	t.Cleanup(func() {
		for _, backend := range backends {
			backend.Close()
		}
	})
	return backends
}

func TestBackends(t *testing.T) {
	ctx := context.Background()
	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := backend.Read(ctx, "cgpt_chats_v2")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, backend.Write(ctx, "cgpt_chats_v2", []byte(`[{"id":"1"}]`)))
			value, err := backend.Read(ctx, "cgpt_chats_v2")
			require.NoError(t, err)
			assert.Equal(t, `[{"id":"1"}]`, string(value))

			// Overwrites replace the previous blob entirely.
			require.NoError(t, backend.Write(ctx, "cgpt_chats_v2", []byte(`[]`)))
			value, err = backend.Read(ctx, "cgpt_chats_v2")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(value))

			// Keys are independent.
			_, err = backend.Read(ctx, "other")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRedisKeyPrefix(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	r, err := NewRedis(ctx, &configuration.RedisConfig{Addr: server.Addr(), Prefix: "companion"})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Write(ctx, "chats", []byte("blob")))
	value, err := server.Get("companion:chats")
	require.NoError(t, err)
	assert.Equal(t, "blob", value)
}

func TestNewRedisUnreachable(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	addr := server.Addr()
	server.Close()

	_, err = NewRedis(context.Background(), &configuration.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := New(ctx, &configuration.StorageConfig{Backend: configuration.BackendFile, Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &File{}, backend)

	backend, err = New(ctx, &configuration.StorageConfig{Backend: configuration.BackendSQLite, Path: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, backend)
	require.NoError(t, backend.Close())

	_, err = New(ctx, &configuration.StorageConfig{Backend: "tape"})
	assert.Error(t, err)
}
