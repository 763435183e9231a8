package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(t *testing.T) KV {
	t.Helper()
	return map[string]func(t *testing.T) KV{
		"memory": func(t *testing.T) KV {
			return NewMemory()
		},
		"file": func(t *testing.T) KV {
			kv, err := NewFile(t.TempDir())
			require.NoError(t, err)
			return kv
		},
		"redis": func(t *testing.T) KV {
			mr := miniredis.RunT(t)
			return NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
		},
		"sqlite": func(t *testing.T) KV {
			kv, err := NewSQLite(filepath.Join(t.TempDir(), "campaign.db"))
			require.NoError(t, err)
			return kv
		},
	}
}

func TestKVContract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			kv := open(t)
			t.Cleanup(func() { _ = kv.Close() })
			ctx := context.Background()

			_, err := kv.Get(ctx, "campaign:progress")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, "campaign:progress", []byte("first")))
			require.NoError(t, kv.Set(ctx, "campaign:progress", []byte("second")))

			got, err := kv.Get(ctx, "campaign:progress")
			require.NoError(t, err)
			assert.Equal(t, "second", string(got))

			require.NoError(t, kv.Set(ctx, "campaign:log:medicalBay", []byte("log")))
			require.NoError(t, kv.Delete(ctx, "campaign:progress"))
			require.NoError(t, kv.Delete(ctx, "campaign:progress"), "deleting a missing key")

			_, err = kv.Get(ctx, "campaign:progress")
			assert.ErrorIs(t, err, ErrNotFound)

			got, err = kv.Get(ctx, "campaign:log:medicalBay")
			require.NoError(t, err)
			assert.Equal(t, "log", string(got))
		})
	}
}

func TestFileSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	kv, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "campaign:party", []byte("heroes")))
	require.NoError(t, kv.Close())

	_, err = kv.Get(ctx, "campaign:party")
	assert.ErrorIs(t, err, ErrClosed)

	reopened, err := NewFile(dir)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "campaign:party")
	require.NoError(t, err)
	assert.Equal(t, "heroes", string(got))
}

func TestOpen(t *testing.T) {
	kv, err := Open(Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	kv, err = Open(Config{Backend: BackendSQLite, Path: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, kv)
	require.NoError(t, kv.Close())

	_, err = Open(Config{Backend: "etcd"})
	assert.Error(t, err)

	_, err = Open(Config{Backend: BackendRedis})
	assert.Error(t, err, "redis without an address")
}
