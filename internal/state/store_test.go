package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "nested"), "offset")

	offset, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)

	require.NoError(t, s.Save(ctx, 42))
	offset, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, offset)

	info, err := os.Stat(s.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offset")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o600))

	_, err := (&FileStore{Path: path}).Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	s := NewRedisStore(client, "")

	offset, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)

	require.NoError(t, s.Save(ctx, 1001))
	offset, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1001, offset)

	got, err := mr.Get(DefaultRedisKey)
	require.NoError(t, err)
	assert.Equal(t, "1001", got)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	_, err := NewRedisStore(client, "k").Load(context.Background())
	assert.Error(t, err)
}
