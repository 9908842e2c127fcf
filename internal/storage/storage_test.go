package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EagleChat/internal/config"
)

func openAll(t *testing.T) map[string]KV {
	t.Helper()

	file, err := NewFile(t.TempDir())
	require.NoError(t, err)

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	stores := map[string]KV{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, kv := range stores {
			kv.Close()
		}
	})
	return stores
}

func TestKV_GetMissing(t *testing.T) {
	for name, kv := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(context.Background(), "eagle_chats")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestKV_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, kv := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Set(ctx, "eagle_chats", `[{"id":1}]`))
			require.NoError(t, kv.Set(ctx, "eagle_chats", `[]`))

			got, err := kv.Get(ctx, "eagle_chats")
			require.NoError(t, err)
			assert.Equal(t, `[]`, got)
		})
	}
}

func TestKV_Unicode(t *testing.T) {
	ctx := context.Background()
	for name, kv := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			value := `[{"text":"⚠️ Error.","isBot":true}]`
			require.NoError(t, kv.Set(ctx, "k", value))
			got, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, value, got)
		})
	}
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "eagle_chats", "data"))

	second, err := NewFile(dir)
	require.NoError(t, err)
	got, err := second.Get(ctx, "eagle_chats")
	require.NoError(t, err)
	assert.Equal(t, "data", got)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFile_RejectsPathKeys(t *testing.T) {
	kv, err := NewFile(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, kv.Set(context.Background(), "../escape", "x"))
	_, err = kv.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestSQLite_DirectoryPath(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewSQLite(dir)
	require.NoError(t, err)
	defer kv.Close()

	_, err = os.Stat(filepath.Join(dir, "eaglechat.db"))
	assert.NoError(t, err)
}

func TestRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url", "")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	kv, err := Open(ctx, config.StorageConfig{Driver: config.StorageMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	kv, err = Open(ctx, config.StorageConfig{Driver: config.StorageFile, Path: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &File{}, kv)

	_, err = Open(ctx, config.StorageConfig{Driver: "s3"}, nil)
	assert.Error(t, err)
}
