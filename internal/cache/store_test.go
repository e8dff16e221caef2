package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_DeterministicAndDistinct(t *testing.T) {
	assert.Equal(t, Key("hello", "ai_char1", 1.0), Key("hello", "ai_char1", 1.0))
	assert.NotEqual(t, Key("hello", "ai_char1", 1.0), Key("hello", "ai_char2", 1.0))
	assert.NotEqual(t, Key("hello", "ai_char1", 1.0), Key("hello", "ai_char1", 1.5))
	assert.Len(t, Key("hello", "ai_char1", 1.0), 64)
}

func TestStore_PutGet(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	key := Key("hello", "voice", 1.0)
	require.NoError(t, store.Put(key, []byte("audio bytes")))

	got, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio bytes"), got)
}

func TestStore_Miss(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(Key("nothing", "voice", 1.0))
	assert.ErrorIs(t, err, ErrMiss)
}

func TestStore_PutIsIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	key := Key("hello", "voice", 1.0)
	require.NoError(t, store.Put(key, []byte("first")))
	require.NoError(t, store.Put(key, []byte("second")))

	got, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestStore_EvictOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	oldKey := Key("old", "voice", 1.0)
	newKey := Key("new", "voice", 1.0)
	require.NoError(t, store.Put(oldKey, []byte("old data")))
	require.NoError(t, store.Put(newKey, []byte("new data")))

	// Age the first entry past the cutoff.
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, oldKey+".audio"), past, past))

	removed, err := store.EvictOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Get(oldKey)
	assert.ErrorIs(t, err, ErrMiss)

	_, err = store.Get(newKey)
	assert.NoError(t, err)
}

func TestStore_Stats(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put(Key("a", "v", 1.0), []byte("12345")))
	require.NoError(t, store.Put(Key("b", "v", 1.0), []byte("1234567")))

	// Stray files are not cache entries.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(12), stats.TotalBytes)
}
