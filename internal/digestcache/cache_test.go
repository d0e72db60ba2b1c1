package digestcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyu-x/dataset-dedup/internal"
)

func openCache(t *testing.T, path string) *Cache {
	t.Helper()
	cache, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCache_StoreAndLookup(t *testing.T) {
	cache := openCache(t, filepath.Join(t.TempDir(), "cache", "digests.db"))

	_, ok, err := cache.Lookup("/data/a.jpg", "xxhash", 10, 100)
	require.NoError(t, err)
	assert.False(t, ok, "miss on empty cache")

	entries := []Entry{
		{Path: "/data/a.jpg", Algorithm: "xxhash", Size: 10, ModTime: 100, Digest: "aaaa"},
		{Path: "/data/b.jpg", Algorithm: "xxhash", Size: 20, ModTime: 200, Digest: "bbbb"},
	}
	require.NoError(t, cache.Store(entries))

	digest, ok, err := cache.Lookup("/data/a.jpg", "xxhash", 10, 100)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, internal.Digest("aaaa"), digest)

	count, err := cache.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCache_StaleEntriesMiss(t *testing.T) {
	cache := openCache(t, filepath.Join(t.TempDir(), "digests.db"))
	require.NoError(t, cache.Store([]Entry{{Path: "/data/a.jpg", Algorithm: "xxhash", Size: 10, ModTime: 100, Digest: "aaaa"}}))

	cases := []struct {
		name      string
		algorithm string
		size      int64
		modTime   int64
	}{
		{"size changed", "xxhash", 11, 100},
		{"mtime changed", "xxhash", 10, 101},
		{"other algorithm", "sha256", 10, 100},
	}
	for _, tc := range cases {
		_, ok, err := cache.Lookup("/data/a.jpg", tc.algorithm, tc.size, tc.modTime)
		require.NoError(t, err, tc.name)
		assert.False(t, ok, tc.name)
	}
}

func TestCache_StoreReplaces(t *testing.T) {
	cache := openCache(t, filepath.Join(t.TempDir(), "digests.db"))

	first := Entry{Path: "/data/a.jpg", Algorithm: "xxhash", Size: 10, ModTime: 100, Digest: "aaaa"}
	second := Entry{Path: "/data/a.jpg", Algorithm: "xxhash", Size: 12, ModTime: 300, Digest: "cccc"}
	require.NoError(t, cache.Store([]Entry{first}))
	require.NoError(t, cache.Store([]Entry{second}))

	digest, ok, err := cache.Lookup("/data/a.jpg", "xxhash", 12, 300)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, internal.Digest("cccc"), digest)

	count, err := cache.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "entries after replace")
}
