package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyu-x/dataset-dedup/internal"
)

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}

func TestCollector_Collect(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/data/train/happy/b.jpg":     "bbb",
		"/data/train/happy/a.png":     "aa",
		"/data/train/happy/notes.txt": "ignored",
		"/data/train/angry/c.JPG":     "c",
		"/data/train/unknown/d.jpg":   "not a category",
		"/data/train/happy/sub/e.jpg": "nested",
		"/data/train/happy/f.jpeg":    "ffff",
	})

	collector, err := NewCollector(fs, []string{"angry", "happy", "sad"}, []string{"jpg", "jpeg", "png"})
	require.NoError(t, err)

	records, err := collector.Collect("/data/train", internal.PartitionTrain)
	require.NoError(t, err)

	expected := []internal.FileRecord{
		{Path: filepath.Join("/data/train", "angry", "c.JPG"), Partition: internal.PartitionTrain, Category: "angry", Size: 1},
		{Path: filepath.Join("/data/train", "happy", "a.png"), Partition: internal.PartitionTrain, Category: "happy", Size: 2},
		{Path: filepath.Join("/data/train", "happy", "b.jpg"), Partition: internal.PartitionTrain, Category: "happy", Size: 3},
		{Path: filepath.Join("/data/train", "happy", "f.jpeg"), Partition: internal.PartitionTrain, Category: "happy", Size: 4},
	}
	assert.Equal(t, expected, records)
}

func TestCollector_Collect_RepeatedCategory(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/data/train/happy/a.jpg": "a",
		"/data/train/sad/b.jpg":   "b",
	})

	collector, err := NewCollector(fs, []string{"happy", "sad", " happy ", "happy/", ""}, []string{"jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{"happy", "sad"}, collector.Categories)

	records, err := collector.Collect("/data/train", internal.PartitionTrain)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, filepath.Join("/data/train", "happy", "a.jpg"), records[0].Path)
	assert.Equal(t, filepath.Join("/data/train", "sad", "b.jpg"), records[1].Path)
}

func TestNewCollector_NoCategories(t *testing.T) {
	_, err := NewCollector(afero.NewMemMapFs(), []string{" ", ""}, []string{"jpg"})
	assert.Error(t, err)
}

func TestCollector_Collect_UnknownPartition(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/val", 0755))

	collector, err := NewCollector(fs, internal.DefaultCategories, internal.DefaultExtensions)
	require.NoError(t, err)

	_, err = collector.Collect("/data/val", internal.Partition("val"))
	assert.Error(t, err)
}

func TestCollector_Collect_MissingRoot(t *testing.T) {
	collector, err := NewCollector(afero.NewMemMapFs(), internal.DefaultCategories, internal.DefaultExtensions)
	require.NoError(t, err)

	_, err = collector.Collect("/non/existent", internal.PartitionTest)
	assert.ErrorIs(t, err, internal.ErrPartitionNotFound)
}

func TestCollector_Collect_RootIsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/data/train": "file"})

	collector, err := NewCollector(fs, internal.DefaultCategories, internal.DefaultExtensions)
	require.NoError(t, err)

	_, err = collector.Collect("/data/train", internal.PartitionTrain)
	assert.ErrorIs(t, err, internal.ErrPartitionNotFound)
}

func TestCollector_Collect_EmptyPartition(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/test", 0755))

	collector, err := NewCollector(fs, internal.DefaultCategories, internal.DefaultExtensions)
	require.NoError(t, err)

	records, err := collector.Collect("/data/test", internal.PartitionTest)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCollector_Collect_WithSymlinks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping symlink test in short mode")
	}

	tempDir := t.TempDir()
	categoryDir := filepath.Join(tempDir, "happy")
	require.NoError(t, os.MkdirAll(categoryDir, 0755))

	filePath := filepath.Join(categoryDir, "file.jpg")
	require.NoError(t, os.WriteFile(filePath, []byte("test content"), 0644))

	linkPath := filepath.Join(categoryDir, "link.jpg")
	if err := os.Symlink(filePath, linkPath); err != nil {
		t.Skipf("Skipping symlink test: %v", err)
	}

	collector, err := NewCollector(afero.NewOsFs(), []string{"happy"}, []string{"jpg"})
	require.NoError(t, err)

	records, err := collector.Collect(tempDir, internal.PartitionTrain)
	require.NoError(t, err)

	require.Len(t, records, 2, "target file and symlink")
	for _, r := range records {
		assert.Equal(t, int64(len("test content")), r.Size, r.Path)
	}
}

func TestNewExtensionSet(t *testing.T) {
	set, err := NewExtensionSet([]string{".JPG", "jpeg", "png"})
	require.NoError(t, err)

	for _, name := range []string{"a.jpg", "b.JPEG", "c.png"} {
		assert.True(t, set.Match(name), name)
	}
	assert.False(t, set.Match("d.gif"))
}

func TestNewExtensionSet_RejectsNonImage(t *testing.T) {
	_, err := NewExtensionSet([]string{"mp4"})
	assert.Error(t, err, "non-image extension")
	_, err = NewExtensionSet([]string{"nope"})
	assert.Error(t, err, "unknown extension")
	_, err = NewExtensionSet(nil)
	assert.Error(t, err, "empty extension list")
}
