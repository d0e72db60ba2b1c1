package progress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyu-x/dataset-dedup/internal"
)

func TestOpenJournal(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), JournalFileName)

	journal, err := OpenJournal(journalPath)
	require.NoError(t, err)
	assert.Equal(t, 0, journal.RemovedCount())
	require.NoError(t, journal.Close())

	assert.FileExists(t, journalPath, "journal is kept after Close()")
}

func TestJournal_Record(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), JournalFileName)

	journal, err := OpenJournal(journalPath)
	require.NoError(t, err)

	outcomes := []internal.RemovalOutcome{
		{Path: "/data/test/happy/a.jpg", Outcome: internal.Removed},
		{Path: "/data/test/happy/b.jpg", Outcome: internal.AlreadyAbsent},
		{Path: "/data/test/happy/c.jpg", Outcome: internal.Failed, Reason: "permission denied"},
	}
	for _, o := range outcomes {
		require.NoError(t, journal.Record(o))
	}

	assert.True(t, journal.WasRemoved("/data/test/happy/a.jpg"))
	assert.False(t, journal.WasRemoved("/data/test/happy/b.jpg"))
	assert.False(t, journal.WasRemoved("/data/test/happy/c.jpg"))

	require.NoError(t, journal.Close())

	data, err := os.ReadFile(journalPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "removed\t/data/test/happy/a.jpg", lines[0])
}

func TestJournal_LoadExisting(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), JournalFileName)

	first, err := OpenJournal(journalPath)
	require.NoError(t, err)
	for _, path := range []string{"/a.jpg", "/b.jpg"} {
		require.NoError(t, first.Record(internal.RemovalOutcome{Path: path, Outcome: internal.Removed}))
	}
	require.NoError(t, first.Close())

	second, err := OpenJournal(journalPath)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, 2, second.RemovedCount())
	assert.True(t, second.WasRemoved("/b.jpg"))
}
