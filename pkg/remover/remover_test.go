package remover

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyu-x/dataset-dedup/internal"
)

func rec(path string, partition internal.Partition, size int64) internal.FileRecord {
	return internal.FileRecord{Path: path, Partition: partition, Category: "happy", Size: size}
}

// a/b 在训练集内部重复，c 与 a 跨分区重复，d 没有重复
func scenarioReport() *internal.Report {
	a := rec("/train/happy/a.jpg", internal.PartitionTrain, 1)
	b := rec("/train/happy/b.jpg", internal.PartitionTrain, 1)
	c := rec("/test/happy/c.jpg", internal.PartitionTest, 1)
	return &internal.Report{
		TrainInternal: []internal.DuplicateGroup{{
			Kind:       internal.IntraPartition,
			Digest:     "x",
			Partitions: []internal.Partition{internal.PartitionTrain},
			Size:       1,
			Canonical:  a,
			Redundant:  []internal.FileRecord{b},
		}},
		TestInternal: []internal.DuplicateGroup{},
		Cross: []internal.DuplicateGroup{{
			Kind:        internal.CrossPartition,
			Digest:      "x",
			Partitions:  []internal.Partition{internal.PartitionTrain, internal.PartitionTest},
			Size:        1,
			Canonical:   a,
			Redundant:   []internal.FileRecord{c},
			TrainCopies: []internal.FileRecord{a, b},
		}},
	}
}

func scenarioFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range map[string]string{
		"/train/happy/a.jpg": "X",
		"/train/happy/b.jpg": "X",
		"/test/happy/c.jpg":  "X",
		"/test/happy/d.jpg":  "Y",
	} {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	return fs
}

func exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	return ok
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input string
		want  Policy
	}{
		{"cross-from-test", Policy{CrossFromTest: true}},
		{"cross-from-train", Policy{CrossFromTrain: true}},
		{"test", Policy{IntraTest: true, CrossFromTest: true}},
		{"train", Policy{IntraTrain: true}},
		{"both", Policy{IntraTrain: true, IntraTest: true, CrossFromTest: true}},
		{"intra-train, intra-test", Policy{IntraTrain: true, IntraTest: true}},
		{"INTRA-TEST,cross-from-test", Policy{IntraTest: true, CrossFromTest: true}},
		{"intra-test,cross-from-train", Policy{IntraTest: true, CrossFromTrain: true}},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParsePolicy("")
	assert.ErrorIs(t, err, ErrEmptyPolicy)
	_, err = ParsePolicy(" , ")
	assert.ErrorIs(t, err, ErrEmptyPolicy)
	_, err = ParsePolicy("everything")
	assert.Error(t, err)
}

func TestParsePolicy_RejectsOppositeSides(t *testing.T) {
	for _, input := range []string{
		"cross-from-test,cross-from-train",
		"both,cross-from-train",
		"test,cross-from-train",
	} {
		_, err := ParsePolicy(input)
		assert.ErrorIs(t, err, ErrConflictingPolicy, input)
	}
}

func TestPolicy_String(t *testing.T) {
	p := Policy{IntraTrain: true, CrossFromTest: true}
	assert.Equal(t, "intra-train,cross-from-test", p.String())

	parsed, err := ParsePolicy(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, parsed)
}

func TestPlan(t *testing.T) {
	targets := Plan(scenarioReport(), Policy{IntraTrain: true, CrossFromTest: true})
	require.Len(t, targets, 2)
	assert.Equal(t, "/train/happy/b.jpg", targets[0].Record.Path)
	assert.Equal(t, ClassIntraTrain, targets[0].Class)
	assert.Equal(t, "/test/happy/c.jpg", targets[1].Record.Path)
	assert.Equal(t, ClassCrossFromTest, targets[1].Class)
}

func TestPlan_CrossFromTrainRemovesEveryTrainCopy(t *testing.T) {
	targets := Plan(scenarioReport(), Policy{CrossFromTrain: true})
	require.Len(t, targets, 2)
	assert.Equal(t, "/train/happy/a.jpg", targets[0].Record.Path)
	assert.Equal(t, "/train/happy/b.jpg", targets[1].Record.Path)
	for _, target := range targets {
		assert.Equal(t, ClassCrossFromTrain, target.Class)
	}
}

func TestPlan_WithoutTrainCopiesFallsBackToCanonical(t *testing.T) {
	report := scenarioReport()
	report.Cross[0].TrainCopies = nil

	targets := Plan(report, Policy{CrossFromTrain: true})
	require.Len(t, targets, 1)
	assert.Equal(t, "/train/happy/a.jpg", targets[0].Record.Path)
}

// x: a b | c d, y: | f g, z: e | h
func richReport() (*internal.Report, map[string][]string) {
	a := rec("/train/happy/a.jpg", internal.PartitionTrain, 1)
	b := rec("/train/happy/b.jpg", internal.PartitionTrain, 1)
	e := rec("/train/sad/e.jpg", internal.PartitionTrain, 3)
	c := rec("/test/happy/c.jpg", internal.PartitionTest, 1)
	d := rec("/test/happy/d.jpg", internal.PartitionTest, 1)
	f := rec("/test/angry/f.jpg", internal.PartitionTest, 2)
	g := rec("/test/angry/g.jpg", internal.PartitionTest, 2)
	h := rec("/test/sad/h.jpg", internal.PartitionTest, 3)

	cross := func(digest internal.Digest, member internal.FileRecord, copies ...internal.FileRecord) internal.DuplicateGroup {
		return internal.DuplicateGroup{
			Kind:        internal.CrossPartition,
			Digest:      digest,
			Canonical:   copies[0],
			Redundant:   []internal.FileRecord{member},
			TrainCopies: copies,
		}
	}

	report := &internal.Report{
		TrainInternal: []internal.DuplicateGroup{
			{Kind: internal.IntraPartition, Digest: "x", Canonical: a, Redundant: []internal.FileRecord{b}},
		},
		TestInternal: []internal.DuplicateGroup{
			{Kind: internal.IntraPartition, Digest: "x", Canonical: c, Redundant: []internal.FileRecord{d}},
			{Kind: internal.IntraPartition, Digest: "y", Canonical: f, Redundant: []internal.FileRecord{g}},
		},
		Cross: []internal.DuplicateGroup{
			cross("x", c, a, b),
			cross("x", d, a, b),
			cross("z", h, e),
		},
	}
	members := map[string][]string{
		"x": {a.Path, b.Path, c.Path, d.Path},
		"y": {f.Path, g.Path},
		"z": {e.Path, h.Path},
	}
	return report, members
}

func TestPlan_KeepsOneCopyOfEveryDigest(t *testing.T) {
	report, members := richReport()

	for mask := 1; mask < 16; mask++ {
		policy := Policy{
			IntraTrain:     mask&1 != 0,
			IntraTest:      mask&2 != 0,
			CrossFromTest:  mask&4 != 0,
			CrossFromTrain: mask&8 != 0,
		}
		if policy.Validate() != nil {
			continue
		}

		targeted := map[string]bool{}
		for _, target := range Plan(report, policy) {
			targeted[target.Record.Path] = true
		}
		for digest, paths := range members {
			survivors := 0
			for _, path := range paths {
				if !targeted[path] {
					survivors++
				}
			}
			assert.NotZero(t, survivors, "policy %s removes every copy of %s", policy, digest)
		}
	}
}

func TestPlan_NeverTargetsGroupKeeper(t *testing.T) {
	a := rec("/data/happy/a.jpg", internal.PartitionTrain, 1)
	b := rec("/data/happy/b.jpg", internal.PartitionTest, 1)
	report := &internal.Report{
		TrainInternal: []internal.DuplicateGroup{
			{Kind: internal.IntraPartition, Canonical: a, Redundant: []internal.FileRecord{a}},
		},
		Cross: []internal.DuplicateGroup{
			{Kind: internal.CrossPartition, Canonical: a, Redundant: []internal.FileRecord{a}, TrainCopies: []internal.FileRecord{a}},
			{Kind: internal.CrossPartition, Canonical: a, Redundant: []internal.FileRecord{b}, TrainCopies: []internal.FileRecord{a}},
		},
	}

	targets := Plan(report, Policy{IntraTrain: true, CrossFromTest: true})
	require.Len(t, targets, 1)
	assert.Equal(t, b.Path, targets[0].Record.Path)

	assert.Empty(t, Plan(&internal.Report{Cross: report.Cross[:1]}, Policy{CrossFromTrain: true}))
}

func TestExecute_BothKeepsTrainCopy(t *testing.T) {
	fs := scenarioFs(t)
	policy, err := ParsePolicy("both")
	require.NoError(t, err)

	summary, err := NewExecutor(fs).Execute(scenarioReport(), policy)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Removed)
	assert.True(t, exists(t, fs, "/train/happy/a.jpg"))
	assert.False(t, exists(t, fs, "/train/happy/b.jpg"))
	assert.False(t, exists(t, fs, "/test/happy/c.jpg"))
}

func TestExecute_CrossFromTrain(t *testing.T) {
	fs := scenarioFs(t)

	summary, err := NewExecutor(fs).Execute(scenarioReport(), Policy{CrossFromTrain: true})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Removed)
	assert.False(t, exists(t, fs, "/train/happy/a.jpg"))
	assert.False(t, exists(t, fs, "/train/happy/b.jpg"))
	assert.True(t, exists(t, fs, "/test/happy/c.jpg"))
}

func TestExecute_CrossFromTest(t *testing.T) {
	fs := scenarioFs(t)
	executor := NewExecutor(fs)

	summary, err := executor.Execute(scenarioReport(), Policy{CrossFromTest: true})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Removed)
	assert.Equal(t, int64(1), summary.FreedBytes)
	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, "/test/happy/c.jpg", summary.Outcomes[0].Path)
	assert.Equal(t, internal.Removed, summary.Outcomes[0].Outcome)

	assert.False(t, exists(t, fs, "/test/happy/c.jpg"))
	assert.True(t, exists(t, fs, "/test/happy/d.jpg"))
	assert.True(t, exists(t, fs, "/train/happy/a.jpg"))
	assert.True(t, exists(t, fs, "/train/happy/b.jpg"))
}

func TestExecute_SecondRunAlreadyAbsent(t *testing.T) {
	fs := scenarioFs(t)
	executor := NewExecutor(fs)
	policy := Policy{IntraTrain: true, CrossFromTest: true}

	first, err := executor.Execute(scenarioReport(), policy)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Removed)

	second, err := executor.Execute(scenarioReport(), policy)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Removed)
	assert.Equal(t, 2, second.AlreadyAbsent)
	for _, o := range second.Outcomes {
		assert.Equal(t, internal.AlreadyAbsent, o.Outcome, o.Path)
	}
}

func TestExecute_PathRemovedOnce(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/train/happy/a.jpg", []byte("X"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/test/happy/c.jpg", []byte("X"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/test/happy/e.jpg", []byte("X"), 0644))

	a := rec("/train/happy/a.jpg", internal.PartitionTrain, 1)
	c := rec("/test/happy/c.jpg", internal.PartitionTest, 1)
	e := rec("/test/happy/e.jpg", internal.PartitionTest, 1)
	// e 同时属于测试集内部重复组和跨分区重复组
	report := &internal.Report{
		TestInternal: []internal.DuplicateGroup{{Kind: internal.IntraPartition, Canonical: c, Redundant: []internal.FileRecord{e}}},
		Cross: []internal.DuplicateGroup{
			{Kind: internal.CrossPartition, Canonical: a, Redundant: []internal.FileRecord{c}},
			{Kind: internal.CrossPartition, Canonical: a, Redundant: []internal.FileRecord{e}},
		},
	}

	summary, err := NewExecutor(fs).Execute(report, Policy{IntraTest: true, CrossFromTest: true})
	require.NoError(t, err)

	counts := map[string]int{}
	for _, o := range summary.Outcomes {
		counts[o.Path]++
	}
	for path, n := range counts {
		assert.Equal(t, 1, n, path)
	}
	assert.Equal(t, 2, summary.Removed)
	assert.True(t, exists(t, fs, "/train/happy/a.jpg"))
	assert.Equal(t, 0, summary.AlreadyAbsent)
}

func TestExecute_ExternalDeletion(t *testing.T) {
	fs := scenarioFs(t)
	require.NoError(t, fs.Remove("/test/happy/c.jpg"))

	summary, err := NewExecutor(fs).Execute(scenarioReport(), Policy{CrossFromTest: true})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Removed)
	assert.Equal(t, 1, summary.AlreadyAbsent)
	assert.Equal(t, 0, summary.Failed)
	assert.Len(t, summary.Outcomes, summary.Removed+summary.AlreadyAbsent+summary.Failed)
}

func TestExecute_FailureContinues(t *testing.T) {
	fs := afero.NewReadOnlyFs(scenarioFs(t))

	summary, err := NewExecutor(fs).Execute(scenarioReport(), Policy{IntraTrain: true, CrossFromTest: true})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	for _, o := range summary.Outcomes {
		assert.Equal(t, internal.Failed, o.Outcome)
		assert.True(t, strings.HasPrefix(o.Reason, internal.ErrDeletionFailed.Error()), o.Reason)
	}
}

func TestExecute_EmptyPolicy(t *testing.T) {
	_, err := NewExecutor(afero.NewMemMapFs()).Execute(scenarioReport(), Policy{})
	assert.True(t, errors.Is(err, ErrEmptyPolicy))
}

func TestExecute_ConflictingPolicy(t *testing.T) {
	fs := scenarioFs(t)
	_, err := NewExecutor(fs).Execute(scenarioReport(), Policy{CrossFromTest: true, CrossFromTrain: true})
	assert.ErrorIs(t, err, ErrConflictingPolicy)
	assert.True(t, exists(t, fs, "/train/happy/a.jpg"))
	assert.True(t, exists(t, fs, "/test/happy/c.jpg"))
}

func TestExecute_DryRun(t *testing.T) {
	fs := scenarioFs(t)
	executor := &Executor{Fs: fs, DryRun: true}

	summary, err := executor.Execute(scenarioReport(), Policy{CrossFromTest: true})
	require.NoError(t, err)
	require.Len(t, summary.Outcomes, 1)
	assert.Equal(t, internal.Pending, summary.Outcomes[0].Outcome)
	assert.True(t, exists(t, fs, "/test/happy/c.jpg"))
}

type memJournal struct {
	outcomes []internal.RemovalOutcome
}

func (m *memJournal) Record(o internal.RemovalOutcome) error {
	m.outcomes = append(m.outcomes, o)
	return nil
}

func TestExecute_Journal(t *testing.T) {
	journal := &memJournal{}
	executor := &Executor{Fs: scenarioFs(t), Journal: journal}

	_, err := executor.Execute(scenarioReport(), Policy{IntraTrain: true})
	require.NoError(t, err)
	require.Len(t, journal.outcomes, 1)
	assert.Equal(t, "/train/happy/b.jpg", journal.outcomes[0].Path)
	assert.Equal(t, internal.Removed, journal.outcomes[0].Outcome)
}
