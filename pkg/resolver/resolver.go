// Package resolver 从摘要索引中找出重复组。
//
// Resolve 是纯函数：不读写文件，不删除任何东西，相同的输入总是得到相同的报告。
package resolver

import (
	"path/filepath"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/pkg/index"
)

// Options 选择要检测的重复类型
type Options struct {
	IntraTrain bool
	IntraTest  bool
	Cross      bool
}

func DefaultOptions() Options {
	return Options{IntraTrain: true, IntraTest: true, Cross: true}
}

// Resolve 生成重复检测报告。train 或 test 可以为 nil，此时只做单分区检测。
//
// 同一摘要的保留项总是该分区中第一个出现的记录。跨分区重复以训练集为准：
// 测试集中的每个成员各成一组，保留项为训练集中第一个出现的记录，
// 即使训练集内部也存在该摘要的重复。
func Resolve(train, test *index.Index, opts Options) *internal.Report {
	report := &internal.Report{
		TrainInternal: []internal.DuplicateGroup{},
		TestInternal:  []internal.DuplicateGroup{},
		Cross:         []internal.DuplicateGroup{},
	}

	if train != nil {
		report.Stats.Train = partitionStats(train)
		if opts.IntraTrain {
			report.TrainInternal = intraGroups(train)
		}
		report.Unreadable = append(report.Unreadable, train.Unreadable()...)
	}
	if test != nil {
		report.Stats.Test = partitionStats(test)
		if opts.IntraTest {
			report.TestInternal = intraGroups(test)
		}
		report.Unreadable = append(report.Unreadable, test.Unreadable()...)
	}
	if opts.Cross && train != nil && test != nil {
		report.Cross = crossGroups(train, test)
	}

	fillStats(report)
	return report
}

func intraGroups(idx *index.Index) []internal.DuplicateGroup {
	groups := []internal.DuplicateGroup{}
	for _, key := range idx.Buckets() {
		members := idx.Get(key)
		if len(members) < 2 {
			continue
		}
		groups = append(groups, internal.DuplicateGroup{
			Kind:       internal.IntraPartition,
			Digest:     key,
			Partitions: []internal.Partition{idx.Partition()},
			Size:       members[0].Size,
			Canonical:  members[0],
			Redundant:  members[1:],
		})
	}
	return groups
}

func crossGroups(train, test *index.Index) []internal.DuplicateGroup {
	groups := []internal.DuplicateGroup{}
	for _, key := range train.Buckets() {
		// 大小唯一的桶不可能在另一个分区出现
		if index.IsSizeKey(key) || !test.Has(key) {
			continue
		}
		copies := train.Get(key)
		source := copies[0]
		for _, member := range test.Get(key) {
			groups = append(groups, internal.DuplicateGroup{
				Kind:        internal.CrossPartition,
				Digest:      key,
				Partitions:  []internal.Partition{train.Partition(), test.Partition()},
				Size:        source.Size,
				Canonical:   source,
				Redundant:   []internal.FileRecord{member},
				TrainCopies: copies,
			})
		}
	}
	return groups
}

func partitionStats(idx *index.Index) internal.PartitionStats {
	return internal.PartitionStats{
		Files:      idx.Files(),
		Indexed:    idx.Len(),
		Unique:     len(idx.Buckets()),
		Unreadable: len(idx.Unreadable()),
	}
}

func fillStats(report *internal.Report) {
	for _, g := range report.TrainInternal {
		addGroup(&report.Stats.Train, g)
	}
	for _, g := range report.TestInternal {
		addGroup(&report.Stats.Test, g)
	}
	report.Stats.CrossDuplicates = len(report.Cross)
	report.Stats.Unreadable = report.Stats.Train.Unreadable + report.Stats.Test.Unreadable
	report.Stats.WastedBytes = report.Stats.Train.WastedBytes + report.Stats.Test.WastedBytes
}

func addGroup(stats *internal.PartitionStats, g internal.DuplicateGroup) {
	stats.DuplicateGroups++
	stats.DuplicateFiles += len(g.Redundant)
	stats.WastedBytes += g.Size * int64(len(g.Redundant))
}

// CountSameNamePairs 统计训练集与测试集中文件名相同的记录对，不区分类别。
// 同名不代表内容相同，该数字只用于提示。
func CountSameNamePairs(train, test []internal.FileRecord) int {
	names := make(map[string]int)
	for _, r := range train {
		names[filepath.Base(r.Path)]++
	}

	pairs := 0
	for _, r := range test {
		pairs += names[filepath.Base(r.Path)]
	}
	return pairs
}
