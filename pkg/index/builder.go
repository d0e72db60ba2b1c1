package index

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/internal/digestcache"
	"github.com/moyu-x/dataset-dedup/pkg/hasher"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
	"github.com/moyu-x/dataset-dedup/pkg/progress"
)

// Cache 摘要缓存，只影响耗时，不影响结果
type Cache interface {
	Lookup(path, algorithm string, size, modTime int64) (internal.Digest, bool, error)
	Store(entries []digestcache.Entry) error
}

// Builder 为一个或多个分区计算摘要并建立索引
type Builder struct {
	Fs        afero.Fs
	Workers   int
	Algorithm hasher.Algorithm
	// PreFilter 只对大小与其他文件相同的记录计算摘要
	PreFilter bool
	Cache     Cache
	Progress  *progress.Counter
}

type BuildStats struct {
	Files      int
	Hashed     int
	Skipped    int
	CacheHits  int
	Unreadable int
	Duration   time.Duration
}

// PartitionSet 一个分区收集到的全部记录
type PartitionSet struct {
	Partition internal.Partition
	Records   []internal.FileRecord
}

type BuildResult struct {
	Indices []*Index
	Stats   BuildStats
}

type pending struct {
	partition int
	record    internal.FileRecord
	probe     bool
	cached    bool
	modTime   int64
}

// Build 为每个输入分区返回一个索引，顺序与参数一致。
// 预过滤统计所有分区的文件大小，因此跨分区的候选同样会被计算摘要。
// 结果按收集时的序号重新排序后再写入索引，与工作线程的完成顺序无关。
func (b *Builder) Build(ctx context.Context, partitions ...PartitionSet) (*BuildResult, error) {
	start := time.Now()

	var all []pending
	sizeCount := make(map[int64]int)
	for p, set := range partitions {
		for _, record := range set.Records {
			all = append(all, pending{partition: p, record: record})
			sizeCount[record.Size]++
		}
	}

	stats := BuildStats{Files: len(all)}
	counter := b.Progress
	if counter == nil {
		counter = progress.NewCounter(len(all), internal.ProgressInterval)
	}

	if b.PreFilter {
		for i := range all {
			if sizeCount[all[i].record.Size] < 2 {
				all[i].probe = true
				stats.Skipped++
			}
		}
		logger.Get().Info().Msgf("   大小预过滤: %d/%d 个文件需要计算哈希", len(all)-stats.Skipped, len(all))
	}

	results := make([]hasher.Result, len(all))
	tasks := make([]hasher.Task, 0, len(all))
	for i := range all {
		item := &all[i]
		if !item.probe && b.Cache != nil {
			if info, err := b.Fs.Stat(item.record.Path); err == nil {
				item.modTime = info.ModTime().UnixNano()
				digest, ok, err := b.Cache.Lookup(item.record.Path, string(b.Algorithm), item.record.Size, item.modTime)
				if err != nil {
					logger.Get().Warn().Err(err).Msgf("查询摘要缓存失败: %s", item.record.Path)
				} else if ok {
					results[i] = hasher.Result{Index: i, Record: item.record, Digest: digest}
					item.cached = true
					stats.CacheHits++
					counter.Observe(item.record, nil)
					continue
				}
			}
		}
		tasks = append(tasks, hasher.Task{Index: i, Record: item.record, Probe: item.probe})
	}

	if len(tasks) > 0 {
		pool := hasher.NewPool(b.Fs, b.Algorithm, b.Workers)
		done, err := pool.Run(ctx, tasks, func(r hasher.Result) {
			counter.Observe(r.Record, r.Err)
		})
		if err != nil {
			return nil, fmt.Errorf("计算文件哈希失败: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("建立索引被中止: %w", err)
		}
		for _, r := range done {
			results[r.Index] = r
		}
	}

	var cacheEntries []digestcache.Entry
	indices := make([]*Index, len(partitions))
	for p, set := range partitions {
		indices[p] = New(set.Partition)
	}

	for i, item := range all {
		idx := indices[item.partition]
		r := results[i]
		if r.Err != nil {
			logger.Get().Warn().Err(r.Err).Msgf("无法读取文件: %s", item.record.Path)
			idx.AddFailure(item.record, r.Err)
			stats.Unreadable++
			continue
		}

		if item.probe {
			idx.Add(SizeKey(item.record.Size), item.record)
			continue
		}

		idx.Add(r.Digest, item.record)
		if item.cached {
			continue
		}
		stats.Hashed++
		if b.Cache != nil && item.modTime != 0 {
			cacheEntries = append(cacheEntries, digestcache.Entry{
				Path:      item.record.Path,
				Algorithm: string(b.Algorithm),
				Size:      item.record.Size,
				ModTime:   item.modTime,
				Digest:    r.Digest,
			})
		}
	}

	if b.Cache != nil && len(cacheEntries) > 0 {
		if err := b.Cache.Store(cacheEntries); err != nil {
			logger.Get().Warn().Err(err).Msg("写入摘要缓存失败")
		}
	}

	stats.Duration = time.Since(start)
	logger.Get().Info().Msgf("   索引完成: %d 个文件, 计算 %d, 跳过 %d, 缓存命中 %d, 读取失败 %d, 耗时 %v",
		stats.Files, stats.Hashed, stats.Skipped, stats.CacheHits, stats.Unreadable, stats.Duration)

	return &BuildResult{Indices: indices, Stats: stats}, nil
}
