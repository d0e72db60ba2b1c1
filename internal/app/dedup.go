package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/internal/digestcache"
	"github.com/moyu-x/dataset-dedup/pkg/database"
	"github.com/moyu-x/dataset-dedup/pkg/hasher"
	"github.com/moyu-x/dataset-dedup/pkg/index"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
	"github.com/moyu-x/dataset-dedup/pkg/progress"
	"github.com/moyu-x/dataset-dedup/pkg/remover"
	"github.com/moyu-x/dataset-dedup/pkg/resolver"
	"github.com/moyu-x/dataset-dedup/pkg/scanner"
)

// ErrUnreadableFiles 报告中存在无法读取的文件，默认不继续删除
var ErrUnreadableFiles = errors.New("report contains unreadable files")

type ScanOptions struct {
	TrainDir   string
	TestDir    string
	Categories []string
	Extensions []string
	Algorithm  string
	PreFilter  bool
	Workers    int
	Checks     resolver.Options
	// CachePath 为空时不使用摘要缓存
	CachePath string
	// OnProgress 在开始计算哈希前调用，可用于订阅进度
	OnProgress func(counter *progress.Counter)
}

type ScanResult struct {
	Report *internal.Report
	Build  index.BuildStats
}

// RunScan 收集两个分区，建立摘要索引并生成报告。不会修改任何文件。
func RunScan(ctx context.Context, fs afero.Fs, opts *ScanOptions) (*ScanResult, error) {
	algo, err := hasher.ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}

	if err := checkDisjoint(opts.TrainDir, opts.TestDir); err != nil {
		return nil, err
	}

	collector, err := scanner.NewCollector(fs, opts.Categories, opts.Extensions)
	if err != nil {
		return nil, err
	}

	logger.Get().Info().Msg("🔍 开始检测训练集与测试集中的重复文件")
	logger.Get().Info().Msgf("   训练集: %s", opts.TrainDir)
	logger.Get().Info().Msgf("   测试集: %s", opts.TestDir)
	logger.Get().Info().Msgf("   哈希算法: %s, 大小预过滤: %v", algo, opts.PreFilter)

	// 两个分区根目录都必须存在，否则在计算哈希之前终止
	var train, test []internal.FileRecord
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := collector.Collect(opts.TrainDir, internal.PartitionTrain)
		train = records
		return err
	})
	g.Go(func() error {
		records, err := collector.Collect(opts.TestDir, internal.PartitionTest)
		test = records
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sameName := resolver.CountSameNamePairs(train, test)
	logger.Get().Info().Msgf("   📋 %d 对文件同名（仅供参考，以内容为准）", sameName)

	counter := progress.NewCounter(len(train)+len(test), internal.ProgressInterval)
	defer counter.Close()
	if opts.OnProgress != nil {
		opts.OnProgress(counter)
	}

	builder := &index.Builder{
		Fs:        fs,
		Workers:   opts.Workers,
		Algorithm: algo,
		PreFilter: opts.PreFilter,
		Progress:  counter,
	}
	if opts.CachePath != "" {
		cache, err := openCache(opts.CachePath)
		if err != nil {
			logger.Get().Warn().Err(err).Msg("摘要缓存不可用，将重新计算全部哈希")
		} else {
			defer cache.Close()
			builder.Cache = cache
		}
	}

	built, err := builder.Build(ctx,
		index.PartitionSet{Partition: internal.PartitionTrain, Records: train},
		index.PartitionSet{Partition: internal.PartitionTest, Records: test},
	)
	if err != nil {
		return nil, err
	}

	report := resolver.Resolve(built.Indices[0], built.Indices[1], opts.Checks)
	report.GeneratedAt = time.Now()
	report.TrainDir = opts.TrainDir
	report.TestDir = opts.TestDir
	report.Stats.SameNamePairs = sameName

	if report.Stats.Unreadable > 0 {
		logger.Get().Warn().Msgf("⚠️  %d 个文件无法读取，已从检测中排除", report.Stats.Unreadable)
	}

	return &ScanResult{Report: report, Build: built.Stats}, nil
}

// checkDisjoint 拒绝相同或嵌套的分区根目录，否则同一文件会同时成为保留项和冗余项
func checkDisjoint(trainDir, testDir string) error {
	train, err := filepath.Abs(trainDir)
	if err != nil {
		return err
	}
	test, err := filepath.Abs(testDir)
	if err != nil {
		return err
	}
	if within(train, test) || within(test, train) {
		return fmt.Errorf("%w: %s, %s", internal.ErrOverlappingPartitions, trainDir, testDir)
	}
	return nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func openCache(path string) (*digestcache.Cache, error) {
	expanded, err := database.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	return digestcache.Open(expanded)
}

type CleanOptions struct {
	Policy          remover.Policy
	DryRun          bool
	JournalPath     string
	AllowUnreadable bool
}

// RunClean 按显式的删除策略删除报告中的冗余文件
func RunClean(fs afero.Fs, report *internal.Report, opts *CleanOptions) (*internal.RemovalSummary, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if report.Stats.Unreadable > 0 && !opts.AllowUnreadable {
		return nil, fmt.Errorf("%w: %d 个文件无法读取，检查后使用 --allow-unreadable 继续", ErrUnreadableFiles, report.Stats.Unreadable)
	}

	executor := remover.NewExecutor(fs)
	executor.DryRun = opts.DryRun

	if opts.DryRun {
		logger.Get().Info().Msg("=== 预览模式，不会实际删除文件 ===")
	}

	if opts.JournalPath != "" && !opts.DryRun {
		journal, err := progress.OpenJournal(opts.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("打开删除日志失败: %w", err)
		}
		defer func() {
			if err := journal.Close(); err != nil {
				logger.Get().Error().Err(err).Msg("关闭删除日志失败")
			}
		}()
		if n := journal.RemovedCount(); n > 0 {
			logger.Get().Info().Msgf("   删除日志中已有 %d 条删除记录", n)
		}
		executor.Journal = journal
	}

	return executor.Execute(report, opts.Policy)
}

// SaveRun 将报告和删除结果写入报告数据库，返回运行 ID
func SaveRun(dbPath string, report *internal.Report, summary *internal.RemovalSummary) (string, error) {
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	runID, err := db.SaveReport(report)
	if err != nil {
		return "", err
	}
	if summary != nil {
		if err := db.SaveRemoval(runID, summary); err != nil {
			return runID, err
		}
	}
	return runID, nil
}

// ListRuns 返回最近保存的运行
func ListRuns(dbPath string, limit int) ([]database.Run, error) {
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.ListRuns(limit)
}

// RunDetail 一次运行及其重复组和删除结果
type RunDetail struct {
	Run      *database.Run
	Groups   []database.Group
	Removals []database.Removal
}

func ShowRun(dbPath, runID string) (*RunDetail, error) {
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	run, err := db.GetRun(runID)
	if err != nil {
		return nil, err
	}
	groups, err := db.LoadGroups(runID)
	if err != nil {
		return nil, err
	}
	removals, err := db.LoadRemovals(runID)
	if err != nil {
		return nil, err
	}
	return &RunDetail{Run: run, Groups: groups, Removals: removals}, nil
}
