// Package remover 按删除策略删除报告中标记的重复文件。
//
// 删除不可撤销，只有调用方显式给出策略时才会执行。
package remover

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
)

// Target 一个待删除的路径
type Target struct {
	Record internal.FileRecord
	Class  string
}

// Plan 按报告顺序列出策略选中的删除目标，每个路径只出现一次。
// 每组的保留项从不成为目标，跨分区组按权威分区决定保留哪一边。
func Plan(report *internal.Report, policy Policy) []Target {
	var targets []Target
	seen := make(map[string]bool)
	add := func(record internal.FileRecord, class string, keep string) {
		if record.Path == keep || seen[record.Path] {
			return
		}
		seen[record.Path] = true
		targets = append(targets, Target{Record: record, Class: class})
	}

	if policy.IntraTrain {
		for _, g := range report.TrainInternal {
			for _, r := range g.Redundant {
				add(r, ClassIntraTrain, g.Canonical.Path)
			}
		}
	}
	if policy.IntraTest {
		for _, g := range report.TestInternal {
			for _, r := range g.Redundant {
				add(r, ClassIntraTest, g.Canonical.Path)
			}
		}
	}
	for _, g := range report.Cross {
		if policy.CrossFromTest {
			for _, r := range g.Redundant {
				add(r, ClassCrossFromTest, g.Canonical.Path)
			}
		}
		if policy.CrossFromTrain && len(g.Redundant) > 0 {
			// 以测试集为准，训练集中该摘要的所有副本都要删除
			for _, r := range trainCopies(g) {
				add(r, ClassCrossFromTrain, g.Redundant[0].Path)
			}
		}
	}
	return targets
}

// 旧报告没有 TrainCopies 时只能确定保留项
func trainCopies(g internal.DuplicateGroup) []internal.FileRecord {
	if len(g.TrainCopies) > 0 {
		return g.TrainCopies
	}
	return []internal.FileRecord{g.Canonical}
}

// Journal 记录每个删除结果
type Journal interface {
	Record(o internal.RemovalOutcome) error
}

// Executor 单线程删除器
type Executor struct {
	Fs      afero.Fs
	Journal Journal
	// DryRun 只列出目标，结果保持 Pending
	DryRun bool
}

func NewExecutor(fs afero.Fs) *Executor {
	return &Executor{Fs: fs}
}

// Execute 删除策略选中的每个冗余文件，每个路径最多尝试一次。
// 单个文件失败不会中断整批删除；文件已不存在时记为 AlreadyAbsent。
func (e *Executor) Execute(report *internal.Report, policy Policy) (*internal.RemovalSummary, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if report == nil {
		return nil, errors.New("report is nil")
	}

	targets := Plan(report, policy)
	summary := &internal.RemovalSummary{
		Outcomes:  make([]internal.RemovalOutcome, 0, len(targets)),
		StartTime: time.Now(),
	}
	logger.Get().Info().Msgf("🗑️  删除策略 %s，共 %d 个目标", policy, len(targets))

	processed := make(map[string]bool, len(targets))
	for _, target := range targets {
		if processed[target.Record.Path] {
			continue
		}
		processed[target.Record.Path] = true

		outcome := e.remove(target)
		summary.Record(outcome)

		if e.Journal != nil && !e.DryRun {
			if err := e.Journal.Record(outcome); err != nil {
				logger.Get().Warn().Err(err).Msgf("写入删除日志失败: %s", outcome.Path)
			}
		}
	}

	summary.EndTime = time.Now()
	logger.Get().Info().Msgf("✅ 删除完成: 删除 %d, 已不存在 %d, 失败 %d, 耗时 %v",
		summary.Removed, summary.AlreadyAbsent, summary.Failed, summary.EndTime.Sub(summary.StartTime))
	return summary, nil
}

func (e *Executor) remove(target Target) internal.RemovalOutcome {
	outcome := internal.RemovalOutcome{
		Path:      target.Record.Path,
		Partition: target.Record.Partition,
		Class:     target.Class,
		Size:      target.Record.Size,
		Outcome:   internal.Pending,
	}

	if e.DryRun {
		logger.Get().Info().Msgf("   [dry-run] %s", target.Record.Path)
		return outcome
	}

	err := e.Fs.Remove(target.Record.Path)
	switch {
	case err == nil:
		outcome.Outcome = internal.Removed
		logger.Get().Debug().Msgf("   已删除: %s", target.Record.Path)
	case errors.Is(err, os.ErrNotExist):
		outcome.Outcome = internal.AlreadyAbsent
		logger.Get().Debug().Msgf("   文件已不存在: %s", target.Record.Path)
	default:
		outcome.Outcome = internal.Failed
		outcome.Reason = fmt.Errorf("%w: %w", internal.ErrDeletionFailed, err).Error()
		logger.Get().Error().Err(err).Msgf("   删除失败: %s", target.Record.Path)
	}
	return outcome
}
