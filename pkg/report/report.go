// Package report 导出检测报告并生成终端摘要。
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/moyu-x/dataset-dedup/internal"
)

// 导出格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DefaultFileName 未指定导出路径时使用的文件名
func DefaultFileName(generatedAt time.Time) string {
	return fmt.Sprintf("duplicates_report_%s.json", generatedAt.Format("20060102_150405"))
}

// FormatFromPath 根据扩展名选择导出格式，未知扩展名按 JSON 处理
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func Write(w io.Writer, report *internal.Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("编码 JSON 报告失败: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("编码 YAML 报告失败: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("不支持的导出格式: %s", format)
	}
	return nil
}

// Export 将报告写入文件，格式由扩展名决定
func Export(fs afero.Fs, path string, report *internal.Report) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建导出目录失败: %w", err)
		}
	}

	file, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("创建导出文件失败: %w", err)
	}

	if err := Write(file, report, FormatFromPath(path)); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Load 读取 Export 写出的报告，用于 clean 命令复用已有的检测结果
func Load(fs afero.Fs, path string) (*internal.Report, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("读取报告失败: %w", err)
	}

	var report internal.Report
	switch FormatFromPath(path) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &report)
	default:
		err = json.Unmarshal(data, &report)
	}
	if err != nil {
		return nil, fmt.Errorf("解析报告失败: %w", err)
	}
	return &report, nil
}

// Summary 生成可读的报告摘要
func Summary(report *internal.Report) string {
	var b strings.Builder
	s := report.Stats

	b.WriteString("📊 重复检测报告\n")
	if report.TrainDir != "" || report.TestDir != "" {
		fmt.Fprintf(&b, "   训练集: %s\n", report.TrainDir)
		fmt.Fprintf(&b, "   测试集: %s\n", report.TestDir)
	}
	fmt.Fprintf(&b, "   训练集文件: %s (唯一内容 %s)\n", humanize.Comma(int64(s.Train.Files)), humanize.Comma(int64(s.Train.Unique)))
	fmt.Fprintf(&b, "   测试集文件: %s (唯一内容 %s)\n", humanize.Comma(int64(s.Test.Files)), humanize.Comma(int64(s.Test.Unique)))
	if s.SameNamePairs > 0 {
		fmt.Fprintf(&b, "   📋 同名文件对: %d (仅供参考，以内容为准)\n", s.SameNamePairs)
	}
	fmt.Fprintf(&b, "   训练集内部重复: %d 组, %d 个冗余文件, 浪费 %s\n",
		s.Train.DuplicateGroups, s.Train.DuplicateFiles, humanize.IBytes(uint64(s.Train.WastedBytes)))
	fmt.Fprintf(&b, "   测试集内部重复: %d 组, %d 个冗余文件, 浪费 %s\n",
		s.Test.DuplicateGroups, s.Test.DuplicateFiles, humanize.IBytes(uint64(s.Test.WastedBytes)))
	fmt.Fprintf(&b, "   训练集与测试集重复: %d\n", s.CrossDuplicates)
	fmt.Fprintf(&b, "   总浪费空间: %s\n", humanize.IBytes(uint64(s.WastedBytes)))
	if s.Unreadable > 0 {
		fmt.Fprintf(&b, "   ⚠️  无法读取的文件: %d\n", s.Unreadable)
	}
	return b.String()
}

// Groups 列出前 limit 个重复组，limit <= 0 表示全部
func Groups(report *internal.Report, limit int) string {
	var b strings.Builder
	groups := report.Groups()
	for i, g := range groups {
		if limit > 0 && i >= limit {
			fmt.Fprintf(&b, "   ... 还有 %d 组\n", len(groups)-limit)
			break
		}
		fmt.Fprintf(&b, "   [%s] 保留 %s\n", g.Kind, g.Canonical.Path)
		for _, r := range g.Redundant {
			fmt.Fprintf(&b, "      - %s\n", r.Path)
		}
	}
	return b.String()
}

// RemovalSummary 生成删除结果摘要
func RemovalSummary(summary *internal.RemovalSummary) string {
	var b strings.Builder
	b.WriteString("🗑️  删除结果\n")
	fmt.Fprintf(&b, "   已删除: %d (释放 %s)\n", summary.Removed, humanize.IBytes(uint64(summary.FreedBytes)))
	fmt.Fprintf(&b, "   已不存在: %d\n", summary.AlreadyAbsent)
	fmt.Fprintf(&b, "   失败: %d\n", summary.Failed)
	for _, o := range summary.Outcomes {
		if o.Outcome == internal.Failed {
			fmt.Fprintf(&b, "      ❌ %s: %s\n", o.Path, o.Reason)
		}
	}
	if !summary.EndTime.IsZero() {
		fmt.Fprintf(&b, "   耗时: %v\n", summary.EndTime.Sub(summary.StartTime))
	}
	return b.String()
}
