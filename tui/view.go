package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/moyu-x/dataset-dedup/pkg/report"
)

func (m *model) View() string {
	switch m.state {
	case StateCollecting:
		return m.collectingView()
	case StateHashing:
		return m.hashingView()
	case StateComplete:
		return m.completeView()
	case StateFailed:
		return m.failedView()
	default:
		return "未知状态"
	}
}

func (m *model) collectingView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🔍 正在收集文件...") + "\n\n")
	b.WriteString(m.spinner.View() + "  正在遍历类别目录\n")
	b.WriteString("  训练集: " + m.trainDir + "\n")
	b.WriteString("  测试集: " + m.testDir + "\n")

	return lipgloss.NewStyle().
		Padding(2).
		Render(b.String())
}

func (m *model) hashingView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🔄 正在计算文件哈希...") + "\n\n")

	b.WriteString(labelStyle.Render("处理进度：") + "\n")
	b.WriteString(m.progressBar.View() + "\n\n")

	b.WriteString(statsBoxStyle.Render(m.renderProgress()) + "\n\n")

	b.WriteString(labelStyle.Render("当前文件：") + "\n")
	b.WriteString(filePathStyle.Render(m.currentFile) + "\n\n")
	b.WriteString(hintStyle.Render("Ctrl+C 中止") + "\n")

	return lipgloss.NewStyle().
		Padding(2).
		Render(b.String())
}

func (m *model) completeView() string {
	var b strings.Builder

	b.WriteString(successTitleStyle.Render("✅ 检测完成！") + "\n\n")
	b.WriteString(statsBoxStyle.Render(m.renderFinalStats()) + "\n\n")

	b.WriteString(separatorStyle.Render(strings.Repeat("─", 60)) + "\n")
	b.WriteString(hintStyle.Render("按 Enter 或 q 退出并输出完整报告") + "\n")

	return lipgloss.NewStyle().
		Padding(2).
		Render(b.String())
}

func (m *model) failedView() string {
	var b strings.Builder

	b.WriteString(errorTitleStyle.Render("❌ 检测失败") + "\n\n")
	b.WriteString(fmt.Sprintf("  %v\n\n", m.err))
	b.WriteString(hintStyle.Render("按 Enter 或 q 退出") + "\n")

	return lipgloss.NewStyle().
		Padding(2).
		Render(b.String())
}

func (m *model) renderProgress() string {
	var b strings.Builder
	b.WriteString("📊 实时统计：\n\n")
	b.WriteString(fmt.Sprintf("  总文件数：    %s\n", humanize.Comma(int64(m.totalFiles))))
	b.WriteString(fmt.Sprintf("  已处理：      %s / %s\n", humanize.Comma(int64(m.processed)), humanize.Comma(int64(m.totalFiles))))
	b.WriteString(fmt.Sprintf("  读取失败：    %d\n", m.failed))
	b.WriteString(fmt.Sprintf("  已用时间：    %s\n", time.Since(m.startTime).Round(time.Second)))
	return b.String()
}

func (m *model) renderFinalStats() string {
	var b strings.Builder
	b.WriteString(report.Summary(m.result.Report))

	build := m.result.Build
	b.WriteString(fmt.Sprintf("\n  计算哈希 %d, 大小过滤跳过 %d, 缓存命中 %d\n", build.Hashed, build.Skipped, build.CacheHits))
	b.WriteString(fmt.Sprintf("  总耗时：%s\n", time.Since(m.startTime).Round(time.Millisecond)))
	return b.String()
}
