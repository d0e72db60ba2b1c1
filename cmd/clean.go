package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/internal/app"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
	"github.com/moyu-x/dataset-dedup/pkg/remover"
	"github.com/moyu-x/dataset-dedup/pkg/report"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "检测重复文件并按删除策略删除冗余副本",
	Long: `先执行与 scan 相同的检测，再按 --policy 删除冗余文件。

删除策略 (逗号分隔):
  intra-train       删除训练集内部重复组中的冗余文件
  intra-test        删除测试集内部重复组中的冗余文件
  cross-from-test   以训练集为准，删除测试集中与训练集相同的文件
  cross-from-train  以测试集为准，删除训练集中与测试集相同的全部文件
  test              cross-from-test + intra-test
  train             intra-train
  both              intra-train + intra-test + cross-from-test

cross-from-test 与 cross-from-train 不能同时使用，否则同一内容的所有副本都会被删除。

也可以通过 --report 使用 scan --export 导出的报告，跳过检测。
重复执行是安全的：已不存在的文件记为"已不存在"，不视为错误。`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	policyValue, _ := cmd.Flags().GetString("policy")
	policy, err := remover.ParsePolicy(policyValue)
	if err != nil {
		return fmt.Errorf("无效的删除策略: %w", err)
	}

	fs := afero.NewOsFs()

	var rep *internal.Report
	if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
		rep, err = report.Load(fs, reportPath)
		if err != nil {
			return err
		}
		logger.Get().Info().Msgf("使用已有报告: %s", reportPath)
		fmt.Fprint(cmd.OutOrStdout(), report.Summary(rep))
	} else {
		opts, err := scanOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		result, err := app.RunScan(cmd.Context(), fs, opts)
		if err != nil {
			return err
		}
		if err := publishReport(cmd, fs, result); err != nil {
			return err
		}
		rep = result.Report
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	journalPath, _ := cmd.Flags().GetString("journal")
	allowUnreadable, _ := cmd.Flags().GetBool("allow-unreadable")

	summary, err := app.RunClean(fs, rep, &app.CleanOptions{
		Policy:          policy,
		DryRun:          dryRun,
		JournalPath:     journalPath,
		AllowUnreadable: allowUnreadable,
	})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.RemovalSummary(summary))

	if save, _ := cmd.Flags().GetBool("save"); save && !dryRun {
		runID, err := app.SaveRun(databasePath(cmd), rep, summary)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "运行 ID: %s\n", runID)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d 个文件删除失败", internal.ErrDeletionFailed, summary.Failed)
	}
	return nil
}

func init() {
	addScanFlags(cleanCmd)
	cleanCmd.Flags().String("policy", "", "删除策略 (必需)")
	cleanCmd.Flags().String("report", "", "使用已导出的报告，不重新检测")
	cleanCmd.Flags().Bool("dry-run", false, "预览模式，只列出将被删除的文件")
	cleanCmd.Flags().String("journal", "", "删除日志文件路径")
	cleanCmd.Flags().Bool("allow-unreadable", false, "存在无法读取的文件时仍然删除")

	if err := cleanCmd.MarkFlagRequired("policy"); err != nil {
		fmt.Println("删除策略需要给出")
		return
	}

	rootCmd.AddCommand(cleanCmd)
}
