package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/moyu-x/dataset-dedup/internal/app"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "列出保存的检测报告，或查看某次运行的详情",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	dbPath := databasePath(cmd)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		detail, err := app.ShowRun(dbPath, args[0])
		if err != nil {
			return err
		}

		run := detail.Run
		fmt.Fprintf(out, "运行 %s (%s)\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "   训练集: %s (%d 个文件)\n", run.TrainDir, run.TrainFiles)
		fmt.Fprintf(out, "   测试集: %s (%d 个文件)\n", run.TestDir, run.TestFiles)
		fmt.Fprintf(out, "   跨分区重复: %d, 浪费空间: %s\n", run.CrossDuplicates, humanize.IBytes(uint64(run.WastedBytes)))
		for _, g := range detail.Groups {
			fmt.Fprintf(out, "   [%s] 保留 %s\n", g.Kind, g.Canonical)
			for _, p := range g.RedundantPaths() {
				fmt.Fprintf(out, "      - %s\n", p)
			}
		}
		if len(detail.Removals) > 0 {
			fmt.Fprintf(out, "   删除记录: %d 条\n", len(detail.Removals))
			for _, r := range detail.Removals {
				fmt.Fprintf(out, "      %s\t%s\n", r.Outcome, r.Path)
			}
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := app.ListRuns(dbPath, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "没有保存的运行")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t时间\t训练集\t测试集\t跨分区重复\t浪费空间")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			run.ID,
			humanize.Time(run.CreatedAt),
			run.TrainDir,
			run.TestDir,
			run.CrossDuplicates,
			humanize.IBytes(uint64(run.WastedBytes)),
		)
	}
	return w.Flush()
}

func init() {
	runsCmd.Flags().Int("limit", 20, "最多列出的运行数")
	runsCmd.Flags().String("db", "", "报告数据库路径")

	rootCmd.AddCommand(runsCmd)
}
