package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/internal/app"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
	"github.com/moyu-x/dataset-dedup/pkg/report"
	"github.com/moyu-x/dataset-dedup/pkg/resolver"
	"github.com/moyu-x/dataset-dedup/tui"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "检测重复文件并生成报告，不修改任何文件",
	Long: `收集训练集和测试集每个类别目录下的图片，按内容哈希分组，
报告训练集内部、测试集内部以及训练集与测试集之间的重复文件。`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	opts, err := scanOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	useTUI, _ := cmd.Flags().GetBool("tui")

	var result *app.ScanResult
	if useTUI {
		result, err = tui.RunScan(cmd.Context(), fs, opts)
	} else {
		result, err = app.RunScan(cmd.Context(), fs, opts)
	}
	if err != nil {
		return err
	}

	if err := publishReport(cmd, fs, result); err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		runID, err := app.SaveRun(databasePath(cmd), result.Report, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "运行 ID: %s\n", runID)
	}
	return nil
}

func databasePath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		return path
	}
	return cfg.Database.Path
}

// publishReport 打印摘要，指定 --export 时导出报告
func publishReport(cmd *cobra.Command, fs afero.Fs, result *app.ScanResult) error {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, report.Summary(result.Report))

	if show, _ := cmd.Flags().GetInt("show"); show != 0 {
		fmt.Fprint(out, report.Groups(result.Report, show))
	}

	if value, _ := cmd.Flags().GetString("export"); value != "" {
		exportPath := resolveExportPath(value, result.Report)
		if err := report.Export(fs, exportPath, result.Report); err != nil {
			return err
		}
		logger.Get().Info().Msgf("💾 报告已导出: %s", exportPath)
	}

	return nil
}

// 只写 --export 时导出到当前目录下带时间戳的 JSON 文件
const exportAuto = "auto"

func resolveExportPath(value string, rep *internal.Report) string {
	if value != exportAuto {
		return value
	}
	generatedAt := rep.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	return report.DefaultFileName(generatedAt)
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().String("train", "", "训练集根目录")
	cmd.Flags().String("test", "", "测试集根目录")
	cmd.Flags().StringSlice("categories", nil, "类别目录，按顺序遍历")
	cmd.Flags().StringSlice("extensions", nil, "识别的图片扩展名")
	cmd.Flags().String("algorithm", "", "哈希算法: xxhash, sha256, md5")
	cmd.Flags().Bool("no-prefilter", false, "关闭大小预过滤，计算每个文件的哈希")
	cmd.Flags().IntP("workers", "w", 0, "并发计算哈希的线程数")
	cmd.Flags().String("checks", "intra-train,intra-test,cross", "检测的重复类型")
	cmd.Flags().String("cache", "", "摘要缓存数据库路径")
	cmd.Flags().String("export", "", "导出报告，--export=<路径> 指定 .json/.yaml 文件，只写 --export 时生成 duplicates_report_<时间>.json")
	cmd.Flags().Lookup("export").NoOptDefVal = exportAuto
	cmd.Flags().Int("show", 20, "列出的重复组数量，-1 表示全部")
	cmd.Flags().Bool("save", false, "保存报告到数据库")
	cmd.Flags().String("db", "", "报告数据库路径")
}

func scanOptionsFromFlags(cmd *cobra.Command) (*app.ScanOptions, error) {
	opts := &app.ScanOptions{
		TrainDir:   cfg.Dataset.TrainDir,
		TestDir:    cfg.Dataset.TestDir,
		Categories: cfg.Dataset.Categories,
		Extensions: cfg.Dataset.Extensions,
		Algorithm:  cfg.Hashing.Algorithm,
		PreFilter:  cfg.Hashing.PreFilter,
		Workers:    cfg.Performance.Workers,
		CachePath:  cfg.Cache.Path,
	}

	flags := cmd.Flags()
	if flags.Changed("train") {
		opts.TrainDir, _ = flags.GetString("train")
	}
	if flags.Changed("test") {
		opts.TestDir, _ = flags.GetString("test")
	}
	if flags.Changed("categories") {
		opts.Categories, _ = flags.GetStringSlice("categories")
	}
	if flags.Changed("extensions") {
		opts.Extensions, _ = flags.GetStringSlice("extensions")
	}
	if flags.Changed("algorithm") {
		opts.Algorithm, _ = flags.GetString("algorithm")
	}
	if noPrefilter, _ := flags.GetBool("no-prefilter"); noPrefilter {
		opts.PreFilter = false
	}
	if flags.Changed("workers") {
		opts.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("cache") {
		opts.CachePath, _ = flags.GetString("cache")
	}

	if opts.TrainDir == "" || opts.TestDir == "" {
		return nil, fmt.Errorf("必须通过 --train/--test 或配置文件指定训练集和测试集目录")
	}

	checks, _ := flags.GetString("checks")
	parsed, err := parseChecks(checks)
	if err != nil {
		return nil, err
	}
	opts.Checks = parsed

	return opts, nil
}

func parseChecks(value string) (resolver.Options, error) {
	var opts resolver.Options
	for _, part := range strings.Split(value, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "intra-train":
			opts.IntraTrain = true
		case "intra-test":
			opts.IntraTest = true
		case "cross":
			opts.Cross = true
		case "all":
			opts = resolver.DefaultOptions()
		default:
			return resolver.Options{}, fmt.Errorf("未知的检测类型: %q", part)
		}
	}
	if !opts.IntraTrain && !opts.IntraTest && !opts.Cross {
		return resolver.Options{}, fmt.Errorf("--checks 至少需要一种检测类型")
	}
	return opts, nil
}

func init() {
	addScanFlags(scanCmd)
	scanCmd.Flags().Bool("tui", false, "使用交互式进度界面")

	rootCmd.AddCommand(scanCmd)
}
