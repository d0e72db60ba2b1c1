package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moyu-x/dataset-dedup/pkg/config"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
)

var (
	cfgFile  string
	logLevel string
	logFile  string
	verbose  bool

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dataset-dedup",
	Short: "检测并清理训练集与测试集中内容相同的图片",
	Long: `Dataset Dedup 是一个命令行工具，用于发现图片数据集中内容完全相同的文件。

主要功能:
- 按类别目录收集训练集和测试集中的图片
- 先按文件大小过滤，再分块计算内容哈希
- 报告训练集内部、测试集内部以及两者之间的重复
- 按显式的删除策略删除冗余文件，可重复执行
- 将报告导出为 JSON/YAML 或保存到 SQLite 数据库`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		if verbose {
			level = "debug"
		}
		file := cfg.Logging.File
		if logFile != "" {
			file = logFile
		}
		return logger.Init(level, file)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件 (默认 $HOME/.dataset-dedup/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "日志级别")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "同时写入的日志文件")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
}
