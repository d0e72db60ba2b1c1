package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	Logger  *zerolog.Logger
	logFile *os.File
	mu      sync.Mutex
)

// Init 初始化 zerolog 日志
// level: 日志级别 ("trace", "debug", "info", "warn", "error")
// file: 日志文件路径，为空时仅输出到控制台
func Init(level string, file string) error {
	mu.Lock()
	defer mu.Unlock()

	logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}

	if file != "" {
		// 文件中保留 JSON 格式，控制台使用友好格式
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		if logFile != nil {
			logFile.Close()
		}
		logFile = f
		output = zerolog.MultiLevelWriter(output, f)
	}

	logger := zerolog.New(output).Level(logLevel).With().Timestamp().Logger()
	Logger = &logger
	return nil
}

// Use 使用外部提供的 logger，测试和 TUI 模式下用于重定向输出
func Use(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	Logger = &l
}

// Get 返回全局 logger 实例
// 如果 logger 未初始化，返回一个默认的 logger（输出到 /dev/null）
func Get() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if Logger == nil {
		logger := zerolog.New(io.Discard)
		Logger = &logger
	}
	return Logger
}

// Close 关闭日志文件
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
