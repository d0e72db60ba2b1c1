package tui

import (
	"time"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/internal/app"
)

// 文件收集完成，开始计算哈希
type hashingStartedMsg struct {
	total int
}

type progressMsg internal.ProgressUpdate

type scanCompleteMsg struct {
	result *app.ScanResult
}

type errMsg struct {
	err error
}

type spinnerTickMsg time.Time
