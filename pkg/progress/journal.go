package progress

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
)

const (
	JournalFileName = ".dataset-dedup-removals.log"
)

// Journal 删除操作的追加日志，每行 "<结果>\t<路径>"
type Journal struct {
	filePath string
	file     *os.File
	writer   *bufio.Writer
	removed  map[string]bool // 内存缓存，加速查找
	mu       sync.Mutex
	written  int
}

func OpenJournal(filePath string) (*Journal, error) {
	journal := &Journal{
		filePath: filePath,
		removed:  make(map[string]bool),
	}

	// 加载已存在的记录到内存
	if err := journal.load(); err != nil && !os.IsNotExist(err) {
		logger.Get().Warn().Err(err).Msg("加载删除日志失败，将从零开始")
		journal.removed = make(map[string]bool)
	}

	// 打开或创建文件（追加模式）
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	journal.file = file
	journal.writer = bufio.NewWriter(file)

	logger.Get().Debug().Msgf("删除日志: %s (已有 %d 条删除记录)", filePath, len(journal.removed))
	return journal, nil
}

func (j *Journal) load() error {
	data, err := os.ReadFile(j.filePath)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		outcome, path, ok := strings.Cut(scanner.Text(), "\t")
		if !ok || path == "" {
			continue
		}
		if outcome == internal.Removed.String() {
			j.removed[path] = true
		}
	}
	return scanner.Err()
}

// Record 写入一条删除结果
func (j *Journal) Record(o internal.RemovalOutcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := fmt.Fprintf(j.writer, "%s\t%s\n", o.Outcome, o.Path); err != nil {
		return err
	}
	if o.Outcome == internal.Removed {
		j.removed[o.Path] = true
	}

	// 每100条刷新一次
	j.written++
	if j.written%100 == 0 {
		if err := j.writer.Flush(); err != nil {
			logger.Get().Error().Err(err).Msg("刷新删除日志失败")
		}
	}
	return nil
}

// WasRemoved 判断路径是否曾被删除
func (j *Journal) WasRemoved(path string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.removed[path]
}

// RemovedCount 获取日志中的删除数
func (j *Journal) RemovedCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.removed)
}

// Flush 强制刷新到磁盘
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writer.Flush()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Close()
}
