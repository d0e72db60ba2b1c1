package progress

import (
	"sync"
	"sync/atomic"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
)

// Counter 统计哈希进度，定期输出日志，并可选地向 TUI 推送进度更新
type Counter struct {
	total     int
	interval  int
	processed atomic.Int64
	failed    atomic.Int64

	mu      sync.Mutex
	updates chan internal.ProgressUpdate
	closed  bool
}

func NewCounter(total, interval int) *Counter {
	if interval <= 0 {
		interval = internal.ProgressInterval
	}
	return &Counter{
		total:    total,
		interval: interval,
	}
}

// Subscribe 返回进度更新通道。发送不会阻塞，通道满时丢弃更新。
func (c *Counter) Subscribe(buffer int) <-chan internal.ProgressUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updates == nil {
		c.updates = make(chan internal.ProgressUpdate, buffer)
	}
	return c.updates
}

// Observe 记录一个文件的处理结果
func (c *Counter) Observe(record internal.FileRecord, err error) {
	processed := int(c.processed.Add(1))
	failed := int(c.failed.Load())
	if err != nil {
		failed = int(c.failed.Add(1))
	}

	if processed%c.interval == 0 || processed == c.total {
		logger.Get().Info().Msgf("   哈希进度: %d/%d (失败 %d)", processed, c.total, failed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updates == nil || c.closed {
		return
	}
	select {
	case c.updates <- internal.ProgressUpdate{
		Partition:   record.Partition,
		Processed:   processed,
		Total:       c.total,
		Failed:      failed,
		CurrentFile: record.Path,
	}:
	default:
	}
}

func (c *Counter) Processed() int {
	return int(c.processed.Load())
}

func (c *Counter) Failed() int {
	return int(c.failed.Load())
}

func (c *Counter) Total() int {
	return c.total
}

// Close 关闭进度更新通道
func (c *Counter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updates != nil && !c.closed {
		close(c.updates)
	}
	c.closed = true
}
