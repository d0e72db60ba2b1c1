package hasher

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
)

// Task 一个待计算摘要的文件，Index 为收集时的枚举序号。
// Probe 为 true 时只检查文件能否打开，不读取内容。
type Task struct {
	Index  int
	Record internal.FileRecord
	Probe  bool
}

type Result struct {
	Index  int
	Record internal.FileRecord
	Digest internal.Digest
	Err    error
}

// Pool 基于 ants 的有界哈希计算池。结果按完成顺序返回，调用方根据 Index 重新排序。
type Pool struct {
	fs      afero.Fs
	algo    Algorithm
	workers int
	tasks   chan Task
	results chan Result
	wg      sync.WaitGroup
	pool    *ants.Pool
	once    sync.Once
}

func NewPool(fs afero.Fs, algo Algorithm, workers int) *Pool {
	if workers <= 0 {
		workers = internal.DefaultWorkers
	}
	logger.Get().Debug().Msgf("创建哈希计算池，工作线程数: %d", workers)
	return &Pool{
		fs:      fs,
		algo:    algo,
		workers: workers,
		tasks:   make(chan Task, internal.DefaultBufferSize),
		results: make(chan Result, internal.DefaultBufferSize),
	}
}

func (p *Pool) Start() error {
	var err error
	p.pool, err = ants.NewPool(p.workers)
	if err != nil {
		logger.Get().Error().Err(err).Msg("创建 goroutine 池失败")
		return fmt.Errorf("创建 goroutine 池失败: %w", err)
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		if err := p.pool.Submit(p.worker); err != nil {
			p.wg.Done()
			return fmt.Errorf("启动工作线程失败: %w", err)
		}
	}
	return nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		var (
			digest internal.Digest
			err    error
		)
		if task.Probe {
			err = Probe(p.fs, task.Record.Path)
		} else {
			digest, err = Calculate(p.fs, task.Record.Path, p.algo)
		}
		p.results <- Result{
			Index:  task.Index,
			Record: task.Record,
			Digest: digest,
			Err:    err,
		}
	}
}

// AddTask 派发一个任务，ctx 结束时放弃派发并返回 ctx 的错误
func (p *Pool) AddTask(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close 停止接收任务，等待所有工作线程退出后关闭结果通道
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.tasks)
		p.wg.Wait()
		if p.pool != nil {
			p.pool.Release()
		}
		close(p.results)
	})
}

// Run 提交全部任务并收集结果。ctx 结束后停止派发，
// 尚未派发的任务作为读取失败返回。
func (p *Pool) Run(ctx context.Context, tasks []Task, onResult func(Result)) ([]Result, error) {
	if err := p.Start(); err != nil {
		p.Close()
		return nil, err
	}

	go func() {
		defer p.Close()
		for i, task := range tasks {
			if err := p.AddTask(ctx, task); err == nil {
				continue
			}

			logger.Get().Warn().Msgf("哈希任务被中止，剩余 %d 个文件未处理", len(tasks)-i)
			for _, rest := range tasks[i:] {
				p.results <- Result{
					Index:  rest.Index,
					Record: rest.Record,
					Err:    fmt.Errorf("%w: %w", internal.ErrFileUnreadable, ctx.Err()),
				}
			}
			return
		}
	}()

	results := make([]Result, 0, len(tasks))
	for result := range p.Results() {
		if onResult != nil {
			onResult(result)
		}
		results = append(results, result)
	}

	return results, nil
}
