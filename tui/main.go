package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/internal/app"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
	"github.com/moyu-x/dataset-dedup/pkg/progress"
)

var ErrAborted = errors.New("scan aborted")

type teaModel struct {
	m *model
}

func (tm teaModel) Init() tea.Cmd {
	return spinnerTick()
}

func (tm teaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return tm, tm.m.Update(msg)
}

func (tm teaModel) View() string {
	return tm.m.View()
}

// RunScan 在交互界面中执行检测，界面退出后返回检测结果
func RunScan(ctx context.Context, fs afero.Fs, opts *app.ScanOptions) (*app.ScanResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Get().Info().Msg("启动 TUI 界面")

	// 控制台日志会打乱界面，运行期间暂时关闭
	prev := *logger.Get()
	logger.Use(zerolog.Nop())
	defer logger.Use(prev)

	m := newModel(opts.TrainDir, opts.TestDir)
	p := tea.NewProgram(teaModel{m: m}, tea.WithAltScreen(), tea.WithContext(ctx))

	scanOpts := *opts
	scanOpts.OnProgress = func(counter *progress.Counter) {
		updates := counter.Subscribe(internal.DefaultBufferSize)
		p.Send(hashingStartedMsg{total: counter.Total()})
		go func() {
			for update := range updates {
				p.Send(progressMsg(update))
			}
		}()
	}

	go func() {
		result, err := app.RunScan(ctx, fs, &scanOpts)
		if err != nil {
			p.Send(errMsg{err: err})
			return
		}
		p.Send(scanCompleteMsg{result: result})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		prev.Error().Err(err).Msg("TUI 运行错误")
		return nil, err
	}

	switch {
	case m.err != nil:
		return nil, m.err
	case m.result == nil:
		return nil, ErrAborted
	}
	prev.Info().Msg("TUI 正常退出")
	return m.result, nil
}
