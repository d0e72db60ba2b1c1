package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/moyu-x/dataset-dedup/pkg/logger"
)

func (m *model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return tea.Quit
		case "enter", "q", "esc":
			if m.state == StateComplete || m.state == StateFailed {
				return tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.progressBar.Width = msg.Width - 10

	case hashingStartedMsg:
		m.state = StateHashing
		m.totalFiles = msg.total
		return nil

	case progressMsg:
		m.processed = msg.Processed
		m.failed = msg.Failed
		m.currentFile = msg.CurrentFile
		if m.totalFiles > 0 {
			return m.progressBar.SetPercent(float64(m.processed) / float64(m.totalFiles))
		}
		return nil

	case scanCompleteMsg:
		m.state = StateComplete
		m.result = msg.result
		return m.progressBar.SetPercent(1)

	case errMsg:
		m.state = StateFailed
		m.err = msg.err
		logger.Get().Error().Err(msg.err).Msg("检测失败")
		return nil

	case spinnerTickMsg:
		if m.state == StateCollecting {
			m.spinner, _ = m.spinner.Update(m.spinner.Tick())
			return spinnerTick()
		}
		return nil

	case progress.FrameMsg:
		model, cmd := m.progressBar.Update(msg)
		m.progressBar = model.(progress.Model)
		return cmd
	}

	return nil
}

func spinnerTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}
