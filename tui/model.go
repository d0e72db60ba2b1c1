package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/moyu-x/dataset-dedup/internal/app"
)

type State int

const (
	StateCollecting State = iota
	StateHashing
	StateComplete
	StateFailed
)

type model struct {
	state       State
	trainDir    string
	testDir     string
	totalFiles  int
	processed   int
	failed      int
	currentFile string
	startTime   time.Time
	progressBar progress.Model
	spinner     spinner.Model
	result      *app.ScanResult
	err         error
}

func newModel(trainDir, testDir string) *model {
	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.PercentageStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Width(4)

	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		FPS:    time.Second / 10,
	}
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &model{
		state:       StateCollecting,
		trainDir:    trainDir,
		testDir:     testDir,
		startTime:   time.Now(),
		progressBar: progressBar,
		spinner:     s,
	}
}
