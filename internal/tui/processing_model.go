package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// Messages the export pipeline sends into the processing screen.
type (
	// StepAdvanceMsg completes the current step and starts the next.
	StepAdvanceMsg struct{ Skip bool }
	// StepFailMsg fails the current step and ends the program.
	StepFailMsg struct{ Err error }
	// PercentMsg updates the encode progress bar, 0 to 1.
	PercentMsg float64
	// ProcessingDoneMsg completes the run.
	ProcessingDoneMsg struct{}
)

// ProcessingModel is the bubbletea model for the export screen. The pipeline
// drives it by sending messages through the running program.
type ProcessingModel struct {
	state  *ProcessingState
	bar    progress.Model
	width  int
	height int
	frame  int
	done   bool
}

// NewProcessingModel creates the export screen model.
func NewProcessingModel() *ProcessingModel {
	return &ProcessingModel{
		state: NewProcessingState(),
		bar:   progress.New(progress.WithDefaultGradient()),
	}
}

// State exposes the step state for assertions and callers.
func (m *ProcessingModel) State() *ProcessingState {
	return m.state
}

func (m *ProcessingModel) Init() tea.Cmd {
	m.state.Start()
	return processingTickCmd()
}

func (m *ProcessingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width / 2
		return m, nil

	case processingTickMsg:
		m.frame++
		if m.done {
			return m, tea.Quit
		}
		return m, processingTickCmd()

	case StepAdvanceMsg:
		if msg.Skip {
			m.state.SkipStep()
		} else {
			m.state.NextStep()
		}
		return m, nil

	case PercentMsg:
		m.state.Percent = float64(msg)
		return m, nil

	case StepFailMsg:
		m.state.FailStep(msg.Err)
		m.done = true
		return m, tea.Quit

	case ProcessingDoneMsg:
		m.state.Complete()
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *ProcessingModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	return RenderProcessingView(m.state, m.bar, m.width, m.height, m.frame)
}
