package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProcessingStep represents a single export pipeline step
type ProcessingStep struct {
	Name      string
	Status    StepStatus
	StartTime time.Time
	EndTime   time.Time
}

// StepStatus represents the status of a processing step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// ProcessingState holds the state of all export steps
type ProcessingState struct {
	Steps        []ProcessingStep
	CurrentStep  int
	IsProcessing bool
	StartTime    time.Time
	Error        error

	// Percent of the encode step, fed by the frame counter.
	Percent float64
}

// NewProcessingState creates the step list for a file export
func NewProcessingState() *ProcessingState {
	return &ProcessingState{
		Steps: []ProcessingStep{
			{Name: "Probing media", Status: StepPending},
			{Name: "Loading campaign overlay", Status: StepPending},
			{Name: "Compositing frames", Status: StepPending},
			{Name: "Encoding", Status: StepPending},
			{Name: "Delivering artifact", Status: StepPending},
		},
		CurrentStep:  -1,
		IsProcessing: false,
	}
}

// SetStepByIndex directly sets a step's status by index
func (p *ProcessingState) SetStepByIndex(index int, status StepStatus) {
	if index >= 0 && index < len(p.Steps) {
		if status == StepRunning {
			p.Steps[index].StartTime = time.Now()
			p.CurrentStep = index
		} else if status == StepComplete || status == StepSkipped || status == StepFailed {
			p.Steps[index].EndTime = time.Now()
		}
		p.Steps[index].Status = status
	}
}

// Start begins the processing
func (p *ProcessingState) Start() {
	p.IsProcessing = true
	p.StartTime = time.Now()
	p.CurrentStep = 0
	if len(p.Steps) > 0 {
		p.Steps[0].Status = StepRunning
		p.Steps[0].StartTime = time.Now()
	}
}

// NextStep advances to the next step
func (p *ProcessingState) NextStep() {
	if p.CurrentStep >= 0 && p.CurrentStep < len(p.Steps) {
		p.Steps[p.CurrentStep].Status = StepComplete
		p.Steps[p.CurrentStep].EndTime = time.Now()
	}
	p.CurrentStep++
	if p.CurrentStep < len(p.Steps) {
		p.Steps[p.CurrentStep].Status = StepRunning
		p.Steps[p.CurrentStep].StartTime = time.Now()
	}
}

// SkipStep marks current step as skipped and advances
func (p *ProcessingState) SkipStep() {
	if p.CurrentStep >= 0 && p.CurrentStep < len(p.Steps) {
		p.Steps[p.CurrentStep].Status = StepSkipped
		p.Steps[p.CurrentStep].EndTime = time.Now()
	}
	p.CurrentStep++
	if p.CurrentStep < len(p.Steps) {
		p.Steps[p.CurrentStep].Status = StepRunning
		p.Steps[p.CurrentStep].StartTime = time.Now()
	}
}

// FailStep marks current step as failed
func (p *ProcessingState) FailStep(err error) {
	if p.CurrentStep >= 0 && p.CurrentStep < len(p.Steps) {
		p.Steps[p.CurrentStep].Status = StepFailed
		p.Steps[p.CurrentStep].EndTime = time.Now()
	}
	p.Error = err
}

// Complete marks processing as complete
func (p *ProcessingState) Complete() {
	if p.CurrentStep >= 0 && p.CurrentStep < len(p.Steps) {
		p.Steps[p.CurrentStep].Status = StepComplete
		p.Steps[p.CurrentStep].EndTime = time.Now()
	}
	p.IsProcessing = false
}

// Reset resets the processing state
func (p *ProcessingState) Reset() {
	for i := range p.Steps {
		p.Steps[i].Status = StepPending
		p.Steps[i].StartTime = time.Time{}
		p.Steps[i].EndTime = time.Time{}
	}
	p.CurrentStep = -1
	p.IsProcessing = false
	p.Error = nil
	p.Percent = 0
}

type processingTickMsg struct{}

// processingTickCmd ticks the spinner animation
func processingTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return processingTickMsg{}
	})
}

// Donut animation frames
var donutFrames = []string{
	"◐", "◓", "◑", "◒",
}

// RenderProcessingView renders the export steps with spinner indicators and
// the encode progress bar when a percent is known.
func RenderProcessingView(state *ProcessingState, bar progress.Model, width, height, frame int) string {
	if state == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorTeal).
		MarginBottom(1)
	title := titleStyle.Render("Exporting...")

	elapsed := time.Since(state.StartTime).Round(time.Second)
	timeStyle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true)
	elapsedStr := timeStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed))

	var steps []string
	for i, step := range state.Steps {
		steps = append(steps, renderStepLine(step, i == state.CurrentStep, frame))
	}
	stepsContent := strings.Join(steps, "\n")

	var percentBar string
	if state.Percent > 0 {
		percentBar = bar.ViewAs(state.Percent)
	}

	var statusMsg string
	statusStyle := lipgloss.NewStyle().
		MarginTop(1).
		Foreground(ColorGray)

	if state.Error != nil {
		statusStyle = statusStyle.Foreground(ColorRed)
		statusMsg = statusStyle.Render(fmt.Sprintf("Error: %v", state.Error))
	} else if !state.IsProcessing {
		statusStyle = statusStyle.Foreground(ColorGreen)
		statusMsg = statusStyle.Render("Export complete!")
	} else {
		statusMsg = statusStyle.Render("Please wait...")
	}

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		title,
		elapsedStr,
		"",
		stepsContent,
		percentBar,
		statusMsg,
	)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}

// renderStepLine renders a single step with its indicator
func renderStepLine(step ProcessingStep, isCurrent bool, frame int) string {
	var indicator string
	var nameStyle lipgloss.Style

	switch step.Status {
	case StepPending:
		indicator = lipgloss.NewStyle().Foreground(ColorGray).Render("○")
		nameStyle = lipgloss.NewStyle().Foreground(ColorGray)

	case StepRunning:
		donutStyle := lipgloss.NewStyle().Foreground(ColorTeal).Bold(true)
		indicator = donutStyle.Render(donutFrames[frame%len(donutFrames)])
		nameStyle = lipgloss.NewStyle().Foreground(ColorWhite).Bold(true)

	case StepComplete:
		indicator = lipgloss.NewStyle().Foreground(ColorGreen).Render("●")
		nameStyle = lipgloss.NewStyle().Foreground(ColorGreen)

	case StepFailed:
		indicator = lipgloss.NewStyle().Foreground(ColorRed).Render("✗")
		nameStyle = lipgloss.NewStyle().Foreground(ColorRed)

	case StepSkipped:
		indicator = lipgloss.NewStyle().Foreground(ColorGray).Render("○")
		nameStyle = lipgloss.NewStyle().Foreground(ColorGray).Strikethrough(true)
	}

	var duration string
	if step.Status == StepComplete || step.Status == StepFailed {
		d := step.EndTime.Sub(step.StartTime).Round(100 * time.Millisecond)
		durationStyle := lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
		duration = durationStyle.Render(fmt.Sprintf(" (%s)", d))
	}

	return fmt.Sprintf("  %s %s%s", indicator, nameStyle.Render(step.Name), duration)
}
