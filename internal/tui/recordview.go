package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/framecast/framecast/internal/models"
)

// RecordingModel is the live recording screen: blinking indicator, elapsed
// time against the ceiling, and the microphone level meter.
type RecordingModel struct {
	width   int
	height  int
	blinkOn bool

	tier        models.QualityTier
	orientation models.Orientation
	maxDuration time.Duration
	started     time.Time

	// level is polled each tick; observational only.
	level func() float64
	meter progress.Model

	stopped bool
}

type recordTickMsg struct{}

// NewRecordingModel creates the recording screen. level may be nil when the
// session has no audio.
func NewRecordingModel(tier models.QualityTier, o models.Orientation, maxDuration time.Duration, level func() float64) *RecordingModel {
	return &RecordingModel{
		tier:        tier,
		orientation: o,
		maxDuration: maxDuration,
		level:       level,
		meter:       progress.New(progress.WithSolidFill(string(ColorGreen))),
	}
}

// Stopped reports whether the user asked to stop.
func (m *RecordingModel) Stopped() bool {
	return m.stopped
}

func (m *RecordingModel) Init() tea.Cmd {
	m.started = time.Now()
	return recordTickCmd()
}

func recordTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return recordTickMsg{}
	})
}

func (m *RecordingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.meter.Width = msg.Width / 3
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", " ", "enter", "ctrl+c":
			m.stopped = true
			return m, tea.Quit
		}
		return m, nil

	case recordTickMsg:
		m.blinkOn = !m.blinkOn
		if m.maxDuration > 0 && time.Since(m.started) >= m.maxDuration {
			return m, tea.Quit
		}
		return m, recordTickCmd()
	}

	return m, nil
}

func (m *RecordingModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	dot := "  "
	if m.blinkOn {
		dot = lipgloss.NewStyle().Foreground(ColorRed).Bold(true).Render("● ")
	}
	header := dot + lipgloss.NewStyle().Foreground(ColorWhite).Bold(true).Render("REC")

	elapsed := time.Since(m.started).Round(time.Second)
	timeLine := lipgloss.NewStyle().Foreground(ColorWhite).Render(elapsed.String())
	if m.maxDuration > 0 {
		remaining := m.maxDuration - elapsed
		if remaining < 0 {
			remaining = 0
		}
		warn := lipgloss.NewStyle().Foreground(ColorGray)
		if remaining <= 10*time.Second {
			warn = warn.Foreground(ColorOrange)
		}
		timeLine += warn.Render(fmt.Sprintf("  (%s left)", remaining.Round(time.Second)))
	}

	info := lipgloss.NewStyle().Foreground(ColorGray).Render(
		fmt.Sprintf("%s · %s", m.tier, m.orientation))

	var meterLine string
	if m.level != nil {
		meterLine = lipgloss.NewStyle().Foreground(ColorGray).Render("mic ") +
			m.meter.ViewAs(m.level())
	} else {
		meterLine = lipgloss.NewStyle().Foreground(ColorGray).Italic(true).Render("no audio")
	}

	hint := lipgloss.NewStyle().Foreground(ColorGray).Render("Press any key to stop")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		header,
		"",
		timeLine,
		info,
		"",
		meterLine,
		"",
		hint,
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}

// ShowRecording runs the recording screen until the user stops or the
// ceiling passes. It returns true when the user asked to stop, false when
// the screen ended on its own.
func ShowRecording(tier models.QualityTier, o models.Orientation, maxDuration time.Duration, level func() float64) (bool, error) {
	model := NewRecordingModel(tier, o, maxDuration, level)
	p := tea.NewProgram(model, tea.WithAltScreen())

	out, err := p.Run()
	if err != nil {
		return false, err
	}
	if m, ok := out.(*RecordingModel); ok {
		return m.Stopped(), nil
	}
	return false, nil
}
