package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/framecast/framecast/internal/beep"
)

// Big segment-style digit patterns (7-segment style)
// Each digit is 7 lines tall
var bigDigits = map[rune][]string{
	'5': {
		" ███████ ",
		" █       ",
		" █       ",
		" ███████ ",
		"       █ ",
		"       █ ",
		" ███████ ",
	},
	'4': {
		" █     █ ",
		" █     █ ",
		" █     █ ",
		" ███████ ",
		"       █ ",
		"       █ ",
		"       █ ",
	},
	'3': {
		" ███████ ",
		"       █ ",
		"       █ ",
		" ███████ ",
		"       █ ",
		"       █ ",
		" ███████ ",
	},
	'2': {
		" ███████ ",
		"       █ ",
		"       █ ",
		" ███████ ",
		" █       ",
		" █       ",
		" ███████ ",
	},
	'1': {
		"    █    ",
		"   ██    ",
		"    █    ",
		"    █    ",
		"    █    ",
		"    █    ",
		"   ███   ",
	},
	'0': {
		" ███████ ",
		" █     █ ",
		" █     █ ",
		" █     █ ",
		" █     █ ",
		" █     █ ",
		" ███████ ",
	},
}

// "GO!" in big letters
var bigGO = []string{
	"  ██████   ██████  ██ ",
	" ██       ██    ██ ██ ",
	" ██   ███ ██    ██ ██ ",
	" ██    ██ ██    ██ ██ ",
	" ██    ██ ██    ██    ",
	"  ██████   ██████  ██ ",
}

// CountdownModel represents the countdown screen state
type CountdownModel struct {
	width     int
	height    int
	count     int
	done      bool
	cancelled bool
}

type countdownTickMsg struct{}

// NewCountdownModel creates a countdown starting at seconds. Counts over 5
// are clamped; there are only so many beep tones.
func NewCountdownModel(seconds int) *CountdownModel {
	if seconds < 1 {
		seconds = 3
	}
	if seconds > 5 {
		seconds = 5
	}
	return &CountdownModel{count: seconds}
}

// Init plays the first beep and starts ticking
func (c *CountdownModel) Init() tea.Cmd {
	go beep.Play(c.count)
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return countdownTickMsg{}
	})
}

// Update handles messages for the countdown
func (c *CountdownModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width = msg.Width
		c.height = msg.Height
		return c, nil

	case tea.KeyMsg:
		// Allow cancelling countdown with Escape or q
		if msg.String() == "esc" || msg.String() == "q" {
			c.cancelled = true
			c.done = true
			return c, tea.Quit
		}
		return c, nil

	case countdownTickMsg:
		c.count--

		if c.count < 0 {
			c.done = true
			return c, tea.Quit
		}

		// Beep for every remaining count, not for 0/GO
		if c.count > 0 {
			go beep.Play(c.count)
		}

		return c, tea.Tick(time.Second, func(t time.Time) tea.Msg {
			return countdownTickMsg{}
		})
	}

	return c, nil
}

// View renders the countdown display
func (c *CountdownModel) View() string {
	if c.width == 0 || c.height == 0 {
		return ""
	}

	var bigText []string
	var color lipgloss.Color

	if c.count > 0 {
		bigText = bigDigits[rune('0'+c.count)]
		// Orange to red as the count approaches zero
		switch {
		case c.count >= 3:
			color = ColorOrange
		case c.count == 2:
			color = lipgloss.Color("#FF8C00")
		default:
			color = ColorRed
		}
	} else {
		bigText = bigGO
		color = ColorGreen
	}

	digitStyle := lipgloss.NewStyle().
		Foreground(color).
		Bold(true)

	var lines []string
	for _, line := range bigText {
		lines = append(lines, digitStyle.Render(line))
	}
	bigDisplay := strings.Join(lines, "\n")

	subtitleStyle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true)

	var subtitle string
	if c.count > 0 {
		subtitle = subtitleStyle.Render("Get ready... Recording starts soon!")
	} else {
		subtitle = subtitleStyle.Render("Recording!")
	}

	hint := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render("Press ESC to cancel")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		bigDisplay,
		"",
		subtitle,
		"",
		hint,
	)

	return lipgloss.Place(
		c.width,
		c.height,
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}

// IsDone returns whether the countdown is complete
func (c *CountdownModel) IsDone() bool {
	return c.done
}

// IsCancelled returns whether the countdown was cancelled
func (c *CountdownModel) IsCancelled() bool {
	return c.cancelled
}

// ShowCountdown displays the countdown and returns true if completed
// (not cancelled)
func ShowCountdown(seconds int) (bool, error) {
	countdown := NewCountdownModel(seconds)
	p := tea.NewProgram(countdown, tea.WithAltScreen())

	model, err := p.Run()
	if err != nil {
		return false, err
	}

	if m, ok := model.(*CountdownModel); ok {
		return !m.IsCancelled(), nil
	}

	return true, nil
}
