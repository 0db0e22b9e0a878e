package tui

import "github.com/charmbracelet/lipgloss"

// Brand and status colors
var (
	ColorTeal   = lipgloss.Color("#2BB3A3")
	ColorOrange = lipgloss.Color("#FFA500")
	ColorRed    = lipgloss.Color("#FF4444")
	ColorGreen  = lipgloss.Color("#44FF44")
	ColorGray   = lipgloss.Color("#888888")
	ColorWhite  = lipgloss.Color("#FFFFFF")
)
