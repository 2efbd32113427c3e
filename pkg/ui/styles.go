// Package ui is the terminal front end: a transcript of the active
// conversation, an input bar and a conversation drawer, driven by bubbletea.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color palette (ANSI 256)
var (
	colorAccent    = lipgloss.Color("33")  // Bot bubbles, titles
	colorUser      = lipgloss.Color("35")  // User bubbles
	colorText      = lipgloss.Color("252") // Primary text
	colorTextMuted = lipgloss.Color("245") // Timestamps, hints
	colorWarning   = lipgloss.Color("214") // Confirmation prompts
	colorBorder    = lipgloss.Color("62")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorUser).
			Bold(true)

	botLabelStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(colorText).
			PaddingLeft(2)

	attachmentStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Italic(true).
			PaddingLeft(2)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Italic(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	drawerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)
)

// SetColor switches styled output on or off for the whole process. Tests and
// non-terminal output use plain ASCII.
func SetColor(enabled bool) {
	if !enabled {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}
