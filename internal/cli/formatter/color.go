package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tempus/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// PhaseColor returns the style for a Pomodoro phase.
func PhaseColor(phase domain.Phase) lipgloss.Style {
	switch phase {
	case domain.PhaseWork:
		return StyleRed
	case domain.PhaseShortBreak:
		return StyleGreen
	case domain.PhaseLongBreak:
		return StyleBlue
	default:
		return StyleDim
	}
}

// PhaseIndicator returns a colored phase tag such as "● FOCUS".
func PhaseIndicator(phase domain.Phase) string {
	switch phase {
	case domain.PhaseWork:
		return StyleRed.Render("● FOCUS")
	case domain.PhaseShortBreak:
		return StyleGreen.Render("● SHORT BREAK")
	case domain.PhaseLongBreak:
		return StyleBlue.Render("● LONG BREAK")
	default:
		return StyleDim.Render("● IDLE")
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}
