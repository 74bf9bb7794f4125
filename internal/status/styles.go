package status

import "github.com/charmbracelet/lipgloss"

// Colors, all readable on dark and light terminals.
var (
	PrimaryColor = lipgloss.Color("#A78BFA") // Purple
	BusyColor    = lipgloss.Color("#10B981") // Green
	IdleColor    = lipgloss.Color("#9CA3AF") // Gray
	WarningColor = lipgloss.Color("#F59E0B") // Amber
	ErrorColor   = lipgloss.Color("#F87171") // Red
)

// styles holds the styles bound to one renderer, so that color output is
// decided by the writer the board draws to.
type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	busy     lipgloss.Style
	idle     lipgloss.Style
	warning  lipgloss.Style
	errStyle lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:    r.NewStyle().Bold(true).Foreground(PrimaryColor),
		label:    r.NewStyle().Foreground(IdleColor),
		busy:     r.NewStyle().Foreground(BusyColor),
		idle:     r.NewStyle().Foreground(IdleColor).Italic(true),
		warning:  r.NewStyle().Foreground(WarningColor),
		errStyle: r.NewStyle().Bold(true).Foreground(ErrorColor),
	}
}
