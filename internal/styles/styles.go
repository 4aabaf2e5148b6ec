// Package styles holds the lipgloss palette used by the command line output.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors meet WCAG AA contrast on dark terminals
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)

	Title      = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1)
	Subtitle   = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)
	Label      = lipgloss.NewStyle().Bold(true)
	ContentBox = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(BorderColor).Padding(0, 1)
)

// OutcomeColor returns the color for a negotiation outcome.
func OutcomeColor(outcome string) lipgloss.Color {
	switch outcome {
	case "winner":
		return SecondaryColor
	case "loser":
		return BlueColor
	case "no-agreement":
		return WarningColor
	case "error":
		return ErrorColor
	default:
		return MutedColor
	}
}

// OutcomeIcon returns a one-rune marker for an outcome.
func OutcomeIcon(outcome string) string {
	switch outcome {
	case "winner":
		return "✓"
	case "loser":
		return "↘"
	case "no-agreement":
		return "○"
	case "error":
		return "✗"
	default:
		return "●"
	}
}

// Outcome renders an outcome with its icon and color.
func Outcome(outcome string) string {
	return lipgloss.NewStyle().
		Foreground(OutcomeColor(outcome)).
		Bold(true).
		Render(OutcomeIcon(outcome) + " " + outcome)
}
