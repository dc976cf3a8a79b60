// Package styles holds the lipgloss styles shared by the console presenter
// and the TUI.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	AccentColor    = lipgloss.Color("#60A5FA") // Blue

	Primary   lipgloss.Style
	Secondary lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Accent    lipgloss.Style

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Header     lipgloss.Style
	ContentBox lipgloss.Style
	StatusBar  lipgloss.Style
	HelpBar    lipgloss.Style
	HelpKey    lipgloss.Style
	ErrorMsg   lipgloss.Style
	SuccessMsg lipgloss.Style
	WarningMsg lipgloss.Style
)

func init() {
	Rebuild()
}

// Rebuild recomputes every style from the current color variables. Call it
// after changing a color, e.g. through ThemeFile.Apply.
func Rebuild() {
	Primary = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning = lipgloss.NewStyle().Foreground(WarningColor)
	Error = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted = lipgloss.NewStyle().Foreground(MutedColor)
	Accent = lipgloss.NewStyle().Foreground(AccentColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor).
		MarginBottom(1)

	ContentBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)

	StatusBar = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(SurfaceColor).
		Padding(0, 1)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	ErrorMsg = lipgloss.NewStyle().
		Foreground(ErrorColor).
		Bold(true)

	SuccessMsg = lipgloss.NewStyle().
		Foreground(SecondaryColor).
		Bold(true)

	WarningMsg = lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
}

// StatusColor returns the color for a phase attempt state.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "producing", "reviewing", "judging":
		return AccentColor
	case "accepted", "completed":
		return SecondaryColor
	case "rejected", "retrying":
		return WarningColor
	case "failed", "canceled":
		return ErrorColor
	default:
		return MutedColor
	}
}

// StatusIcon returns an icon for a phase attempt state.
func StatusIcon(status string) string {
	switch status {
	case "pending":
		return "○"
	case "producing":
		return "✎"
	case "reviewing":
		return "◎"
	case "judging":
		return "⚖"
	case "accepted", "completed":
		return "✓"
	case "rejected", "retrying":
		return "↻"
	case "failed":
		return "✗"
	case "canceled":
		return "⏹"
	default:
		return "●"
	}
}

// Status renders icon and label in the state's color.
func Status(status string) string {
	return lipgloss.NewStyle().Foreground(StatusColor(status)).Render(StatusIcon(status) + " " + status)
}
