// Package styles holds the lipgloss colors and styles shared by the rv
// listing commands and the inbox browser.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Section headers in listings ("Messages:", "Files:")
	SectionHeader = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)

	// Entry parts
	Index  = lipgloss.NewStyle().Foreground(MutedColor)
	Sender = lipgloss.NewStyle().Foreground(BlueColor)

	// Browser chrome
	Header     = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(BorderColor)
	Selected   = lipgloss.NewStyle().Bold(true).Foreground(TextColor)
	DetailBox  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(BorderColor).Padding(0, 1)
	HelpBar    = lipgloss.NewStyle().Foreground(MutedColor).MarginTop(1)
	HelpKey    = lipgloss.NewStyle().Bold(true).Foreground(SecondaryColor)
	ErrorMsg   = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	SuccessMsg = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
)

// KindColor returns the accent color for a mailbox entry kind.
func KindColor(kind string) lipgloss.Color {
	switch kind {
	case "message":
		return SecondaryColor
	case "file":
		return WarningColor
	default:
		return MutedColor
	}
}

// KindBadge renders a short fixed-width tag for an entry kind.
func KindBadge(kind string) string {
	label := "MSG "
	if kind == "file" {
		label = "FILE"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(KindColor(kind)).Render(label)
}
