package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the UI.
var (
	PrimaryColor   = lipgloss.Color("#7D56F4")
	SecondaryColor = lipgloss.Color("#5A5A8C")
	AccentColor    = lipgloss.Color("#F2B134")
	ErrorColor     = lipgloss.Color("#E05561")
	SuccessColor   = lipgloss.Color("#4FB477")
	MutedColor     = lipgloss.Color("#6C6C6C")
	SoftMutedColor = lipgloss.Color("#9A9A9A")
	TextColor      = lipgloss.Color("#E6E6E6")
	ModalBgColor   = lipgloss.Color("#1E1E2E")
)

var (
	BorderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(SecondaryColor)

	FocusedBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(PrimaryColor)

	ModalStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Background(ModalBgColor).
			Padding(1, 2)

	HelpStyle     = lipgloss.NewStyle().Foreground(SoftMutedColor)
	NormalStyle   = lipgloss.NewStyle().Foreground(TextColor)
	SelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)
	SubtitleStyle = lipgloss.NewStyle().Foreground(SoftMutedColor)
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	ErrorStyle    = lipgloss.NewStyle().Bold(true).Foreground(ErrorColor)
	SuccessStyle  = lipgloss.NewStyle().Foreground(SuccessColor)

	TableDimmedStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	TableHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(SecondaryColor)
	TableRowStyle      = lipgloss.NewStyle().Foreground(TextColor)
	TableSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)
)

// PaneStyle returns a style for a pane with optional focus.
func PaneStyle(width, height int, focused bool) lipgloss.Style {
	style := BorderStyle
	if focused {
		style = FocusedBorderStyle
	}
	return style.Width(max(width-2, 0)).Height(max(height-2, 0))
}
