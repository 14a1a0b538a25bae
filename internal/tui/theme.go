package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// Colors follow the Power BI palette, adjusted for light and dark terminals.
var (
	pbiTextColor = lipgloss.AdaptiveColor{Light: "#252423", Dark: "#f3f2f1"}
	pbiMuted     = lipgloss.AdaptiveColor{Light: "#605e5c", Dark: "#c8c6c4"}
	pbiBorder    = lipgloss.AdaptiveColor{Light: "#8a8886", Dark: "#c8c6c4"}
	pbiAccent    = lipgloss.AdaptiveColor{Light: "#a57f00", Dark: "#f2c811"}
	pbiDanger    = lipgloss.AdaptiveColor{Light: "#a4262c", Dark: "#f1707b"}
)

func pbiListStyles() list.Styles {
	s := list.DefaultStyles()

	s.TitleBar = lipgloss.NewStyle().Padding(0, 0, 1, 0)
	s.Title = lipgloss.NewStyle().Bold(true).Foreground(pbiTextColor).UnsetBackground()

	s.Spinner = lipgloss.NewStyle().Foreground(pbiMuted)

	s.FilterPrompt = lipgloss.NewStyle().Foreground(pbiAccent)
	s.FilterCursor = lipgloss.NewStyle().Foreground(pbiAccent)
	s.DefaultFilterCharacterMatch = lipgloss.NewStyle().Underline(true)

	s.StatusBar = lipgloss.NewStyle().Foreground(pbiMuted).Padding(0, 0, 1, 0)
	s.StatusEmpty = lipgloss.NewStyle().Foreground(pbiMuted)
	s.NoItems = lipgloss.NewStyle().Foreground(pbiMuted)

	return s
}

func pbiItemStyles() list.DefaultItemStyles {
	s := list.NewDefaultItemStyles()

	s.NormalTitle = lipgloss.NewStyle().Foreground(pbiTextColor).Padding(0, 0, 0, 2)
	s.NormalDesc = lipgloss.NewStyle().Foreground(pbiMuted).Padding(0, 0, 0, 2)

	s.SelectedTitle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(pbiAccent).
		Foreground(pbiTextColor).
		Bold(true).
		Padding(0, 0, 0, 1)
	s.SelectedDesc = s.SelectedTitle.
		Bold(false).
		Foreground(pbiMuted)

	s.DimmedTitle = lipgloss.NewStyle().Foreground(pbiMuted).Padding(0, 0, 0, 2)
	s.DimmedDesc = lipgloss.NewStyle().Foreground(pbiBorder).Padding(0, 0, 0, 2)

	s.FilterMatch = lipgloss.NewStyle().Underline(true)
	return s
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(pbiTextColor)
	metaStyle    = lipgloss.NewStyle().Foreground(pbiMuted)
	accentStyle  = lipgloss.NewStyle().Foreground(pbiAccent)
	errorStyle   = lipgloss.NewStyle().Foreground(pbiDanger)
	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(pbiBorder).
			Padding(0, 1)
)
