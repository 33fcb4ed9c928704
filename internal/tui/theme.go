package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette helpers. The grid must stay readable on both light and dark
// terminals, so colors are adaptive and "faint" styling is only applied on
// dark backgrounds (faint on light terminals often becomes illegible).

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorAccent     lipgloss.TerminalColor = ac("27", "75")
	colorDanger     lipgloss.TerminalColor = ac("160", "203")
	colorOK         lipgloss.TerminalColor = ac("28", "77")
	colorHeaderFg   lipgloss.TerminalColor = ac("240", "245")
	colorDropMark   lipgloss.TerminalColor = ac("27", "75")
	colorEditBg     lipgloss.TerminalColor = ac("254", "234")
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(colorHeaderFg).Bold(true)
	normalStyle = lipgloss.NewStyle()
	selectedStyle = lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	statusStyle   = lipgloss.NewStyle().Foreground(colorHeaderFg)
	behindStyle   = lipgloss.NewStyle().Foreground(colorDanger)
	aheadStyle    = lipgloss.NewStyle().Foreground(colorOK)
	dropMarkStyle = lipgloss.NewStyle().Foreground(colorDropMark).Bold(true)
	draggedStyle  = lipgloss.NewStyle().Foreground(colorAccent).Italic(true)
	editStyle     = lipgloss.NewStyle().Background(colorEditBg)
	footerStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

// hasDarkBackground is queried once; termenv caches the terminal probe.
var hasDarkBackground = termenv.HasDarkBackground()
