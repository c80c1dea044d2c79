// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the pane styles. It records the terminal's color capability
// so callers can pick a matching markdown style.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// PANES
	// ==========================================================================

	SidebarFocused lipgloss.Style
	SidebarBlurred lipgloss.Style
	SidebarTitle   lipgloss.Style

	CommandPane    lipgloss.Style
	CommandPrompt  lipgloss.Style
	CommandOutput  lipgloss.Style
	CommandFailed  lipgloss.Style
	CommandSuccess lipgloss.Style

	// ==========================================================================
	// SIDEBAR PARTS
	// ==========================================================================

	InputBox        lipgloss.Style
	InputBoxFocused lipgloss.Style
	ProviderBadge   lipgloss.Style
	Footer          lipgloss.Style
	WelcomeTitle    lipgloss.Style
	WelcomeSubtitle lipgloss.Style
	SuggestionCard  lipgloss.Style
	StatusLine      lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// MarkdownStyle returns the glamour style name matching the background.
func (t *Theme) MarkdownStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.SidebarFocused = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple)

	t.SidebarBlurred = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)

	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		Padding(0, 1)

	t.CommandPane = lipgloss.NewStyle().Padding(0, 1)
	t.CommandPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.CommandOutput = lipgloss.NewStyle().Foreground(TextPrimary)
	t.CommandFailed = lipgloss.NewStyle().Foreground(Rose)
	t.CommandSuccess = lipgloss.NewStyle().Foreground(Emerald)

	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(OverlayDim).
		Padding(0, 1)

	t.InputBoxFocused = t.InputBox.
		BorderForeground(Purple)

	t.ProviderBadge = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.Footer = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.WelcomeTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple).
		Align(lipgloss.Center)

	t.WelcomeSubtitle = lipgloss.NewStyle().
		Foreground(TextMuted).
		Align(lipgloss.Center)

	t.SuggestionCard = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.StatusLine = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
}
