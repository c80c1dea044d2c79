// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sidebar

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigrun-aichat/internal/ui/styles"
)

// Suggestion is a starter prompt shown on the empty transcript.
type Suggestion struct {
	Title   string
	Example string
}

// Suggestions are the welcome panel's starter prompts.
var Suggestions = []Suggestion{
	{Title: "Debug an error", Example: `"Help me fix this TypeError"`},
	{Title: "Write a script", Example: `"Create a Python script to..."`},
	{Title: "Explain code", Example: `"What does this function do?"`},
	{Title: "Terminal help", Example: `"How do I use git rebase?"`},
}

const (
	welcomeTitle    = "How can I help you today?"
	welcomeSubtitle = "Ask me anything about your code or terminal"
)

// renderWelcome draws the empty-transcript panel centered in width x height.
// Suggestions are dropped from the bottom when there is no room for them.
func renderWelcome(theme *styles.Theme, width, height int) string {
	if width < 1 || height < 1 {
		return ""
	}
	header := lipgloss.JoinVertical(lipgloss.Center,
		theme.WelcomeTitle.Width(width).Render(welcomeTitle),
		theme.WelcomeSubtitle.Width(width).Render(welcomeSubtitle),
	)

	cardWidth := width - theme.SuggestionCard.GetHorizontalFrameSize()
	if cardWidth < 10 {
		cardWidth = 10
	}
	parts := []string{header, ""}
	used := lipgloss.Height(header) + 1
	for _, s := range Suggestions {
		card := theme.SuggestionCard.Width(cardWidth).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				lipgloss.NewStyle().Bold(true).Render(s.Title),
				theme.WelcomeSubtitle.UnsetAlign().Render(s.Example),
			),
		)
		h := lipgloss.Height(card)
		if used+h > height {
			break
		}
		parts = append(parts, card)
		used += h
	}

	body := lipgloss.JoinVertical(lipgloss.Center, parts...)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}
