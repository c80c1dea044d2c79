// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigrun-aichat/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// codeBlock is one fenced block prepared for display.
type codeBlock struct {
	Language string
	Code     string
	Width    int
	Theme    string
	Selected bool
	Open     bool
}

// render draws the block inside a rounded border. The selected block gets
// the accent border so the user can see what Enter will inject.
func (c codeBlock) render() string {
	code := strings.TrimRight(c.Code, "\n")

	language := c.Language
	if language == "" {
		language = detectLanguage(code)
	}
	body := highlightCode(code, language, c.Theme)

	var header string
	if c.Language != "" {
		header = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Background(styles.OverlayDim).
			Padding(0, 1).
			Bold(true).
			Render(c.Language) + "\n"
	}

	border := styles.Overlay
	if c.Selected {
		border = styles.Purple
	}

	// Border (2) plus horizontal padding (2) is taken from the width.
	inner := c.Width - 4
	if inner < 10 {
		inner = 10
	}

	block := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(inner + 2).
		MaxWidth(c.Width).
		Render(header + body)

	if c.Open {
		block += "\n" + lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true).Render("…")
	}
	return block
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightCode applies syntax highlighting with chroma, returning the
// input unchanged when no lexer, style or formatter can be resolved.
func highlightCode(code, language, theme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	if theme == "" {
		theme = "monokai"
	}
	style := chromaStyles.Get(theme)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// detectLanguage attempts to detect the language of code.
func detectLanguage(code string) string {
	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}
