// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sidebar

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/rigrun-aichat/internal/selection"
)

// DefaultMaxInputHeight is the tallest the input grows before it scrolls.
const DefaultMaxInputHeight = 6

// Placeholder is shown in the empty input.
const Placeholder = "Message AI Assistant..."

// Input is the sidebar's free-text field. It grows with its content up to
// a maximum height.
type Input struct {
	ta        textarea.Model
	maxHeight int
}

// NewInput creates an unfocused, empty input.
func NewInput(maxHeight int) *Input {
	if maxHeight <= 0 {
		maxHeight = DefaultMaxInputHeight
	}
	ta := textarea.New()
	ta.Placeholder = Placeholder
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	// Enter belongs to the confirm binding; newlines come from
	// expandTextInput.
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.EndOfBufferCharacter = ' '
	ta.SetWidth(40)
	ta.SetHeight(1)
	ta.Blur()
	return &Input{ta: ta, maxHeight: maxHeight}
}

// Caret reports the value and the cursor's rune offset into it.
func (in *Input) Caret() selection.Caret {
	value := in.ta.Value()
	lines := strings.Split(value, "\n")
	row := in.ta.Line()
	offset := 0
	for r := 0; r < row && r < len(lines); r++ {
		offset += len([]rune(lines[r])) + 1
	}
	li := in.ta.LineInfo()
	offset += li.StartColumn + li.ColumnOffset
	return selection.Caret{Value: value, Offset: offset}
}

func (in *Input) Value() string {
	return in.ta.Value()
}

// SetValue replaces the text and leaves the cursor at the end.
func (in *Input) SetValue(s string) {
	in.ta.SetValue(s)
	in.grow()
}

func (in *Input) Reset() {
	in.ta.Reset()
	in.grow()
}

// InsertNewline splits the line at the cursor.
func (in *Input) InsertNewline() {
	in.ta.InsertRune('\n')
	in.grow()
}

func (in *Input) Focus() tea.Cmd {
	return in.ta.Focus()
}

func (in *Input) Blur() {
	in.ta.Blur()
}

func (in *Input) Focused() bool {
	return in.ta.Focused()
}

// SetWidth sets the text width in cells.
func (in *Input) SetWidth(w int) {
	if w < 1 {
		w = 1
	}
	in.ta.SetWidth(w)
	in.grow()
}

// Height returns the number of text rows shown.
func (in *Input) Height() int {
	return in.ta.Height()
}

// Update forwards msg to the textarea.
func (in *Input) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	in.ta, cmd = in.ta.Update(msg)
	in.grow()
	return cmd
}

func (in *Input) View() string {
	return in.ta.View()
}

// grow sizes the textarea to its wrapped content, between one row and
// maxHeight.
func (in *Input) grow() {
	rows := wrappedRows(in.ta.Value(), in.ta.Width())
	if rows > in.maxHeight {
		rows = in.maxHeight
	}
	if rows != in.ta.Height() {
		in.ta.SetHeight(rows)
	}
}

// wrappedRows counts the display rows of s at width cells, one at least.
func wrappedRows(s string, width int) int {
	if width < 1 {
		width = 1
	}
	rows := 0
	for _, line := range strings.Split(s, "\n") {
		w := runewidth.StringWidth(line)
		n := (w + width - 1) / width
		if n == 0 {
			n = 1
		}
		rows += n
	}
	return rows
}
