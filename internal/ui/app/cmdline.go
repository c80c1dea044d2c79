// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// CommandLine is the host command line. Code injected from the chat lands
// here and waits for the user to run it.
type CommandLine struct {
	ti      textinput.Model
	onFocus func()
}

// NewCommandLine creates an empty command line. onFocus runs whenever
// something other than the app moves focus here.
func NewCommandLine(onFocus func()) *CommandLine {
	ti := textinput.New()
	ti.Prompt = "$ "
	ti.Placeholder = "type a command"
	ti.CharLimit = 0
	return &CommandLine{ti: ti, onFocus: onFocus}
}

// SetText replaces the text and moves the cursor to the end.
func (c *CommandLine) SetText(text string) {
	c.ti.SetValue(text)
	c.ti.CursorEnd()
}

// Focus asks the app to move keyboard focus to the command line.
func (c *CommandLine) Focus() {
	c.ti.Focus()
	if c.onFocus != nil {
		c.onFocus()
	}
}

func (c *CommandLine) focus() tea.Cmd {
	return c.ti.Focus()
}

func (c *CommandLine) blur() {
	c.ti.Blur()
}

// Value returns the current text.
func (c *CommandLine) Value() string {
	return c.ti.Value()
}

func (c *CommandLine) Focused() bool {
	return c.ti.Focused()
}

func (c *CommandLine) setWidth(w int) {
	c.ti.Width = max(w-len(c.ti.Prompt)-1, 1)
}

func (c *CommandLine) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.ti, cmd = c.ti.Update(msg)
	return cmd
}

func (c *CommandLine) view() string {
	return c.ti.View()
}
