// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keybind

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Action names. Generic actions are shared by every panel; the others
// belong to the chat sidebar.
const (
	ActionConfirm         = "generic:confirm"
	ActionCancel          = "generic:cancel"
	ActionExpandTextInput = "generic:expandTextInput"
	ActionSelectAbove     = "generic:selectAbove"
	ActionSelectBelow     = "generic:selectBelow"
	ActionClearHistory    = "aichat:clearHistory"
	ActionCopyBlock       = "aichat:copyBlock"
	ActionCycleProvider   = "aichat:cycleProvider"
	ActionToggleSidebar   = "rightsidebar:toggle"
	ActionSwitchFocus     = "app:switchFocus"
	ActionQuit            = "app:quit"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap binds keys to action names. Each binding carries help text.
type KeyMap struct {
	Confirm         key.Binding
	Cancel          key.Binding
	ExpandTextInput key.Binding
	SelectAbove     key.Binding
	SelectBelow     key.Binding
	ClearHistory    key.Binding
	CopyBlock       key.Binding
	CycleProvider   key.Binding
	ToggleSidebar   key.Binding
	SwitchFocus     key.Binding
	Quit            key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send / run selected"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "leave block"),
		),
		ExpandTextInput: key.NewBinding(
			key.WithKeys("shift+enter", "alt+enter", "ctrl+j"),
			key.WithHelp("A-Enter/C-j", "newline"),
		),
		SelectAbove: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous block"),
		),
		SelectBelow: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next block"),
		),
		ClearHistory: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear chat"),
		),
		CopyBlock: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy block"),
		),
		CycleProvider: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "next provider"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "toggle chat"),
		),
		SwitchFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "switch pane"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// bindings pairs every binding with its action name, in lookup order.
func (k KeyMap) bindings() []struct {
	action  string
	binding key.Binding
} {
	return []struct {
		action  string
		binding key.Binding
	}{
		{ActionConfirm, k.Confirm},
		{ActionCancel, k.Cancel},
		{ActionExpandTextInput, k.ExpandTextInput},
		{ActionSelectAbove, k.SelectAbove},
		{ActionSelectBelow, k.SelectBelow},
		{ActionClearHistory, k.ClearHistory},
		{ActionCopyBlock, k.CopyBlock},
		{ActionCycleProvider, k.CycleProvider},
		{ActionToggleSidebar, k.ToggleSidebar},
		{ActionSwitchFocus, k.SwitchFocus},
		{ActionQuit, k.Quit},
	}
}

// Lookup returns the actions bound to msg. Usually there is at most one.
func (k KeyMap) Lookup(msg tea.KeyMsg) []string {
	var actions []string
	for _, b := range k.bindings() {
		if key.Matches(msg, b.binding) {
			actions = append(actions, b.action)
		}
	}
	return actions
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the sidebar footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.SelectAbove, k.ClearHistory, k.ToggleSidebar}
}

// FullHelp returns the bindings grouped for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Confirm, k.ExpandTextInput, k.Cancel},
		{k.SelectAbove, k.SelectBelow, k.CopyBlock},
		{k.ClearHistory, k.CycleProvider},
		{k.ToggleSidebar, k.SwitchFocus, k.Quit},
	}
}
