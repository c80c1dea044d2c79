// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package selection tracks whether the sidebar's free-text input or one of
// the rendered code blocks owns the keyboard.
//
// The block count N is passed into every transition rather than stored,
// because the transcript can re-render between two key presses.
package selection

import (
	"strconv"
	"strings"
)

// =============================================================================
// STATE
// =============================================================================

// State is either Idle or BlockSelected(index). The zero value is Idle.
type State struct {
	selected bool
	index    int
}

// Idle returns the state in which the free-text input owns the keyboard.
func Idle() State {
	return State{}
}

// Selected returns BlockSelected(i).
func Selected(i int) State {
	return State{selected: true, index: i}
}

// IsIdle reports whether the input owns the keyboard.
func (s State) IsIdle() bool {
	return !s.selected
}

// Index returns the selected block index, or false when idle.
func (s State) Index() (int, bool) {
	return s.index, s.selected
}

// IndexOr returns the selected index or def when idle.
func (s State) IndexOr(def int) int {
	if !s.selected {
		return def
	}
	return s.index
}

// String returns a readable form for logs.
func (s State) String() string {
	if !s.selected {
		return "Idle"
	}
	return "BlockSelected(" + strconv.Itoa(s.index) + ")"
}

// =============================================================================
// INPUTS AND OUTPUTS
// =============================================================================

// Caret describes the free-text input at the time of a key press.
type Caret struct {
	Value  string
	Offset int // cursor offset in runes from the start of Value
}

// AtStart reports whether the cursor sits at offset 0 with no newline
// before it.
func (c Caret) AtStart() bool {
	runes := []rune(c.Value)
	end := c.Offset
	if end > len(runes) {
		end = len(runes)
	}
	if end < 0 {
		end = 0
	}
	return !strings.ContainsRune(string(runes[:end]), '\n') && c.Offset == 0
}

// Effect tells the host what changed besides the state itself.
type Effect int

const (
	// EffectNone means the key was not consumed.
	EffectNone Effect = iota
	// EffectConsumed means the key was handled and the state may have changed.
	EffectConsumed
	// EffectFocusInput means the key was handled and the host should give
	// the free-text input keyboard focus.
	EffectFocusInput
)

// Consumed reports whether the key press was handled.
func (e Effect) Consumed() bool {
	return e != EffectNone
}

// Action is what a Confirm produces.
type Action int

const (
	ActionNone Action = iota
	ActionSend
	ActionInject
)

// Outcome is the result of Confirm.
type Outcome struct {
	Action Action
	Text   string
}

// =============================================================================
// MACHINE
// =============================================================================

// Machine holds the current selection. Not safe for concurrent use; the
// UI goroutine owns it.
type Machine struct {
	state State
}

// New returns a machine in the Idle state.
func New() *Machine {
	return &Machine{}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// ArrowUp moves the selection towards the top of the transcript.
// From Idle it only fires when the caret is at the very start of the input.
func (m *Machine) ArrowUp(caret Caret, n int) Effect {
	i, selected := m.state.Index()
	if !selected {
		if !caret.AtStart() || n <= 0 {
			return EffectNone
		}
		m.state = Selected(n - 1)
		return EffectConsumed
	}
	if i >= n {
		m.state = Idle()
		return EffectFocusInput
	}
	if i > 0 {
		m.state = Selected(i - 1)
	}
	// At index 0 the key is swallowed without moving, keeping the user in
	// block navigation.
	return EffectConsumed
}

// ArrowDown moves the selection towards the input. Past the last block the
// input gets focus back.
func (m *Machine) ArrowDown(n int) Effect {
	i, selected := m.state.Index()
	if !selected {
		return EffectNone
	}
	if i+1 < n {
		m.state = Selected(i + 1)
		return EffectConsumed
	}
	m.state = Idle()
	return EffectFocusInput
}

// Click selects block index, or goes Idle when it is out of range.
func (m *Machine) Click(index, n int) {
	if index < 0 || index >= n {
		m.state = Idle()
		return
	}
	m.state = Selected(index)
}

// ClickElsewhere handles a click outside any block, including a mouse
// press in the input.
func (m *Machine) ClickElsewhere() {
	m.state = Idle()
}

// Blur handles focus leaving the sidebar.
func (m *Machine) Blur() {
	m.state = Idle()
}

// Validate resets a selection that no longer points at a rendered block.
// It returns true when a reset happened.
func (m *Machine) Validate(n int) bool {
	i, selected := m.state.Index()
	if selected && (i < 0 || i >= n) {
		m.state = Idle()
		return true
	}
	return false
}

// Confirm resolves Enter. A selected block yields its text with one
// trailing newline removed, to be injected into the command line. Idle with
// non-blank input yields a send. Blank input yields nothing.
//
// blocks holds the text of each rendered block in order.
func (m *Machine) Confirm(blocks []string, input string) Outcome {
	if i, selected := m.state.Index(); selected {
		m.state = Idle()
		if i < 0 || i >= len(blocks) {
			return Outcome{}
		}
		return Outcome{Action: ActionInject, Text: strings.TrimSuffix(blocks[i], "\n")}
	}
	if strings.TrimSpace(input) == "" {
		return Outcome{}
	}
	return Outcome{Action: ActionSend, Text: input}
}
