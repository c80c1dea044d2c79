// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keybind

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchFirstHandledWins(t *testing.T) {
	r := NewRegistry(DefaultKeyMap())
	var calls []string

	r.Register("pane", "a", ActionConfirm, func() bool {
		calls = append(calls, "a")
		return false
	})
	r.Register("pane", "b", ActionConfirm, func() bool {
		calls = append(calls, "b")
		return true
	})
	r.Register("pane", "c", ActionConfirm, func() bool {
		calls = append(calls, "c")
		return true
	})

	assert.True(t, r.Dispatch("pane", ActionConfirm))
	assert.Equal(t, []string{"a", "b"}, calls, "registration order, stop at first true")
}

func TestDispatchIsPanelScoped(t *testing.T) {
	r := NewRegistry(DefaultKeyMap())
	called := false
	r.Register("terminal", "cmd", ActionConfirm, func() bool {
		called = true
		return true
	})

	assert.False(t, r.Dispatch("pane", ActionConfirm))
	assert.False(t, called)
	assert.False(t, r.Dispatch("pane", "no:such"))
}

func TestUnregisterScopeRemovesEveryBinding(t *testing.T) {
	r := NewRegistry(DefaultKeyMap())
	fired := 0
	h := func() bool { fired++; return true }

	for _, a := range []string{ActionConfirm, ActionSelectAbove, ActionSelectBelow, ActionClearHistory} {
		r.Register("pane", "aichat", a, h)
	}
	r.Register("pane", "other", ActionCancel, func() bool { return true })
	require.Equal(t, 5, r.Len())

	assert.Equal(t, 4, r.UnregisterScope("pane", "aichat"))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"other"}, r.Scopes("pane"))

	for _, a := range []string{ActionConfirm, ActionSelectAbove, ActionSelectBelow, ActionClearHistory} {
		assert.False(t, r.Dispatch("pane", a))
	}
	assert.Zero(t, fired, "no handler survives its scope")

	assert.Zero(t, r.UnregisterScope("pane", "aichat"), "second unregister is a no-op")
}

func TestHandlerMayUnregisterItsOwnScope(t *testing.T) {
	r := NewRegistry(DefaultKeyMap())
	r.Register("pane", "aichat", ActionCancel, func() bool {
		r.UnregisterScope("pane", "aichat")
		return true
	})

	assert.True(t, r.Dispatch("pane", ActionCancel))
	assert.Zero(t, r.Len())
}

func TestLookup(t *testing.T) {
	k := DefaultKeyMap()

	tests := []struct {
		name string
		msg  tea.KeyMsg
		want []string
	}{
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, []string{ActionConfirm}},
		{"alt+enter", tea.KeyMsg{Type: tea.KeyEnter, Alt: true}, []string{ActionExpandTextInput}},
		{"ctrl+j", tea.KeyMsg{Type: tea.KeyCtrlJ}, []string{ActionExpandTextInput}},
		{"up", tea.KeyMsg{Type: tea.KeyUp}, []string{ActionSelectAbove}},
		{"down", tea.KeyMsg{Type: tea.KeyDown}, []string{ActionSelectBelow}},
		{"ctrl+l", tea.KeyMsg{Type: tea.KeyCtrlL}, []string{ActionClearHistory}},
		{"ctrl+y", tea.KeyMsg{Type: tea.KeyCtrlY}, []string{ActionCopyBlock}},
		{"ctrl+b", tea.KeyMsg{Type: tea.KeyCtrlB}, []string{ActionToggleSidebar}},
		{"ctrl+p", tea.KeyMsg{Type: tea.KeyCtrlP}, []string{ActionCycleProvider}},
		{"esc", tea.KeyMsg{Type: tea.KeyEsc}, []string{ActionCancel}},
		{"plain rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, k.Lookup(tt.msg))
		})
	}
}

func TestHandleKey(t *testing.T) {
	r := NewRegistry(DefaultKeyMap())
	var got string
	r.Register("pane", "aichat", ActionSelectAbove, func() bool {
		got = "above"
		return true
	})

	assert.True(t, r.HandleKey("pane", tea.KeyMsg{Type: tea.KeyUp}))
	assert.Equal(t, "above", got)
	assert.False(t, r.HandleKey("pane", tea.KeyMsg{Type: tea.KeyDown}))
}

func TestHelpCoversBindings(t *testing.T) {
	k := DefaultKeyMap()
	assert.NotEmpty(t, k.ShortHelp())
	n := 0
	for _, col := range k.FullHelp() {
		n += len(col)
	}
	assert.Equal(t, len(k.bindings()), n)
}
