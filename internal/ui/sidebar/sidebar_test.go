// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sidebar

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-aichat/internal/aichat"
	"github.com/jeranaias/rigrun-aichat/internal/keybind"
	"github.com/jeranaias/rigrun-aichat/internal/model"
	"github.com/jeranaias/rigrun-aichat/internal/selection"
	"github.com/jeranaias/rigrun-aichat/internal/submit"
	"github.com/jeranaias/rigrun-aichat/internal/transcript"
)

type recordingPipeline struct {
	sent     []string
	injected []string
}

func (p *recordingPipeline) Send(text string)   { p.sent = append(p.sent, text) }
func (p *recordingPipeline) Inject(text string) { p.injected = append(p.injected, text) }

type fakeAssistant struct {
	provider string
	applied  int
}

func (f *fakeAssistant) Apply(msg tea.Msg) bool {
	f.applied++
	return false
}

func (f *fakeAssistant) Provider() string { return f.provider }

func (f *fakeAssistant) CycleProvider() string {
	f.provider = "gemini"
	return f.provider
}

type harness struct {
	m        *Model
	store    *transcript.Store
	registry *keybind.Registry
	pipeline *recordingPipeline
	svc      *fakeAssistant
}

func newHarness(t *testing.T, seed ...model.ChatMessage) *harness {
	t.Helper()
	h := &harness{
		store:    transcript.New(seed...),
		registry: keybind.NewRegistry(keybind.DefaultKeyMap()),
		pipeline: &recordingPipeline{},
		svc:      &fakeAssistant{provider: "openai"},
	}
	h.m = New(Options{
		Store:     h.store,
		Registry:  h.registry,
		Pipeline:  h.pipeline,
		Assistant: h.svc,
		Clipboard: func(string) error { return nil },
	})
	h.m.SetSize(60, 60)
	h.m.Focus()
	return h
}

func withCode() model.ChatMessage {
	a := model.NewAssistantPlaceholder()
	a.Response.Message = "Try this:\n\n```bash\nls -la\n```\n"
	return a
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func typeText(m *Model, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// =============================================================================
// INPUT
// =============================================================================

func TestInputCaret(t *testing.T) {
	in := NewInput(0)
	assert.True(t, in.Caret().AtStart())

	in.SetValue("ab\ncd")
	c := in.Caret()
	assert.Equal(t, "ab\ncd", c.Value)
	assert.Equal(t, 5, c.Offset)
	assert.False(t, c.AtStart())
}

func TestInputGrowsWithNewlines(t *testing.T) {
	in := NewInput(3)
	in.SetWidth(20)
	assert.Equal(t, 1, in.Height())

	in.InsertNewline()
	assert.Equal(t, 2, in.Height())

	in.SetValue("1\n2\n3\n4\n5")
	assert.Equal(t, 3, in.Height(), "growth stops at the maximum")

	in.Reset()
	assert.Equal(t, 1, in.Height())
	assert.Equal(t, "", in.Value())
}

func TestWrappedRows(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  int
	}{
		{"", 10, 1},
		{"short", 10, 1},
		{"exactly10!", 10, 1},
		{"eleven char", 10, 2},
		{"a\nb\nc", 10, 3},
		{"世界世界世界", 4, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wrappedRows(tt.s, tt.width), "%q at %d", tt.s, tt.width)
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestFirstLayoutActivatesAndGreets(t *testing.T) {
	h := newHarness(t)
	assert.True(t, h.m.Controller().Active())
	assert.Equal(t, []string{aichat.Scope}, h.registry.Scopes(aichat.Panel))
	assert.Equal(t, []string{""}, h.pipeline.sent, "empty transcript asks for a greeting")

	h.m.SetSize(70, 40)
	assert.Len(t, h.pipeline.sent, 1, "resizing does not greet again")
}

func TestCollapseReleasesScope(t *testing.T) {
	h := newHarness(t, withCode())
	h.m.Collapse()
	assert.True(t, h.m.Collapsed())
	assert.False(t, h.m.Focused())
	assert.Empty(t, h.registry.Scopes(aichat.Panel))
	assert.Equal(t, "", h.m.View())

	h.m.Expand()
	assert.Equal(t, []string{aichat.Scope}, h.registry.Scopes(aichat.Panel))
	assert.Empty(t, h.pipeline.sent, "non-empty transcript is not greeted")
}

func TestCollapsedStillAppliesStreamMessages(t *testing.T) {
	h := newHarness(t, withCode())
	h.m.Collapse()
	before := h.svc.applied
	h.m.Update("chunk")
	assert.Equal(t, before+1, h.svc.applied)
}

// =============================================================================
// KEYS AND MOUSE
// =============================================================================

func TestEnterSendsTypedText(t *testing.T) {
	h := newHarness(t, withCode())
	typeText(h.m, "how do I grep?")
	assert.Equal(t, "how do I grep?", h.m.Input().Value())

	h.m.Update(key(tea.KeyEnter))
	assert.Equal(t, []string{"how do I grep?"}, h.pipeline.sent)
	assert.Equal(t, "", h.m.Input().Value())
}

func TestKeysIgnoredWithoutFocus(t *testing.T) {
	h := newHarness(t, withCode())
	h.m.Blur()
	typeText(h.m, "x")
	h.m.Update(key(tea.KeyEnter))
	assert.Empty(t, h.pipeline.sent)
}

func TestArrowUpSelectsAndEnterInjects(t *testing.T) {
	h := newHarness(t, withCode())
	h.m.Update(key(tea.KeyUp))
	assert.Equal(t, selection.Selected(0), h.m.Controller().Selection())
	assert.Contains(t, h.m.View(), SelectionHint)

	h.m.Update(key(tea.KeyEnter))
	assert.Equal(t, []string{"ls -la"}, h.pipeline.injected)
	assert.Empty(t, h.pipeline.sent)
	assert.True(t, h.m.Controller().Selection().IsIdle())
	assert.NotContains(t, h.m.View(), SelectionHint)
}

func TestClickBlockAndElsewhere(t *testing.T) {
	h := newHarness(t, withCode())
	blocks := h.m.pane.Blocks()
	require.Len(t, blocks, 1)

	y := h.m.viewportTop() + blocks[0].Top - h.m.vp.YOffset
	h.m.Update(tea.MouseMsg{X: 4, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.Equal(t, selection.Selected(0), h.m.Controller().Selection())
	assert.Equal(t, 0, h.m.pane.selected, "selected block is highlighted")

	h.m.Update(tea.MouseMsg{X: 4, Y: h.m.height - 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.True(t, h.m.Controller().Selection().IsIdle())
	assert.True(t, h.m.Input().Focused())
}

func TestCtrlPCyclesProvider(t *testing.T) {
	h := newHarness(t, withCode())
	assert.Contains(t, h.m.View(), "OpenAI")

	h.m.Update(key(tea.KeyCtrlP))
	assert.Equal(t, "gemini", h.svc.provider)
	assert.Contains(t, h.m.View(), "Gemini")
}

func TestCopyNotice(t *testing.T) {
	h := newHarness(t, withCode())
	h.m.Update(key(tea.KeyUp))
	h.m.Update(key(tea.KeyCtrlY))
	assert.Contains(t, h.m.View(), "Copied block to clipboard")
}

func TestCmdAndOutputPrefillsWithoutSending(t *testing.T) {
	h := newHarness(t, withCode())
	h.m.SetCmdAndOutput(submit.CmdAndOutput{Command: "ls", Output: "a\nb", RowCount: 2})
	assert.True(t, strings.HasPrefix(h.m.Input().Value(), "I ran the command: `ls`"))
	assert.Empty(t, h.pipeline.sent)
	assert.Greater(t, h.m.Input().Height(), 1, "prefill grows the input")
}

// =============================================================================
// VIEW
// =============================================================================

func TestWelcomePanelOnEmptyTranscript(t *testing.T) {
	h := newHarness(t)
	view := h.m.View()
	assert.Contains(t, view, "How can I help you today?")
	for _, s := range Suggestions {
		assert.Contains(t, view, s.Title)
	}
}

func TestWelcomeDropsSuggestionsWhenShort(t *testing.T) {
	h := newHarness(t)
	view := renderWelcome(h.m.theme, 40, 4)
	assert.Contains(t, view, "How can I help you today?")
	assert.NotContains(t, view, Suggestions[0].Title)
}

func TestProviderLabel(t *testing.T) {
	assert.Equal(t, "OpenAI", ProviderLabel("openai"))
	assert.Equal(t, "Azure OpenAI", ProviderLabel("azure"))
	assert.Equal(t, "Gemini", ProviderLabel("gemini"))
	assert.Equal(t, "Ollama", ProviderLabel("ollama"))
	assert.Equal(t, "other", ProviderLabel("other"))
}
