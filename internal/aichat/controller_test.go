// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package aichat

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-aichat/internal/keybind"
	"github.com/jeranaias/rigrun-aichat/internal/model"
	"github.com/jeranaias/rigrun-aichat/internal/render"
	"github.com/jeranaias/rigrun-aichat/internal/scroll"
	"github.com/jeranaias/rigrun-aichat/internal/selection"
	"github.com/jeranaias/rigrun-aichat/internal/submit"
	"github.com/jeranaias/rigrun-aichat/internal/transcript"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeBlocks lays each code block out as 5 lines every 10 lines.
type fakeBlocks struct {
	blocks []render.BlockDescriptor
	sets   int
}

func (f *fakeBlocks) SetTranscript(msgs []model.ChatMessage) {
	f.sets++
	f.blocks = nil
	for _, m := range msgs {
		if !m.IsAssistant() {
			continue
		}
		for _, seg := range render.CodeBlocks(m.Text()) {
			i := len(f.blocks)
			f.blocks = append(f.blocks, render.BlockDescriptor{
				Ordinal: i, Text: seg.Text, Top: i * 10, Height: 5,
			})
		}
	}
}

func (f *fakeBlocks) Blocks() []render.BlockDescriptor { return f.blocks }

type fakeInput struct {
	value   string
	offset  int
	focused bool
}

func (f *fakeInput) Caret() selection.Caret { return selection.Caret{Value: f.value, Offset: f.offset} }
func (f *fakeInput) Value() string          { return f.value }
func (f *fakeInput) SetValue(s string)      { f.value = s; f.offset = len(s) }
func (f *fakeInput) Reset()                 { f.value = ""; f.offset = 0 }
func (f *fakeInput) InsertNewline()         { f.value += "\n"; f.offset = len(f.value) }
func (f *fakeInput) Focus() tea.Cmd         { f.focused = true; return nil }
func (f *fakeInput) Blur()                  { f.focused = false }

type fakePipeline struct {
	sent     []string
	injected []string
}

func (f *fakePipeline) Send(text string)   { f.sent = append(f.sent, text) }
func (f *fakePipeline) Inject(text string) { f.injected = append(f.injected, text) }

type fakeViewport struct{ y, height, total int }

func (f *fakeViewport) YOffset() int     { return f.y }
func (f *fakeViewport) Height() int      { return f.height }
func (f *fakeViewport) TotalLines() int  { return f.total }
func (f *fakeViewport) SetYOffset(y int) { f.y = y }

type harness struct {
	c        *Controller
	store    *transcript.Store
	registry *keybind.Registry
	blocks   *fakeBlocks
	input    *fakeInput
	pipeline *fakePipeline
	scroll   *scroll.Synchronizer
	copied   []string
}

func assistant(text string) model.ChatMessage {
	m := model.NewAssistantPlaceholder()
	m.Response.Message = text
	m.Response.Finalize()
	return m
}

func newHarness(t *testing.T, seed ...model.ChatMessage) *harness {
	t.Helper()
	h := &harness{
		store:    transcript.New(seed...),
		registry: keybind.NewRegistry(keybind.DefaultKeyMap()),
		blocks:   &fakeBlocks{},
		input:    &fakeInput{focused: true},
		pipeline: &fakePipeline{},
		scroll:   scroll.New(scroll.DefaultMargin),
	}
	h.scroll.Attach(&fakeViewport{height: 20, total: 200})
	h.c = New(Options{
		Store:    h.store,
		Registry: h.registry,
		Pipeline: h.pipeline,
		Scroll:   h.scroll,
		Blocks:   h.blocks,
		Input:    h.input,
		Clipboard: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
	})
	return h
}

func (h *harness) key(t tea.KeyType) bool {
	return h.c.HandleKey(tea.KeyMsg{Type: t})
}

var threeBlocks = assistant("```sh\nls -la\n```\n\ntext\n\n```sh\ncd /tmp\n```\n\n```\necho done\n```")

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestActivateEmptyTranscriptRequestsGreetingOnce(t *testing.T) {
	h := newHarness(t)
	h.c.Activate()
	h.c.Activate()

	assert.Equal(t, []string{""}, h.pipeline.sent)
	assert.Equal(t, []string{Scope}, h.registry.Scopes(Panel))
}

func TestActivateWithHistoryDoesNotGreet(t *testing.T) {
	h := newHarness(t, model.NewUserQuery("hi"), threeBlocks)
	h.c.Activate()

	assert.Empty(t, h.pipeline.sent)
	assert.Len(t, h.blocks.Blocks(), 3, "blocks laid out on activation")
}

func TestDeactivateRemovesEveryHandler(t *testing.T) {
	h := newHarness(t, threeBlocks)
	extraCalls := 0
	h.c.extra = map[string]keybind.Handler{
		keybind.ActionCycleProvider: func() bool { extraCalls++; return true },
	}
	h.c.Activate()
	require.True(t, h.key(tea.KeyUp))
	require.False(t, h.c.Selection().IsIdle())

	h.c.Deactivate()
	h.c.Deactivate()

	assert.Zero(t, h.registry.Len())
	assert.True(t, h.c.Selection().IsIdle(), "mid-selection teardown resets")
	assert.True(t, h.scroll.Intent().IsPinned())

	for _, k := range []tea.KeyType{tea.KeyEnter, tea.KeyUp, tea.KeyDown, tea.KeyCtrlL, tea.KeyCtrlP} {
		assert.False(t, h.key(k))
	}
	assert.Zero(t, extraCalls)
	assert.Empty(t, h.pipeline.injected)

	h.store.Append(model.NewUserQuery("after"))
	assert.Equal(t, 1, h.blocks.sets, "store no longer observed")
}

// =============================================================================
// NAVIGATION
// =============================================================================

func TestArrowUpSelectsLastBlockThenWalksUp(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()

	assert.True(t, h.key(tea.KeyUp))
	assert.Equal(t, selection.Selected(2), h.c.Selection())
	assert.False(t, h.input.focused)
	assert.Equal(t, scroll.FollowingSelection(2), h.scroll.Intent())

	h.key(tea.KeyUp)
	h.key(tea.KeyUp)
	assert.True(t, h.key(tea.KeyUp), "top of list still consumes")
	assert.Equal(t, selection.Selected(0), h.c.Selection())
}

func TestArrowUpWithTextBeforeCaretIsNotConsumed(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()
	h.input.SetValue("typing")

	assert.False(t, h.key(tea.KeyUp))
	assert.True(t, h.c.Selection().IsIdle())
}

func TestArrowDownPastLastBlockReturnsToInput(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()
	h.key(tea.KeyUp)

	assert.True(t, h.key(tea.KeyDown))
	assert.True(t, h.c.Selection().IsIdle())
	assert.True(t, h.input.focused)
	assert.True(t, h.scroll.Intent().IsPinned())

	assert.False(t, h.key(tea.KeyDown), "idle ArrowDown belongs to the input")
}

func TestEscapeLeavesSelection(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()
	assert.False(t, h.key(tea.KeyEsc))

	h.key(tea.KeyUp)
	assert.True(t, h.key(tea.KeyEsc))
	assert.True(t, h.c.Selection().IsIdle())
	assert.True(t, h.input.focused)
}

func TestClicks(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()

	h.c.ClickBlock(1)
	assert.Equal(t, selection.Selected(1), h.c.Selection())
	assert.Equal(t, 1, h.c.SelectedIndex())

	h.c.ClickElsewhere()
	assert.True(t, h.c.Selection().IsIdle())
	assert.Equal(t, render.NoSelection, h.c.SelectedIndex())

	h.c.ClickBlock(9)
	assert.True(t, h.c.Selection().IsIdle())

	h.c.ClickBlock(0)
	h.c.Blur()
	assert.True(t, h.c.Selection().IsIdle())
}

// =============================================================================
// CONFIRM
// =============================================================================

func TestConfirmSelectedBlockInjects(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()
	h.input.SetValue("")
	h.c.ClickBlock(1)

	assert.True(t, h.key(tea.KeyEnter))
	assert.Equal(t, []string{"cd /tmp"}, h.pipeline.injected)
	assert.Empty(t, h.pipeline.sent)
	assert.True(t, h.c.Selection().IsIdle())
}

func TestConfirmBlankInputIsNoop(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()
	h.input.SetValue("   ")
	before := h.store.Len()

	assert.True(t, h.key(tea.KeyEnter))
	assert.Empty(t, h.pipeline.sent)
	assert.Equal(t, "   ", h.input.value)
	assert.Equal(t, before, h.store.Len())
}

func TestConfirmSendsAndClearsInput(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()
	h.input.SetValue("what is cd?")

	h.key(tea.KeyEnter)
	assert.Equal(t, []string{"what is cd?"}, h.pipeline.sent)
	assert.Empty(t, h.input.value)
}

func TestExpandTextInputInsertsNewline(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()
	h.input.SetValue("line1")

	assert.True(t, h.c.HandleKey(tea.KeyMsg{Type: tea.KeyEnter, Alt: true}))
	assert.Equal(t, "line1\n", h.input.value)
	assert.Empty(t, h.pipeline.sent)
}

// =============================================================================
// TRANSCRIPT CHANGES
// =============================================================================

func TestClearHistoryResetsSelection(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()
	h.c.ClickBlock(2)

	assert.True(t, h.key(tea.KeyCtrlL))
	assert.Zero(t, h.store.Len())
	assert.True(t, h.c.Selection().IsIdle())
	assert.Empty(t, h.blocks.Blocks())
}

func TestAppendPinsToBottom(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()
	h.c.ClickBlock(0)
	require.False(t, h.scroll.Intent().IsPinned())

	h.store.Append(model.NewUserQuery("next"))
	assert.True(t, h.scroll.Intent().IsPinned())
	assert.Equal(t, selection.Selected(0), h.c.Selection(), "block 0 still exists")
}

func TestStreamingGrowthKeepsFollowedBlock(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()
	h.store.Append(model.NewAssistantPlaceholder())
	h.c.ClickBlock(0)

	require.NoError(t, h.store.MutateLast(func(r *model.AssistantResponse) {
		r.Message += "more text"
	}))
	assert.Equal(t, scroll.FollowingSelection(0), h.scroll.Intent())
}

func TestSetCmdAndOutputPrefillsWithoutSending(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()

	h.c.SetCmdAndOutput(submit.CmdAndOutput{Command: "ls", Output: "a", RowCount: 1})
	assert.Equal(t, "I ran the command: `ls` and got the following output:\n\n```\na\n```\n\nWhat should I do next?", h.input.value)
	assert.Empty(t, h.pipeline.sent)

	h.c.SetCmdAndOutput(submit.CmdAndOutput{})
	assert.NotEmpty(t, h.input.value, "empty command leaves the draft alone")
}

func TestCopyBlock(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.Activate()

	assert.False(t, h.key(tea.KeyCtrlY), "nothing selected")

	h.c.ClickBlock(2)
	assert.True(t, h.key(tea.KeyCtrlY))
	assert.Equal(t, []string{"echo done"}, h.copied)
	assert.Equal(t, "Copied block to clipboard", h.c.Notice())
	assert.Empty(t, h.c.Notice())
}

func TestCopyBlockClipboardFailure(t *testing.T) {
	h := newHarness(t, threeBlocks)
	h.c.copy = func(string) error { return errors.New("no display") }
	h.c.Activate()
	h.c.ClickBlock(0)

	assert.True(t, h.key(tea.KeyCtrlY))
	assert.Equal(t, "Clipboard unavailable", h.c.Notice())
}
