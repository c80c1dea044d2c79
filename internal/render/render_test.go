// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-aichat/internal/model"
)

func assistant(text string) model.ChatMessage {
	m := model.NewAssistantPlaceholder()
	m.Response.Message = text
	m.Response.Finalize()
	return m
}

func newTestRenderer() *Renderer {
	r := New(Options{MarkdownStyle: "notty"})
	r.SetWidth(50)
	return r
}

func TestRenderEnumeratesBlocksInDocumentOrder(t *testing.T) {
	msgs := []model.ChatMessage{
		model.NewUserQuery("how do I list files?"),
		assistant("Use ls:\n\n```sh\nls -la\n```\n\nor find:\n\n```\nfind . -maxdepth 1\n```"),
		model.NewUserQuery("and disk usage?"),
		assistant("```bash\ndu -sh *\n```"),
	}

	frame := newTestRenderer().Render(msgs, NoSelection)

	require.Equal(t, 3, frame.Len())
	assert.Equal(t, "ls -la\n", frame.Blocks[0].Text)
	assert.Equal(t, "sh", frame.Blocks[0].Language)
	assert.Equal(t, "find . -maxdepth 1\n", frame.Blocks[1].Text)
	assert.Equal(t, "du -sh *\n", frame.Blocks[2].Text)

	for i, b := range frame.Blocks {
		assert.Equal(t, i, b.Ordinal)
		assert.Greater(t, b.Height, 0)
		if i > 0 {
			assert.GreaterOrEqual(t, b.Top, frame.Blocks[i-1].Bottom(), "blocks must not overlap")
		}
		assert.LessOrEqual(t, b.Bottom(), frame.Lines)
	}
	assert.Equal(t, lipgloss.Height(frame.Content), frame.Lines)
}

func TestRenderBlockBoundsPointAtBorder(t *testing.T) {
	msgs := []model.ChatMessage{
		assistant("intro text\n\n```\necho hi\n```\n\ntrailing"),
	}
	frame := newTestRenderer().Render(msgs, NoSelection)
	require.Equal(t, 1, frame.Len())

	lines := strings.Split(frame.Content, "\n")
	b := frame.Blocks[0]
	assert.Contains(t, lines[b.Top], "╭")
	assert.Contains(t, lines[b.Bottom()-1], "╰")
}

func TestRenderUserMessagesHaveNoBlocks(t *testing.T) {
	msgs := []model.ChatMessage{model.NewUserQuery("```\nnot selectable\n```")}
	frame := newTestRenderer().Render(msgs, NoSelection)
	assert.Zero(t, frame.Len())
}

func TestRenderStreamingOpenFenceIsABlock(t *testing.T) {
	m := model.NewAssistantPlaceholder()
	m.Response.Message = "Run:\n```sh\ngit status"

	frame := newTestRenderer().Render([]model.ChatMessage{m}, NoSelection)
	require.Equal(t, 1, frame.Len())
	assert.Equal(t, "git status\n", frame.Blocks[0].Text)
}

func TestRenderPendingAndErrorResponses(t *testing.T) {
	r := newTestRenderer()
	r.SetTypingIndicator("thinking")

	pending := model.NewAssistantPlaceholder()
	failed := model.NewAssistantPlaceholder()
	failed.Response.Error = "timeout waiting for server response"
	failed.Response.Finalize()

	frame := r.Render([]model.ChatMessage{pending, failed}, NoSelection)
	assert.Contains(t, frame.Content, "thinking")
	assert.Contains(t, frame.Content, "timeout waiting for server response")
	assert.Zero(t, frame.Len())
}

func TestRenderEmptyTranscript(t *testing.T) {
	frame := newTestRenderer().Render(nil, NoSelection)
	assert.Zero(t, frame.Len())
	assert.Empty(t, frame.Content)
}

func TestFrameBlockBounds(t *testing.T) {
	f := Frame{Blocks: []BlockDescriptor{{Ordinal: 0, Text: "x"}}}
	_, ok := f.Block(1)
	assert.False(t, ok)
	_, ok = f.Block(-1)
	assert.False(t, ok)
	b, ok := f.Block(0)
	assert.True(t, ok)
	assert.Equal(t, "x", b.Text)
}

func TestSetWidthFloor(t *testing.T) {
	r := New(Options{})
	r.SetWidth(3)
	assert.Equal(t, 20, r.Width())
}

func TestViewCachesUntilChanged(t *testing.T) {
	v := NewView(newTestRenderer())
	assert.Empty(t, v.Blocks())

	v.SetTranscript([]model.ChatMessage{assistant("```sh\nls\n```\n\n```sh\npwd\n```")})
	blocks := v.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "pwd\n", blocks[1].Text)

	plain := v.Frame(NoSelection)
	selected := v.Frame(1)
	assert.Equal(t, plain.Blocks, selected.Blocks, "selection does not move blocks")

	v.SetTranscript(nil)
	assert.Empty(t, v.Blocks())
	assert.Zero(t, v.Len())
}
