// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns a transcript snapshot into sidebar text and the
// ordered list of selectable code blocks it contains.
//
// Blocks are discovered while rendering, so the block list and the line
// positions used for scrolling always describe the same frame.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigrun-aichat/internal/model"
	"github.com/jeranaias/rigrun-aichat/internal/ui/styles"
)

// NoSelection is passed to Render when no block is selected.
const NoSelection = -1

// BlockDescriptor describes one rendered code block. Top and Height are in
// rendered lines from the start of Frame.Content.
type BlockDescriptor struct {
	Ordinal  int
	Text     string
	Language string
	Top      int
	Height   int
}

// Bottom returns the line just past the block.
func (b BlockDescriptor) Bottom() int {
	return b.Top + b.Height
}

// Frame is the output of one render pass.
type Frame struct {
	Content string
	Blocks  []BlockDescriptor
	Lines   int
}

// Len returns the number of blocks in the frame.
func (f Frame) Len() int {
	return len(f.Blocks)
}

// Block returns block i, or false when i is out of range.
func (f Frame) Block(i int) (BlockDescriptor, bool) {
	if i < 0 || i >= len(f.Blocks) {
		return BlockDescriptor{}, false
	}
	return f.Blocks[i], true
}

// Options configures a Renderer.
type Options struct {
	// MarkdownStyle is a glamour style name, or "auto".
	MarkdownStyle string
	// CodeTheme is a chroma style name.
	CodeTheme string
}

// Renderer renders transcripts. Not safe for concurrent use.
type Renderer struct {
	opts   Options
	width  int
	typing string

	md      *glamour.TermRenderer
	mdWidth int
}

// New creates a renderer.
func New(opts Options) *Renderer {
	if opts.MarkdownStyle == "" {
		opts.MarkdownStyle = "auto"
	}
	if opts.CodeTheme == "" {
		opts.CodeTheme = "monokai"
	}
	return &Renderer{opts: opts, width: 60, typing: "…"}
}

// SetWidth sets the content width in cells.
func (r *Renderer) SetWidth(w int) {
	if w < 20 {
		w = 20
	}
	r.width = w
}

// Width returns the content width.
func (r *Renderer) Width() int {
	return r.width
}

// SetTypingIndicator sets the text shown for a response with no content
// yet, usually the current spinner frame.
func (r *Renderer) SetTypingIndicator(s string) {
	r.typing = s
}

// Render draws msgs and enumerates their code blocks in document order.
func (r *Renderer) Render(msgs []model.ChatMessage, selected int) Frame {
	var (
		parts  []string
		blocks []BlockDescriptor
		line   int
	)

	add := func(s string) {
		parts = append(parts, s)
		line += lipgloss.Height(s)
	}

	for i, m := range msgs {
		if i > 0 {
			add("")
		}
		add(r.header(m))

		switch {
		case m.Role == model.RoleUser:
			add(r.prose(m.UserQuery))
		case m.Response == nil:
		case m.Response.Error != "":
			add(styles.ErrorText.Width(r.width).Render(m.Response.Error))
		case m.Response.IsPending():
			add(styles.Muted.Render(r.typing))
		default:
			for _, seg := range Split(m.Response.Message) {
				if seg.Kind == SegmentProse {
					add(r.prose(seg.Text))
					continue
				}
				ordinal := len(blocks)
				cb := codeBlock{
					Language: seg.Language,
					Code:     seg.Text,
					Width:    r.width,
					Theme:    r.opts.CodeTheme,
					Selected: ordinal == selected,
					Open:     !seg.Closed,
				}
				top := line
				add(cb.render())
				blocks = append(blocks, BlockDescriptor{
					Ordinal:  ordinal,
					Text:     seg.Text,
					Language: seg.Language,
					Top:      top,
					Height:   line - top,
				})
			}
		}
	}

	content := strings.Join(parts, "\n")
	return Frame{Content: content, Blocks: blocks, Lines: line}
}

func (r *Renderer) header(m model.ChatMessage) string {
	label := m.Role.DisplayName()
	if m.Role == model.RoleUser {
		return styles.UserLabel.Render(label)
	}
	if m.Response != nil && m.Response.Model != "" {
		label += " " + styles.Muted.Render("("+truncate(m.Response.Model, r.width/2)+")")
	}
	return styles.AssistantLabel.Render(label)
}

// prose renders markdown text with glamour, falling back to plain wrapped
// text when the renderer cannot be built or fails.
func (r *Renderer) prose(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	md := r.markdown()
	if md == nil {
		return wrapText(text, r.width)
	}
	out, err := md.Render(text)
	if err != nil {
		return wrapText(text, r.width)
	}
	return strings.Trim(out, "\n")
}

func (r *Renderer) markdown() *glamour.TermRenderer {
	if r.md != nil && r.mdWidth == r.width {
		return r.md
	}
	style := glamour.WithStandardStyle(r.opts.MarkdownStyle)
	if r.opts.MarkdownStyle == "auto" {
		style = glamour.WithAutoStyle()
	}
	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(r.width))
	if err != nil {
		return nil
	}
	r.md = md
	r.mdWidth = r.width
	return md
}
