// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "github.com/jeranaias/rigrun-aichat/internal/model"

// View caches the latest frame of a transcript and re-renders only when the
// transcript, width, typing indicator or selection changed.
type View struct {
	r *Renderer

	msgs     []model.ChatMessage
	selected int
	frame    Frame
	dirty    bool
}

// NewView creates a view over r.
func NewView(r *Renderer) *View {
	return &View{r: r, selected: NoSelection, dirty: true}
}

// Renderer returns the underlying renderer.
func (v *View) Renderer() *Renderer {
	return v.r
}

// SetTranscript replaces the transcript being shown.
func (v *View) SetTranscript(msgs []model.ChatMessage) {
	v.msgs = msgs
	v.dirty = true
}

// SetWidth changes the render width.
func (v *View) SetWidth(w int) {
	if v.r.Width() == w {
		return
	}
	v.r.SetWidth(w)
	v.dirty = true
}

// SetTypingIndicator updates the placeholder text. Only a pending response
// shows it, so other transcripts are not re-rendered.
func (v *View) SetTypingIndicator(s string) {
	if v.r.typing == s {
		return
	}
	v.r.SetTypingIndicator(s)
	if n := len(v.msgs); n > 0 && v.msgs[n-1].Response != nil && v.msgs[n-1].Response.IsPending() {
		v.dirty = true
	}
}

// Frame returns the frame with block selected highlighted.
func (v *View) Frame(selected int) Frame {
	if v.dirty || selected != v.selected {
		v.frame = v.r.Render(v.msgs, selected)
		v.selected = selected
		v.dirty = false
	}
	return v.frame
}

// Blocks returns the blocks of the current transcript. Selection does not
// change block layout, so the cached frame is reused when clean.
func (v *View) Blocks() []BlockDescriptor {
	return v.Frame(v.selected).Blocks
}

// Len returns the number of entries shown.
func (v *View) Len() int {
	return len(v.msgs)
}
