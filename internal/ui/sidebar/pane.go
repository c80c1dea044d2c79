// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sidebar

import (
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/jeranaias/rigrun-aichat/internal/model"
	"github.com/jeranaias/rigrun-aichat/internal/render"
)

// pane lays out the transcript into the viewport. It is the controller's
// block source: every transcript change is rendered and pushed into the
// viewport before the controller asks to scroll.
type pane struct {
	view     *render.View
	vp       *viewport.Model
	selected int
}

func newPane(view *render.View, vp *viewport.Model) *pane {
	return &pane{view: view, vp: vp, selected: render.NoSelection}
}

func (p *pane) SetTranscript(snapshot []model.ChatMessage) {
	p.view.SetTranscript(snapshot)
	p.refresh()
}

func (p *pane) Blocks() []render.BlockDescriptor {
	return p.view.Blocks()
}

// Select changes the highlighted block.
func (p *pane) Select(i int) {
	if i == p.selected {
		return
	}
	p.selected = i
	p.refresh()
}

// SetWidth re-wraps the transcript for w cells.
func (p *pane) SetWidth(w int) {
	p.view.SetWidth(w)
	p.vp.Width = w
	p.refresh()
}

// SetTypingIndicator updates the spinner frame shown for a pending answer.
func (p *pane) SetTypingIndicator(s string) {
	p.view.SetTypingIndicator(s)
	p.refresh()
}

// BlockAt returns the block covering content line y, or NoSelection.
func (p *pane) BlockAt(y int) int {
	for _, b := range p.view.Blocks() {
		if y >= b.Top && y < b.Bottom() {
			return b.Ordinal
		}
	}
	return render.NoSelection
}

func (p *pane) refresh() {
	p.vp.SetContent(p.view.Frame(p.selected).Content)
}
