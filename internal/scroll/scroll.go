// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scroll keeps the transcript viewport either pinned to the newest
// message or following the selected code block.
package scroll

import (
	"math"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
)

// DefaultMargin is the number of rows kept between a followed block and
// the viewport edge.
const DefaultMargin = 15

const (
	fps       = 60
	frequency = 7.0
	damping   = 1.0
)

// =============================================================================
// INTENT
// =============================================================================

// Intent is either PinnedToBottom or FollowingSelection(index). The zero
// value is PinnedToBottom.
type Intent struct {
	following bool
	index     int
}

// PinnedToBottom keeps the newest message visible.
func PinnedToBottom() Intent {
	return Intent{}
}

// FollowingSelection keeps block i visible.
func FollowingSelection(i int) Intent {
	return Intent{following: true, index: i}
}

// IsPinned reports whether the intent is PinnedToBottom.
func (in Intent) IsPinned() bool {
	return !in.following
}

// Index returns the followed block, or false when pinned.
func (in Intent) Index() (int, bool) {
	return in.index, in.following
}

// String returns a readable form for logs.
func (in Intent) String() string {
	if !in.following {
		return "PinnedToBottom"
	}
	return "FollowingSelection(" + strconv.Itoa(in.index) + ")"
}

// =============================================================================
// VIEWPORT HANDLE
// =============================================================================

// Viewport is the part of a scrollable view the synchronizer drives.
type Viewport interface {
	YOffset() int
	Height() int
	TotalLines() int
	SetYOffset(int)
}

// Bubble adapts a bubbles viewport. The model must outlive the adapter.
type Bubble struct {
	M *viewport.Model
}

func (b Bubble) YOffset() int     { return b.M.YOffset }
func (b Bubble) Height() int      { return b.M.Height }
func (b Bubble) TotalLines() int  { return b.M.TotalLineCount() }
func (b Bubble) SetYOffset(y int) { b.M.SetYOffset(y) }

// =============================================================================
// SYNCHRONIZER
// =============================================================================

// FrameMsg advances a running scroll animation by one frame.
type FrameMsg struct {
	Time time.Time
}

// Synchronizer owns the scroll intent. Requests made before Attach are
// ignored because there is nothing to scroll yet.
type Synchronizer struct {
	vp     Viewport
	intent Intent
	margin int

	spring    harmonica.Spring
	animating bool
	ticking   bool
	pos, vel  float64
	target    int
}

// New creates a synchronizer with the given follow margin. A margin below
// zero selects DefaultMargin.
func New(margin int) *Synchronizer {
	if margin < 0 {
		margin = DefaultMargin
	}
	return &Synchronizer{
		margin: margin,
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping),
	}
}

// Attach hands the synchronizer its viewport once the view has been laid
// out, and jumps to the bottom without animating.
func (s *Synchronizer) Attach(vp Viewport) {
	s.vp = vp
	s.intent = PinnedToBottom()
	s.animating = false
	s.jump(s.maxOffset())
}

// Detach drops the viewport, for example when the sidebar collapses.
func (s *Synchronizer) Detach() {
	s.vp = nil
	s.animating = false
}

// Attached reports whether a viewport is present.
func (s *Synchronizer) Attached() bool {
	return s.vp != nil
}

// Intent returns the current intent.
func (s *Synchronizer) Intent() Intent {
	return s.intent
}

// Margin returns the follow margin.
func (s *Synchronizer) Margin() int {
	return s.margin
}

// Animating reports whether a smooth scroll is in progress.
func (s *Synchronizer) Animating() bool {
	return s.animating
}

// ContentChanged reacts to the transcript changing. A new entry (grew) pins
// the view to the bottom; growth of the streaming entry only scrolls while
// already pinned, so a followed block stays in view.
func (s *Synchronizer) ContentChanged(grew bool) tea.Cmd {
	if grew {
		s.intent = PinnedToBottom()
	}
	if s.vp == nil || !s.intent.IsPinned() {
		return nil
	}
	return s.animateTo(s.maxOffset())
}

// FollowBlock switches to following block i whose layout spans
// [top, top+height) and scrolls the minimum amount to show it with the
// margin. A fully visible block causes no scroll.
func (s *Synchronizer) FollowBlock(i, top, height int) tea.Cmd {
	s.intent = FollowingSelection(i)
	if s.vp == nil {
		return nil
	}

	viewTop := s.vp.YOffset()
	viewHeight := s.vp.Height()
	viewBottom := viewTop + viewHeight
	bottom := top + height

	if top >= viewTop && bottom <= viewBottom {
		return nil
	}

	var target int
	switch {
	case bottom > viewBottom:
		target = top - viewHeight + height + s.margin
	case top < viewTop:
		target = top - s.margin
	default:
		return nil
	}
	return s.animateTo(clamp(target, 0, s.maxOffset()))
}

// Reset returns to PinnedToBottom without scrolling. Used when the
// selection ends by navigation or blur rather than by new content.
func (s *Synchronizer) Reset() {
	s.intent = PinnedToBottom()
}

// Update advances the animation on FrameMsg.
func (s *Synchronizer) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(FrameMsg); !ok {
		return nil
	}
	s.ticking = false
	if !s.animating || s.vp == nil {
		s.animating = false
		return nil
	}
	if s.Step() {
		return nil
	}
	return s.tick()
}

// Step advances the spring one frame and reports whether it has settled.
func (s *Synchronizer) Step() bool {
	if !s.animating || s.vp == nil {
		return true
	}
	s.pos, s.vel = s.spring.Update(s.pos, s.vel, float64(s.target))
	if math.Abs(s.pos-float64(s.target)) < 0.5 && math.Abs(s.vel) < 0.5 {
		s.jump(s.target)
		return true
	}
	s.vp.SetYOffset(int(math.Round(s.pos)))
	return false
}

func (s *Synchronizer) animateTo(target int) tea.Cmd {
	if !s.animating {
		if s.vp.YOffset() == target {
			return nil
		}
		s.pos = float64(s.vp.YOffset())
		s.vel = 0
		s.animating = true
	}
	s.target = target
	return s.tick()
}

func (s *Synchronizer) jump(y int) {
	s.animating = false
	s.pos, s.vel = float64(y), 0
	s.target = y
	if s.vp != nil {
		s.vp.SetYOffset(y)
	}
}

func (s *Synchronizer) tick() tea.Cmd {
	if s.ticking {
		return nil
	}
	s.ticking = true
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg {
		return FrameMsg{Time: t}
	})
}

func (s *Synchronizer) maxOffset() int {
	if s.vp == nil {
		return 0
	}
	m := s.vp.TotalLines() - s.vp.Height()
	if m < 0 {
		return 0
	}
	return m
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
