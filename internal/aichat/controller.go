// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package aichat wires the transcript, block selection, scrolling, key
// dispatch and submission into the controller behind the chat sidebar.
//
// Every method runs on the bubbletea update goroutine. Scroll animations
// produce commands that the host collects with Cmd after each update.
package aichat

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"pkt.systems/pslog"

	"github.com/jeranaias/rigrun-aichat/internal/keybind"
	"github.com/jeranaias/rigrun-aichat/internal/model"
	"github.com/jeranaias/rigrun-aichat/internal/render"
	"github.com/jeranaias/rigrun-aichat/internal/scroll"
	"github.com/jeranaias/rigrun-aichat/internal/selection"
	"github.com/jeranaias/rigrun-aichat/internal/submit"
	"github.com/jeranaias/rigrun-aichat/internal/transcript"
)

// Panel and Scope name the keybinding scope owned by the controller.
const (
	Panel = "pane"
	Scope = "aichat"
)

// BlockSource lays out the transcript and reports its code blocks.
// SetTranscript is called before any scroll request so the viewport already
// holds the new content.
type BlockSource interface {
	SetTranscript(snapshot []model.ChatMessage)
	Blocks() []render.BlockDescriptor
}

// Input is the sidebar's free-text field.
type Input interface {
	Caret() selection.Caret
	Value() string
	SetValue(string)
	Reset()
	InsertNewline()
	Focus() tea.Cmd
	Blur()
}

// Sender is the outbound half of the submission pipeline.
type Sender interface {
	Send(text string)
	Inject(text string)
}

// Options configures a Controller.
type Options struct {
	Store    *transcript.Store
	Registry *keybind.Registry
	Pipeline Sender
	Scroll   *scroll.Synchronizer
	Blocks   BlockSource
	Input    Input
	Logger   pslog.Logger

	// Extra bindings registered under the controller's scope, so they share
	// its lifetime.
	Extra map[string]keybind.Handler

	// Clipboard writes text to the system clipboard. Defaults to
	// clipboard.WriteAll.
	Clipboard func(string) error
}

// Controller is the chat transcript interaction controller.
type Controller struct {
	store    *transcript.Store
	registry *keybind.Registry
	pipeline Sender
	scroll   *scroll.Synchronizer
	blocks   BlockSource
	input    Input
	log      pslog.Logger
	extra    map[string]keybind.Handler
	copy     func(string) error

	sel         *selection.Machine
	unsubscribe func()
	active      bool
	pending     []tea.Cmd
	notice      string
}

// New builds a controller. It does nothing until Activate.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if opts.Scroll == nil {
		opts.Scroll = scroll.New(scroll.DefaultMargin)
	}
	if opts.Store == nil {
		opts.Store = transcript.New()
	}
	if opts.Registry == nil {
		opts.Registry = keybind.NewRegistry(keybind.DefaultKeyMap())
	}
	cp := opts.Clipboard
	if cp == nil {
		cp = clipboard.WriteAll
	}
	return &Controller{
		store:    opts.Store,
		registry: opts.Registry,
		pipeline: opts.Pipeline,
		scroll:   opts.Scroll,
		blocks:   opts.Blocks,
		input:    opts.Input,
		log:      logger.With("component", "aichat"),
		extra:    opts.Extra,
		copy:     cp,
		sel:      selection.New(),
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Activate registers the key scope, subscribes to the store and, for an
// empty transcript, asks the assistant for a greeting.
func (c *Controller) Activate() {
	if c.active {
		return
	}
	c.active = true

	bind := func(action string, h keybind.Handler) {
		c.registry.Register(Panel, Scope, action, h)
	}
	bind(keybind.ActionConfirm, c.confirm)
	bind(keybind.ActionExpandTextInput, c.expandTextInput)
	bind(keybind.ActionClearHistory, c.clearHistory)
	bind(keybind.ActionSelectAbove, c.selectAbove)
	bind(keybind.ActionSelectBelow, c.selectBelow)
	bind(keybind.ActionCopyBlock, c.copyBlock)
	bind(keybind.ActionCancel, c.cancel)
	for action, h := range c.extra {
		bind(action, h)
	}

	c.unsubscribe = c.store.Subscribe(c.onStoreEvent)
	if c.blocks != nil {
		c.blocks.SetTranscript(c.store.Snapshot())
	}
	c.log.Debug("aichat.activate", "entries", c.store.Len())

	if c.store.Len() == 0 {
		c.Send("")
	}
}

// Deactivate removes the key scope and store subscription and resets the
// selection and scroll intent. Safe to call more than once.
func (c *Controller) Deactivate() {
	removed := c.registry.UnregisterScope(Panel, Scope)
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.sel.Blur()
	c.scroll.Reset()
	if c.active {
		c.log.Debug("aichat.deactivate", "bindings", removed)
	}
	c.active = false
}

// Active reports whether the controller is registered.
func (c *Controller) Active() bool {
	return c.active
}

// =============================================================================
// EVENTS FROM THE HOST VIEW
// =============================================================================

// HandleKey dispatches msg through the registry and reports whether a
// handler consumed it. Unconsumed keys belong to the input.
func (c *Controller) HandleKey(msg tea.KeyMsg) bool {
	return c.registry.HandleKey(Panel, msg)
}

// ClickBlock selects block i.
func (c *Controller) ClickBlock(i int) {
	c.sel.Click(i, c.blockCount())
	c.afterSelect()
}

// ClickElsewhere returns to the input.
func (c *Controller) ClickElsewhere() {
	c.sel.ClickElsewhere()
	c.toInput()
}

// Blur is called when focus leaves the sidebar.
func (c *Controller) Blur() {
	c.sel.Blur()
	c.scroll.Reset()
}

// SetCmdAndOutput prefills the input with a message about a command the
// user just ran. Nothing is sent.
func (c *Controller) SetCmdAndOutput(co submit.CmdAndOutput) {
	msg := submit.FormChatMessage(co)
	if msg == "" || c.input == nil {
		return
	}
	c.input.SetValue(msg)
}

// =============================================================================
// STATE FOR THE HOST VIEW
// =============================================================================

// Selection returns the current selection.
func (c *Controller) Selection() selection.State {
	return c.sel.State()
}

// SelectedIndex returns the selected block or render.NoSelection.
func (c *Controller) SelectedIndex() int {
	return c.sel.State().IndexOr(render.NoSelection)
}

// Snapshot returns the transcript.
func (c *Controller) Snapshot() []model.ChatMessage {
	return c.store.Snapshot()
}

// Notice returns a one-shot status line, such as a clipboard result, and
// clears it.
func (c *Controller) Notice() string {
	n := c.notice
	c.notice = ""
	return n
}

// Cmd returns the commands produced since the last call.
func (c *Controller) Cmd() tea.Cmd {
	if len(c.pending) == 0 {
		return nil
	}
	cmds := c.pending
	c.pending = nil
	return tea.Batch(cmds...)
}

// =============================================================================
// OUTBOUND ACTIONS
// =============================================================================

// Send submits text to the assistant.
func (c *Controller) Send(text string) {
	if c.pipeline == nil {
		c.log.Warn("aichat.send.skipped", "reason", "no pipeline")
		return
	}
	c.pipeline.Send(text)
}

// Inject places text in the host command line.
func (c *Controller) Inject(text string) {
	if c.pipeline == nil {
		return
	}
	c.pipeline.Inject(text)
}

// ClearHistory empties the transcript.
func (c *Controller) ClearHistory() {
	c.store.Clear()
}

// =============================================================================
// KEY HANDLERS
// =============================================================================

func (c *Controller) confirm() bool {
	var value string
	if c.input != nil {
		value = c.input.Value()
	}
	out := c.sel.Confirm(c.blockTexts(), value)
	switch out.Action {
	case selection.ActionSend:
		c.input.Reset()
		c.Send(out.Text)
	case selection.ActionInject:
		c.scroll.Reset()
		c.Inject(out.Text)
		if c.input != nil {
			c.input.Blur()
		}
	default:
		if c.sel.State().IsIdle() {
			c.scroll.Reset()
		}
	}
	return true
}

func (c *Controller) expandTextInput() bool {
	if c.input == nil || !c.sel.State().IsIdle() {
		return false
	}
	c.input.InsertNewline()
	return true
}

func (c *Controller) clearHistory() bool {
	c.ClearHistory()
	return true
}

func (c *Controller) selectAbove() bool {
	var caret selection.Caret
	if c.input != nil {
		caret = c.input.Caret()
	}
	return c.applyEffect(c.sel.ArrowUp(caret, c.blockCount()))
}

func (c *Controller) selectBelow() bool {
	return c.applyEffect(c.sel.ArrowDown(c.blockCount()))
}

func (c *Controller) cancel() bool {
	if c.sel.State().IsIdle() {
		return false
	}
	c.sel.ClickElsewhere()
	c.toInput()
	return true
}

func (c *Controller) copyBlock() bool {
	i, ok := c.sel.State().Index()
	if !ok {
		return false
	}
	texts := c.blockTexts()
	if i >= len(texts) {
		c.sel.Validate(len(texts))
		return false
	}
	if err := c.copy(strings.TrimSuffix(texts[i], "\n")); err != nil {
		c.log.Warn("aichat.copy.failed", "err", err)
		c.notice = "Clipboard unavailable"
		return true
	}
	c.notice = "Copied block to clipboard"
	return true
}

func (c *Controller) applyEffect(eff selection.Effect) bool {
	switch eff {
	case selection.EffectFocusInput:
		c.toInput()
		return true
	case selection.EffectConsumed:
		c.afterSelect()
		return true
	default:
		return false
	}
}

// afterSelect scrolls to the selected block, or returns to the input when
// the transition ended Idle.
func (c *Controller) afterSelect() {
	i, ok := c.sel.State().Index()
	if !ok {
		c.toInput()
		return
	}
	if c.input != nil {
		c.input.Blur()
	}
	blocks := c.currentBlocks()
	if i >= len(blocks) {
		return
	}
	b := blocks[i]
	c.queue(c.scroll.FollowBlock(i, b.Top, b.Height))
}

func (c *Controller) toInput() {
	c.scroll.Reset()
	if c.input != nil {
		c.queue(c.input.Focus())
	}
}

// =============================================================================
// STORE OBSERVER
// =============================================================================

func (c *Controller) onStoreEvent(ev transcript.Event) {
	if c.blocks != nil {
		c.blocks.SetTranscript(ev.Snapshot)
	}
	n := c.blockCount()

	switch ev.Kind {
	case transcript.EventCleared:
		c.sel.Validate(n)
		c.scroll.Reset()
		c.queue(c.scroll.ContentChanged(true))
	case transcript.EventAppended:
		c.sel.Validate(n)
		c.queue(c.scroll.ContentChanged(true))
	case transcript.EventMutated:
		c.sel.Validate(n)
		c.queue(c.scroll.ContentChanged(false))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Controller) queue(cmd tea.Cmd) {
	if cmd != nil {
		c.pending = append(c.pending, cmd)
	}
}

func (c *Controller) currentBlocks() []render.BlockDescriptor {
	if c.blocks == nil {
		return nil
	}
	return c.blocks.Blocks()
}

func (c *Controller) blockCount() int {
	return len(c.currentBlocks())
}

func (c *Controller) blockTexts() []string {
	blocks := c.currentBlocks()
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	return texts
}
