// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the top-level bubbletea model: a host command pane on the
// left and the chat sidebar on the right.
package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"pkt.systems/pslog"

	"github.com/jeranaias/rigrun-aichat/internal/assistant"
	"github.com/jeranaias/rigrun-aichat/internal/config"
	"github.com/jeranaias/rigrun-aichat/internal/hostcmd"
	"github.com/jeranaias/rigrun-aichat/internal/keybind"
	"github.com/jeranaias/rigrun-aichat/internal/submit"
	"github.com/jeranaias/rigrun-aichat/internal/transcript"
	"github.com/jeranaias/rigrun-aichat/internal/ui/sidebar"
	"github.com/jeranaias/rigrun-aichat/internal/ui/styles"
)

// Panel and Scope name the app-wide key bindings.
const (
	Panel = "app"
	Scope = "global"
)

// minCommandWidth keeps the command pane usable next to a wide sidebar.
const minCommandWidth = 24

// =============================================================================
// MESSAGES
// =============================================================================

// ConfigReloadedMsg carries the result of a config file reload.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// commandDoneMsg reports a finished host command.
type commandDoneMsg struct {
	result submit.CmdAndOutput
	err    error
}

// =============================================================================
// MODEL
// =============================================================================

// Options configures a Model.
type Options struct {
	Context   context.Context
	Config    *config.Config
	Store     *transcript.Store
	Assistant *assistant.Service
	Runner    *hostcmd.Runner
	Theme     *styles.Theme
	Logger    pslog.Logger
	Clipboard func(string) error
}

// Model is the application model.
type Model struct {
	ctx      context.Context
	cfg      *config.Config
	svc      *assistant.Service
	runner   *hostcmd.Runner
	theme    *styles.Theme
	log      pslog.Logger
	registry *keybind.Registry
	pipeline *submit.Pipeline

	cmdline *CommandLine
	output  viewport.Model
	runs    []string
	running bool
	sidebar *sidebar.Model

	width, height int
	pending       []tea.Cmd
	quitting      bool
}

// New wires the command line, submission pipeline and sidebar together.
func New(opts Options) *Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Store == nil {
		opts.Store = transcript.New()
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme()
	}
	if opts.Logger == nil {
		opts.Logger = pslog.Ctx(opts.Context)
	}
	if opts.Runner == nil {
		opts.Runner = &hostcmd.Runner{Shell: opts.Config.AI.Shell}
	}

	m := &Model{
		ctx:      opts.Context,
		cfg:      opts.Config,
		svc:      opts.Assistant,
		runner:   opts.Runner,
		theme:    opts.Theme,
		log:      opts.Logger.With("component", "app"),
		registry: keybind.NewRegistry(keybind.DefaultKeyMap()),
		output:   viewport.New(0, 0),
	}
	m.output.KeyMap = viewport.KeyMap{}
	m.cmdline = NewCommandLine(m.focusCommandLine)

	var submitter submit.Submitter
	if opts.Assistant != nil {
		submitter = opts.Assistant
	}
	m.pipeline = submit.New(opts.Context, submit.Options{
		Submitter:   submitter,
		CommandLine: m.cmdline,
		Draft:       m.cmdline.Value,
		Logger:      opts.Logger,
	})

	sbOpts := sidebar.Options{
		Theme:        opts.Theme,
		Store:        opts.Store,
		Registry:     m.registry,
		Pipeline:     m.pipeline,
		Logger:       opts.Logger,
		ScrollMargin: opts.Config.UI.ScrollMargin,
		CodeTheme:    opts.Config.UI.CodeTheme,
		Clipboard:    opts.Clipboard,
	}
	if opts.Assistant != nil {
		sbOpts.Assistant = opts.Assistant
	}
	m.sidebar = sidebar.New(sbOpts)
	if opts.Config.UI.SidebarCollapsed {
		m.sidebar.Collapse()
	}

	m.registry.Register(Panel, Scope, keybind.ActionQuit, m.quit)
	m.registry.Register(Panel, Scope, keybind.ActionToggleSidebar, m.toggleSidebar)
	m.registry.Register(Panel, Scope, keybind.ActionSwitchFocus, m.switchFocus)
	return m
}

// Sidebar returns the chat sidebar.
func (m *Model) Sidebar() *sidebar.Model {
	return m.sidebar
}

// CommandLine returns the host command line.
func (m *Model) CommandLine() *CommandLine {
	return m.cmdline
}

// Pipeline returns the submission pipeline.
func (m *Model) Pipeline() *submit.Pipeline {
	return m.pipeline
}

// Init focuses the sidebar, or the command line when the sidebar starts
// collapsed.
func (m *Model) Init() tea.Cmd {
	if m.sidebar.Collapsed() {
		return m.cmdline.focus()
	}
	return m.sidebar.Focus()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update routes msg to the app bindings and then to the focused pane.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.queue(m.layout())

	case tea.KeyMsg:
		if m.registry.HandleKey(Panel, msg) {
			break
		}
		if m.sidebar.Focused() {
			m.queue(m.sidebar.Update(msg))
			break
		}
		m.queue(m.updateCommandLine(msg))

	case tea.MouseMsg:
		m.handleMouse(msg)

	case commandDoneMsg:
		m.finishCommand(msg)

	case ConfigReloadedMsg:
		m.applyConfig(msg)

	default:
		m.queue(m.sidebar.Update(msg))
		m.queue(m.cmdline.update(msg))
	}

	cmds := m.pending
	m.pending = nil
	if m.quitting {
		cmds = append(cmds, tea.Quit)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) updateCommandLine(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEnter {
		return m.runCommand()
	}
	return m.cmdline.update(msg)
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	cmdWidth := m.commandWidth()
	if !m.sidebar.Collapsed() && msg.X >= cmdWidth {
		wasFocused := m.sidebar.Focused()
		local := msg
		local.X -= cmdWidth
		m.queue(m.sidebar.Update(local))
		if !wasFocused && m.sidebar.Focused() {
			m.cmdline.blur()
		}
		return
	}
	if msg.IsWheel() {
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		m.queue(cmd)
		return
	}
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && m.sidebar.Focused() {
		m.focusCommandLine()
	}
}

// =============================================================================
// KEY HANDLERS
// =============================================================================

func (m *Model) quit() bool {
	if m.svc != nil {
		m.svc.Stop()
	}
	m.quitting = true
	return true
}

func (m *Model) toggleSidebar() bool {
	if m.sidebar.Collapsed() {
		m.queue(m.sidebar.Expand())
		m.queue(m.layout())
		m.cmdline.blur()
		m.queue(m.sidebar.Focus())
		m.log.Debug("sidebar.expand")
		return true
	}
	m.sidebar.Collapse()
	m.queue(m.layout())
	m.queue(m.cmdline.focus())
	m.log.Debug("sidebar.collapse")
	return true
}

func (m *Model) switchFocus() bool {
	if m.sidebar.Collapsed() {
		return false
	}
	if m.sidebar.Focused() {
		m.focusCommandLine()
		return true
	}
	m.cmdline.blur()
	m.queue(m.sidebar.Focus())
	return true
}

// focusCommandLine moves focus from the sidebar to the command line. The
// command line calls it when chat code is injected.
func (m *Model) focusCommandLine() {
	m.sidebar.Blur()
	m.queue(m.cmdline.focus())
}

// =============================================================================
// HOST COMMANDS
// =============================================================================

func (m *Model) runCommand() tea.Cmd {
	command := strings.TrimSpace(m.cmdline.Value())
	if command == "" || m.running {
		return nil
	}
	m.running = true
	m.cmdline.SetText("")
	m.appendRun(m.theme.CommandPrompt.Render("$ ") + command)

	ctx, runner := m.ctx, m.runner
	return func() tea.Msg {
		co, err := runner.Run(ctx, command)
		return commandDoneMsg{result: co, err: err}
	}
}

func (m *Model) finishCommand(msg commandDoneMsg) {
	m.running = false
	if msg.err != nil {
		m.log.Warn("hostcmd.run.failed", "err", msg.err)
		m.appendRun(m.theme.CommandFailed.Render(msg.err.Error()))
		return
	}
	co := msg.result
	style := m.theme.CommandOutput
	if co.IsError {
		style = m.theme.CommandFailed
	}
	if co.Output != "" {
		m.appendRun(style.Render(co.Output))
	}
	m.log.Debug("hostcmd.run", "command", co.Command, "rows", co.RowCount, "error", co.IsError)
	m.sidebar.SetCmdAndOutput(co)
}

func (m *Model) appendRun(s string) {
	m.runs = append(m.runs, s)
	m.output.SetContent(strings.Join(m.runs, "\n"))
	m.output.GotoBottom()
}

// =============================================================================
// CONFIG
// =============================================================================

func (m *Model) applyConfig(msg ConfigReloadedMsg) {
	if msg.Err != nil || msg.Config == nil {
		// Keep running with the last good config.
		m.log.Warn("config.reload.failed", "err", msg.Err)
		return
	}
	m.cfg = msg.Config
	if m.svc != nil {
		m.svc.UpdateConfig(msg.Config.AI)
	}
	m.runner.Shell = msg.Config.AI.Shell
	m.queue(m.layout())
	m.log.Info("config.reload", "provider", msg.Config.AI.DefaultProvider)
}

// =============================================================================
// LAYOUT AND VIEW
// =============================================================================

func (m *Model) sidebarWidth() int {
	if m.sidebar.Collapsed() {
		return 0
	}
	w := m.cfg.UI.SidebarWidth
	if limit := m.width - minCommandWidth; w > limit {
		w = limit
	}
	return max(w, 0)
}

func (m *Model) commandWidth() int {
	return m.width - m.sidebarWidth()
}

func (m *Model) layout() tea.Cmd {
	if m.width == 0 {
		return nil
	}
	cw := m.commandWidth()
	inner := max(cw-m.theme.CommandPane.GetHorizontalFrameSize(), 1)
	m.cmdline.setWidth(inner)
	m.output.Width = inner
	m.output.Height = max(m.height-2, 1)
	m.output.GotoBottom()

	if sw := m.sidebarWidth(); sw > 0 {
		return m.sidebar.SetSize(sw, m.height)
	}
	return nil
}

// View renders both panes side by side.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	status := "Tab switch pane · C-b toggle chat · C-c quit"
	if m.running {
		status = "running..."
	}
	left := m.theme.CommandPane.
		Width(m.commandWidth()).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			m.output.View(),
			m.cmdline.view(),
			m.theme.StatusLine.Render(status),
		))
	if m.sidebar.Collapsed() {
		return left
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, m.sidebar.View())
}

func (m *Model) queue(cmd tea.Cmd) {
	if cmd != nil {
		m.pending = append(m.pending, cmd)
	}
}
