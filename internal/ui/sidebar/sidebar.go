// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sidebar is the chat pane: transcript viewport, input, provider
// footer and welcome panel. Key and mouse handling goes through the
// aichat controller; this package only lays things out and routes events.
package sidebar

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"pkt.systems/pslog"

	"github.com/jeranaias/rigrun-aichat/internal/aichat"
	"github.com/jeranaias/rigrun-aichat/internal/assistant"
	"github.com/jeranaias/rigrun-aichat/internal/config"
	"github.com/jeranaias/rigrun-aichat/internal/keybind"
	"github.com/jeranaias/rigrun-aichat/internal/render"
	"github.com/jeranaias/rigrun-aichat/internal/scroll"
	"github.com/jeranaias/rigrun-aichat/internal/submit"
	"github.com/jeranaias/rigrun-aichat/internal/transcript"
	"github.com/jeranaias/rigrun-aichat/internal/ui/styles"
)

// SelectionHint is shown while a code block is selected.
const SelectionHint = "Press Enter to execute selected code"

const title = "✦ AI Chat"

// Assistant is the part of the assistant service the sidebar drives.
type Assistant interface {
	Apply(msg tea.Msg) bool
	Provider() string
	CycleProvider() string
}

// Options configures a Model.
type Options struct {
	Theme     *styles.Theme
	Store     *transcript.Store
	Registry  *keybind.Registry
	Pipeline  aichat.Sender
	Assistant Assistant
	Logger    pslog.Logger

	// ScrollMargin is the follow margin in rows. Negative selects the
	// default.
	ScrollMargin int
	CodeTheme    string
	// MaxInputHeight caps input auto-grow. Zero selects the default.
	MaxInputHeight int
	Clipboard      func(string) error
}

// Model is the sidebar. It is used through a pointer because the
// controller keeps references to its input and viewport.
type Model struct {
	theme *styles.Theme
	store *transcript.Store
	keys  keybind.KeyMap
	svc   Assistant
	log   pslog.Logger

	ctrl   *aichat.Controller
	scroll *scroll.Synchronizer
	pane   *pane
	input  *Input
	vp     viewport.Model
	spin   spinner.Model
	help   help.Model

	width, height int
	focused       bool
	collapsed     bool
	ticking       bool
	notice        string
}

// New builds the sidebar and its controller. The controller stays inactive
// until Expand or the first SetSize.
func New(opts Options) *Model {
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme()
	}
	if opts.Store == nil {
		opts.Store = transcript.New()
	}
	if opts.Registry == nil {
		opts.Registry = keybind.NewRegistry(keybind.DefaultKeyMap())
	}
	if opts.Logger == nil {
		opts.Logger = pslog.Ctx(context.Background())
	}

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"●∙∙", "∙●∙", "∙∙●", "∙●∙"},
		FPS:    time.Second / 6,
	}
	sp.Style = lipgloss.NewStyle().Foreground(styles.Purple)

	m := &Model{
		theme:  opts.Theme,
		store:  opts.Store,
		keys:   opts.Registry.Keys(),
		svc:    opts.Assistant,
		log:    opts.Logger.With("component", "sidebar"),
		scroll: scroll.New(opts.ScrollMargin),
		input:  NewInput(opts.MaxInputHeight),
		vp:     viewport.New(0, 0),
		spin:   sp,
		help:   help.New(),
	}
	m.vp.KeyMap = viewport.KeyMap{}
	m.vp.MouseWheelEnabled = true

	rnd := render.New(render.Options{
		MarkdownStyle: opts.Theme.MarkdownStyle(),
		CodeTheme:     opts.CodeTheme,
	})
	m.pane = newPane(render.NewView(rnd), &m.vp)

	extra := map[string]keybind.Handler{}
	if m.svc != nil {
		extra[keybind.ActionCycleProvider] = m.cycleProvider
	}
	m.ctrl = aichat.New(aichat.Options{
		Store:     opts.Store,
		Registry:  opts.Registry,
		Pipeline:  opts.Pipeline,
		Scroll:    m.scroll,
		Blocks:    m.pane,
		Input:     m.input,
		Logger:    opts.Logger,
		Extra:     extra,
		Clipboard: opts.Clipboard,
	})
	return m
}

// Controller returns the interaction controller.
func (m *Model) Controller() *aichat.Controller {
	return m.ctrl
}

// Input returns the free-text input.
func (m *Model) Input() *Input {
	return m.input
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// SetSize lays the sidebar out in width x height cells, borders included.
// The first call activates the controller and attaches the viewport.
func (m *Model) SetSize(width, height int) tea.Cmd {
	m.width, m.height = width, height
	m.layout()
	if m.collapsed {
		return nil
	}
	if !m.ctrl.Active() {
		return m.activate()
	}
	return m.scroll.ContentChanged(false)
}

// Collapse hides the sidebar and releases its key scope.
func (m *Model) Collapse() {
	if m.collapsed {
		return
	}
	m.collapsed = true
	m.ctrl.Deactivate()
	m.scroll.Detach()
	m.input.Blur()
	m.focused = false
}

// Expand shows the sidebar again.
func (m *Model) Expand() tea.Cmd {
	if !m.collapsed {
		return nil
	}
	m.collapsed = false
	m.layout()
	return m.activate()
}

// Collapsed reports whether the sidebar is hidden.
func (m *Model) Collapsed() bool {
	return m.collapsed
}

// Focus gives the sidebar keyboard focus.
func (m *Model) Focus() tea.Cmd {
	if m.collapsed {
		return nil
	}
	m.focused = true
	return m.input.Focus()
}

// Blur removes keyboard focus and drops any block selection.
func (m *Model) Blur() {
	m.focused = false
	m.ctrl.Blur()
	m.input.Blur()
	m.pane.Select(render.NoSelection)
}

// Focused reports whether the sidebar has keyboard focus.
func (m *Model) Focused() bool {
	return m.focused
}

// SetCmdAndOutput prefills the input with the last command and its output.
func (m *Model) SetCmdAndOutput(co submit.CmdAndOutput) {
	m.ctrl.SetCmdAndOutput(co)
	m.layout()
}

func (m *Model) activate() tea.Cmd {
	m.ctrl.Activate()
	m.scroll.Attach(scroll.Bubble{M: &m.vp})
	return tea.Batch(m.ctrl.Cmd(), m.startTicking())
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles keys, mouse events, assistant stream messages, scroll
// frames and spinner ticks. Mouse coordinates are relative to the sidebar.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	if m.collapsed {
		switch msg.(type) {
		case scroll.FrameMsg:
			m.scroll.Update(msg)
		case spinner.TickMsg:
			m.ticking = false
		default:
			// Stream messages still land in the transcript.
			if m.svc != nil {
				m.svc.Apply(msg)
			}
		}
		return nil
	}

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			return nil
		}
		m.notice = ""
		height := m.input.Height()
		if !m.ctrl.HandleKey(msg) {
			cmds = append(cmds, m.input.Update(msg))
		}
		if n := m.ctrl.Notice(); n != "" {
			m.notice = n
		}
		if m.input.Height() != height {
			m.layout()
		}

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case scroll.FrameMsg:
		cmds = append(cmds, m.scroll.Update(msg))

	case spinner.TickMsg:
		if !m.pending() {
			m.ticking = false
			return nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		m.pane.SetTypingIndicator(m.spin.View())
		cmds = append(cmds, cmd)

	default:
		if m.svc != nil && m.svc.Apply(msg) {
			if _, ok := msg.(assistant.BeginMsg); ok {
				cmds = append(cmds, m.startTicking())
			}
		}
	}

	m.pane.Select(m.ctrl.SelectedIndex())
	cmds = append(cmds, m.ctrl.Cmd())
	return tea.Batch(cmds...)
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.IsWheel() {
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return cmd
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return nil
	}

	top := m.viewportTop()
	if msg.Y >= top && msg.Y < top+m.vp.Height && m.store.Len() > 0 {
		if i := m.pane.BlockAt(msg.Y - top + m.vp.YOffset); i != render.NoSelection {
			m.focused = true
			m.ctrl.ClickBlock(i)
			return nil
		}
	}
	m.focused = true
	m.ctrl.ClickElsewhere()
	return nil
}

func (m *Model) cycleProvider() bool {
	name := m.svc.CycleProvider()
	m.log.Info("aichat.provider.selected", "provider", name)
	return true
}

func (m *Model) pending() bool {
	last, ok := m.store.Last()
	return ok && last.IsStreaming()
}

func (m *Model) startTicking() tea.Cmd {
	if m.ticking || !m.pending() {
		return nil
	}
	m.ticking = true
	return m.spin.Tick
}

// =============================================================================
// LAYOUT
// =============================================================================

const (
	titleRows  = 1
	statusRows = 1
	footerRows = 1
)

func (m *Model) innerSize() (int, int) {
	frame := m.theme.SidebarFocused
	w := m.width - frame.GetHorizontalFrameSize()
	h := m.height - frame.GetVerticalFrameSize()
	return max(w, 1), max(h, 1)
}

func (m *Model) layout() {
	w, h := m.innerSize()
	m.input.SetWidth(w - m.theme.InputBox.GetHorizontalFrameSize())
	inputRows := m.input.Height() + m.theme.InputBox.GetVerticalFrameSize()

	m.vp.Height = max(h-titleRows-statusRows-footerRows-inputRows, 1)
	m.pane.SetWidth(w)
	m.help.Width = w
}

// viewportTop is the first sidebar row of the transcript viewport.
func (m *Model) viewportTop() int {
	return m.theme.SidebarFocused.GetBorderTopSize() + titleRows
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the sidebar, or nothing when collapsed.
func (m *Model) View() string {
	if m.collapsed || m.width == 0 {
		return ""
	}
	w, _ := m.innerSize()

	var body string
	if m.store.Len() == 0 {
		body = renderWelcome(m.theme, w, m.vp.Height)
	} else {
		body = m.vp.View()
	}

	inputStyle := m.theme.InputBox
	if m.focused && m.input.Focused() {
		inputStyle = m.theme.InputBoxFocused
	}
	inputBox := inputStyle.
		Width(w - inputStyle.GetHorizontalBorderSize()).
		Render(m.input.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.SidebarTitle.Render(title),
		body,
		m.statusLine(w),
		inputBox,
		m.footer(w),
	)

	frame := m.theme.SidebarBlurred
	if m.focused {
		frame = m.theme.SidebarFocused
	}
	return frame.Render(content)
}

func (m *Model) statusLine(w int) string {
	text := m.notice
	if text == "" && !m.ctrl.Selection().IsIdle() {
		text = SelectionHint
	}
	return m.theme.StatusLine.Width(w).Render(runewidth.Truncate(text, w, "…"))
}

func (m *Model) footer(w int) string {
	var badge string
	if m.svc != nil {
		badge = m.theme.ProviderBadge.Render(ProviderLabel(m.svc.Provider())) + "  "
	}
	m.help.Width = max(w-lipgloss.Width(badge), 0)
	return badge + m.theme.Footer.Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

// ProviderLabel returns the display name of a provider.
func ProviderLabel(name string) string {
	switch name {
	case config.ProviderOpenAI:
		return "OpenAI"
	case config.ProviderAzure:
		return "Azure OpenAI"
	case config.ProviderGemini:
		return "Gemini"
	case config.ProviderOllama:
		return "Ollama"
	default:
		return name
	}
}
