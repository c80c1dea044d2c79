// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peterh/liner"

	"github.com/jeranaias/rigrun-aichat/internal/assistant"
	"github.com/jeranaias/rigrun-aichat/internal/config"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineReader reads prompted lines. ChatCLI implements it with liner.
type LineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides line editing and input history for line-mode chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads saved input history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory reads input history from disk.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads one line. Non-blank input is added to history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter is the assistant's sender in line mode. It applies each
// message to the transcript and prints the text as it arrives. Only the
// submission goroutine calls it while the prompt loop waits.
type streamPrinter struct {
	mu  sync.Mutex
	svc *assistant.Service
	out io.Writer
	err error
}

func (p *streamPrinter) Send(msg tea.Msg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.svc.Apply(msg)

	switch m := msg.(type) {
	case assistant.BeginMsg:
		p.err = nil
	case assistant.ChunkMsg:
		fmt.Fprint(p.out, m.Text)
	case assistant.DoneMsg:
		fmt.Fprint(p.out, m.Text)
		fmt.Fprintln(p.out)
		if m.Err != nil {
			p.err = m.Err
			fmt.Fprintln(p.out, errorStyle.Render("[Error]"), m.Err.Error())
		}
	}
}

// lastErr returns the error of the most recent response.
func (p *streamPrinter) lastErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
