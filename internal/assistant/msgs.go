// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages to the UI goroutine. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(tea.Msg)

// Send calls f(msg).
func (f SenderFunc) Send(msg tea.Msg) { f(msg) }

// BeginMsg reports that the stream for the placeholder with ID started.
// The entries themselves are already in the transcript.
type BeginMsg struct {
	ID string
}

// ChunkMsg carries accumulated text for the placeholder with ID.
type ChunkMsg struct {
	ID    string
	Text  string
	Model string
}

// DoneMsg finishes the placeholder with ID. Text is any unflushed tail.
type DoneMsg struct {
	ID           string
	Text         string
	Model        string
	FinishReason string
	Err          error
}
