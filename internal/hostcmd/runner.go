// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package hostcmd runs commands typed into the host command line and
// captures what they print, for handing to the chat sidebar.
package hostcmd

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/rigrun-aichat/internal/submit"
)

// Defaults for Runner.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxOutputSize = 256 * 1024
)

// ErrEmptyCommand is returned by Run for a blank command.
var ErrEmptyCommand = errors.New("hostcmd: empty command")

// Runner executes commands non-interactively through the platform shell.
type Runner struct {
	// Shell overrides the shell binary. Empty means bash (cmd on Windows).
	Shell string
	// WorkDir is the working directory. Empty means the current one.
	WorkDir string
	// Timeout bounds each command. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxOutputSize caps captured bytes. Zero means DefaultMaxOutputSize.
	MaxOutputSize int
}

// Run executes command and returns its combined output. A non-zero exit,
// a timeout or a failure to start is reported through IsError rather than
// as an error; the error return is for blank input only.
func (r *Runner) Run(ctx context.Context, command string) (submit.CmdAndOutput, error) {
	// Normalize to NFKC so lookalike characters pasted from chat run as
	// the ASCII the user sees.
	command = strings.TrimSpace(norm.NFKC.String(command))
	if command == "" {
		return submit.CmdAndOutput{}, ErrEmptyCommand
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := r.MaxOutputSize
	if limit <= 0 {
		limit = DefaultMaxOutputSize
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := r.command(cmdCtx, command)
	// Background children can hold the pipes open after a kill.
	cmd.WaitDelay = time.Second
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}

	// One buffer for both streams keeps their interleaving.
	out := &capBuffer{limit: limit}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()

	result := submit.CmdAndOutput{Command: command}
	output := strings.TrimRight(out.String(), "\n")
	if out.truncated {
		output += "\n[output truncated at " + strconv.Itoa(limit) + " bytes]"
	}

	switch {
	case errors.Is(cmdCtx.Err(), context.DeadlineExceeded):
		result.IsError = true
		output = appendLine(output, "command timed out after "+timeout.String())
	case errors.Is(cmdCtx.Err(), context.Canceled):
		result.IsError = true
		output = appendLine(output, "command cancelled")
	case err != nil:
		result.IsError = true
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			output = appendLine(output, err.Error())
		}
	}

	result.Output = output
	if output != "" {
		result.RowCount = strings.Count(output, "\n") + 1
	}
	return result, nil
}

func (r *Runner) command(ctx context.Context, command string) *exec.Cmd {
	if r.Shell != "" {
		return exec.CommandContext(ctx, r.Shell, "-c", command)
	}
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "bash", "-c", command)
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	return s + "\n" + line
}

// capBuffer keeps the first limit bytes written and discards the rest.
// os/exec writes stdout and stderr from separate goroutines.
type capBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *capBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room < len(p) {
		b.truncated = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *capBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
