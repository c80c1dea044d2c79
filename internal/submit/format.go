// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package submit

import "strings"

const (
	// truncateRows is the row count above which output is elided.
	truncateRows = 100
	// keepLines is how many lines survive at each end of elided output.
	keepLines = 10
)

// CmdAndOutput is a host command together with what it printed.
type CmdAndOutput struct {
	Command  string
	Output   string
	RowCount int
	IsError  bool
}

// FormChatMessage turns a command and its output into a chat message asking
// the assistant what to do next. It returns "" when there is no command.
func FormChatMessage(c CmdAndOutput) string {
	if c.Command == "" {
		return ""
	}

	output := strings.ReplaceAll(c.Output, "`", "\\`")
	if c.RowCount > truncateRows {
		output = elide(output)
	}

	var b strings.Builder
	b.WriteString("I ran the command: `")
	b.WriteString(c.Command)
	b.WriteString("` and got the following output:\n\n")
	if output != "" {
		b.WriteString("```\n")
		b.WriteString(output)
		b.WriteString("\n```")
	}
	if c.IsError {
		b.WriteString("\n\nHow should I fix this?")
	} else {
		b.WriteString("\n\nWhat should I do next?")
	}
	return b.String()
}

// elide keeps the first and last keepLines lines with three "." lines
// between. Short output repeats lines that fall in both halves.
func elide(s string) string {
	lines := strings.Split(s, "\n")
	n := len(lines)
	out := make([]string, 0, 2*keepLines+3)
	out = append(out, lines[:min(keepLines, n)]...)
	out = append(out, ".", ".", ".")
	out = append(out, lines[max(0, n-keepLines):]...)
	return strings.Join(out, "\n")
}
