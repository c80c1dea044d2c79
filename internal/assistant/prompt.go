// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	promptPreamble = "You are an AI assistant with deep expertise in command line interfaces, CLI programs, and shell scripting. " +
		"Your task is to help the user to fix an existing command that will be provided, or if no command is provided, " +
		"help write a new command that the user requires. Feel free to provide appropriate context, but try to keep your " +
		"answers short and to the point as the user is asking for help because they are trying to get a task done immediately."
	promptFormatting = "Please ensure any command line suggestions or code snippets or scripts that are meant to be run by " +
		"the user are enclosed in triple backquotes for easy copy and paste into the terminal.  Also note that any response " +
		"you give will be rendered in markdown."
)

// EngineeredPrompt wraps the user's query with shell and OS context and the
// command they are working on, if any.
func EngineeredPrompt(query, curLine, shell, osType string) string {
	var sb strings.Builder
	sb.WriteString(promptPreamble)
	sb.WriteString(" The user is current using the \"" + shell + "\" shell on " + osType + ".")
	if strings.TrimSpace(curLine) != "" {
		sb.WriteString(" The user is currently working with the command: ```\n" + curLine + "\n```\n\n")
	}
	sb.WriteString(promptFormatting)
	sb.WriteString(" The user's question is:\n\n" + query)
	return sb.String()
}

// OSType names the running OS the way users do.
func OSType() string {
	return osTypeFor(runtime.GOOS)
}

func osTypeFor(goos string) string {
	if goos == "darwin" {
		return "macos"
	}
	return goos
}

// DetectShell returns the base name of $SHELL, or the platform default.
func DetectShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return filepath.Base(sh)
	}
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "bash"
}
