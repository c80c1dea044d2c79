// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the aichat command tree.
//
// Without a subcommand aichat opens the full-screen UI: a host command
// pane with the chat sidebar beside it. The remaining commands work in
// line mode and share the same transcript, history and providers:
//
//	aichat                      start the UI
//	aichat ask [question]       one-shot question, or a line-mode chat
//	aichat config show|get|set|path
//	aichat history list|clear
//	aichat providers            provider status
//	aichat version
//
// The UI logs to the log file; line-mode commands log to stderr.
package cli
