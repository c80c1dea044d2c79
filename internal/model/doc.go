// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat transcript entries.
//
// # Key Types
//
//   - ChatMessage: One transcript entry, either a user query or an assistant response
//   - AssistantResponse: Streamed reply content, error text and streaming flag
//   - Role: Entry role enumeration (user, assistant)
//
// # Usage
//
// Start a turn:
//
//	user := model.NewUserQuery("how do I list open ports?")
//	reply := model.NewAssistantPlaceholder()
//	reply.Response.Message += "Try `ss -tlnp`"
//	reply.Response.Finalize()
package model
