// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama is a small HTTP client for a local Ollama server.
//
// Only what the chat sidebar needs is here: a health check, the model list
// and streaming chat over /api/chat, which answers with one JSON object per
// line.
//
//	client := ollama.NewClient()
//	for chunk := range client.ChatStreamChan(ctx, "", msgs, 0) {
//	    if chunk.Error != nil {
//	        return chunk.Error
//	    }
//	    fmt.Print(chunk.Content)
//	}
package ollama
