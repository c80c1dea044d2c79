// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat transcript entries.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// ASSISTANT RESPONSE
// =============================================================================

// AssistantResponse is the mutable payload of an assistant entry.
// Message grows while Streaming is true.
type AssistantResponse struct {
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	Streaming    bool   `json:"streaming"`
	Model        string `json:"model,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Finalize marks the response as complete.
func (r *AssistantResponse) Finalize() {
	r.Streaming = false
}

// IsPending reports whether the response is still waiting for its first token.
func (r *AssistantResponse) IsPending() bool {
	return r.Streaming && r.Message == "" && r.Error == ""
}

// =============================================================================
// CHAT MESSAGE
// =============================================================================

// ChatMessage is one entry of the transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// UserQuery is what the user typed (role=user).
	UserQuery string `json:"user_query,omitempty"`

	// EngineeredQuery is the prompt actually sent to the provider for this
	// query, when it differs from UserQuery.
	EngineeredQuery string `json:"engineered_query,omitempty"`

	// Response is set for role=assistant.
	Response *AssistantResponse `json:"response,omitempty"`
}

// NewUserQuery creates a user entry.
func NewUserQuery(query string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		CreatedAt: time.Now(),
		UserQuery: query,
	}
}

// NewAssistantPlaceholder creates a streaming assistant entry with no content yet.
func NewAssistantPlaceholder() ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Response:  &AssistantResponse{Streaming: true},
	}
}

// IsAssistant reports whether the entry is an assistant response.
func (m ChatMessage) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// IsStreaming reports whether the entry is an assistant response still receiving content.
func (m ChatMessage) IsStreaming() bool {
	return m.Role == RoleAssistant && m.Response != nil && m.Response.Streaming
}

// Text returns the displayable text of the entry: the query for user entries
// and the response message for assistant entries.
func (m ChatMessage) Text() string {
	if m.Role == RoleUser {
		return m.UserQuery
	}
	if m.Response == nil {
		return ""
	}
	return m.Response.Message
}

// PromptText returns the content sent to a provider for this entry.
func (m ChatMessage) PromptText() string {
	if m.Role == RoleUser && m.EngineeredQuery != "" {
		return m.EngineeredQuery
	}
	return m.Text()
}

// Clone returns a deep copy so callers can hand out entries without sharing
// the response pointer.
func (m ChatMessage) Clone() ChatMessage {
	out := m
	if m.Response != nil {
		resp := *m.Response
		out.Response = &resp
	}
	return out
}
