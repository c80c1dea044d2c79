// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider adapts LLM backends to one streaming interface.
//
// Every provider turns a prompt history into a channel of Chunks. The
// channel is closed when the response ends; a failure mid-stream arrives
// as a final Chunk with Err set.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/rigrun-aichat/internal/config"
)

// ErrNotConfigured is returned by New when a provider lacks a required
// setting.
var ErrNotConfigured = errors.New("provider not configured")

// Role of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the prompt history.
type Message struct {
	Role    Role
	Content string
}

// Chunk is a piece of a streamed response.
type Chunk struct {
	Text         string
	Model        string
	FinishReason string
	Err          error
}

// Provider streams a response for a prompt history.
type Provider interface {
	Name() string
	Stream(ctx context.Context, messages []Message) (<-chan Chunk, error)
}

// DefaultStreamChanSize is the buffer of every provider's chunk channel.
const DefaultStreamChanSize = 10

// New constructs the named provider from cfg.
func New(cfg config.AIConfig, name string) (Provider, error) {
	switch name {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI, cfg.MaxTokens)
	case config.ProviderAzure:
		return NewAzure(cfg.Azure, cfg.MaxTokens)
	case config.ProviderGemini:
		return NewGemini(cfg.Gemini, cfg.MaxTokens)
	case config.ProviderOllama:
		return NewOllama(cfg.Ollama, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// Configured reports whether New would succeed for name.
func Configured(cfg config.AIConfig, name string) bool {
	_, err := New(cfg, name)
	return err == nil
}

func notConfigured(provider, what string) error {
	return fmt.Errorf("%w: %s: %s", ErrNotConfigured, provider, what)
}

// emitter sends chunks until the consumer goes away.
type emitter struct {
	ctx context.Context
	out chan<- Chunk
}

func (e emitter) send(c Chunk) bool {
	select {
	case e.out <- c:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// guard converts a panic in a stream goroutine into an error chunk.
func (e emitter) guard() {
	if r := recover(); r != nil {
		e.send(Chunk{Err: fmt.Errorf("provider panic: %v", r)})
	}
}
