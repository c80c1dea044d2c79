// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"

	"github.com/jeranaias/rigrun-aichat/internal/config"
	"github.com/jeranaias/rigrun-aichat/internal/ollama"
)

// Ollama streams from a local Ollama server.
type Ollama struct {
	client    *ollama.Client
	model     string
	maxTokens int
}

// NewOllama creates the Ollama provider. It needs no credentials.
func NewOllama(cfg config.OllamaConfig, maxTokens int) (*Ollama, error) {
	if cfg.URL == "" {
		return nil, notConfigured(config.ProviderOllama, "no url")
	}
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.URL,
		DefaultModel: cfg.Model,
	})
	return &Ollama{client: client, model: client.GetDefaultModel(), maxTokens: maxTokens}, nil
}

// Name returns "ollama".
func (p *Ollama) Name() string { return config.ProviderOllama }

// Stream starts a chat stream.
func (p *Ollama) Stream(ctx context.Context, messages []Message) (<-chan Chunk, error) {
	msgs := make([]ollama.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, ollama.Message{Role: string(m.Role), Content: m.Content})
	}
	in := p.client.ChatStreamChan(ctx, p.model, msgs, p.maxTokens)

	out := make(chan Chunk, DefaultStreamChanSize)
	go func() {
		defer close(out)
		e := emitter{ctx: ctx, out: out}
		defer e.guard()

		sentHeader := false
		for c := range in {
			if c.Error != nil {
				e.send(Chunk{Err: c.Error})
				continue
			}
			if !sentHeader && c.Model != "" {
				if !e.send(Chunk{Model: c.Model}) {
					return
				}
				sentHeader = true
			}
			chunk := Chunk{Text: c.Content}
			if c.Done {
				chunk.FinishReason = c.DoneReason
				if chunk.FinishReason == "" {
					chunk.FinishReason = "stop"
				}
			}
			if chunk.Text == "" && chunk.FinishReason == "" {
				continue
			}
			if !e.send(chunk) {
				return
			}
		}
	}()
	return out, nil
}
