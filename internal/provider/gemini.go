// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jeranaias/rigrun-aichat/internal/config"
)

// DefaultGeminiModel is used when ai.gemini.model is empty.
const DefaultGeminiModel = "gemini-pro"

// Gemini streams responses from Google's Gemini API.
type Gemini struct {
	apiKey    string
	model     string
	maxTokens int
}

// NewGemini creates the Gemini provider.
func NewGemini(cfg config.GeminiConfig, maxTokens int) (*Gemini, error) {
	if cfg.APIToken == "" {
		return nil, notConfigured(config.ProviderGemini, "no api token")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{
		apiKey:    cfg.APIToken,
		model:     model,
		maxTokens: orDefault(maxTokens, DefaultMaxTokens),
	}, nil
}

// Name returns "gemini".
func (p *Gemini) Name() string { return config.ProviderGemini }

// Stream sends the last message with the rest as chat history.
func (p *Gemini) Stream(ctx context.Context, messages []Message) (<-chan Chunk, error) {
	history, last, err := geminiHistory(messages)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("error creating gemini client: %w", err)
	}

	model := client.GenerativeModel(p.model)
	model.SetMaxOutputTokens(int32(p.maxTokens))
	cs := model.StartChat()
	cs.History = history
	iter := cs.SendMessageStream(ctx, genai.Text(last))

	out := make(chan Chunk, DefaultStreamChanSize)
	go func() {
		defer close(out)
		defer client.Close()
		e := emitter{ctx: ctx, out: out}
		defer e.guard()

		if !e.send(Chunk{Model: p.model}) {
			return
		}
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				e.send(Chunk{Err: fmt.Errorf("error in streaming: %w", err)})
				return
			}
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					text, ok := part.(genai.Text)
					if !ok {
						continue
					}
					c := Chunk{Text: string(text)}
					if cand.FinishReason != genai.FinishReasonUnspecified {
						c.FinishReason = cand.FinishReason.String()
					}
					if !e.send(c) {
						return
					}
				}
			}
		}
	}()
	return out, nil
}

// geminiHistory splits messages into chat history and the prompt to send.
// Gemini knows only the user and model roles; system text is sent as user.
func geminiHistory(messages []Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 || messages[len(messages)-1].Content == "" {
		return nil, "", errors.New("no prompt provided")
	}
	var history []*genai.Content
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Parts: []genai.Part{genai.Text(m.Content)},
			Role:  role,
		})
	}
	return history, messages[len(messages)-1].Content, nil
}
