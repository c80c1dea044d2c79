// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/azure"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"

	"github.com/jeranaias/rigrun-aichat/internal/config"
)

// Defaults for the OpenAI-compatible providers.
const (
	DefaultMaxTokens       = 1000
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultAzureModel      = "gpt-35-turbo"
	DefaultAzureAPIVersion = "2024-06-01"
)

// OpenAI streams chat completions from the OpenAI API or an Azure
// deployment.
type OpenAI struct {
	name      string
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates the OpenAI provider.
func NewOpenAI(cfg config.OpenAIConfig, maxTokens int) (*OpenAI, error) {
	if cfg.APIToken == "" {
		return nil, notConfigured(config.ProviderOpenAI, "no api token")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIToken)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{
		name:      config.ProviderOpenAI,
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: orDefault(maxTokens, DefaultMaxTokens),
	}, nil
}

// NewAzure creates the Azure OpenAI provider. The deployment name is sent
// as the model. A "?api-version=" suffix on the base URL overrides
// DefaultAzureAPIVersion.
func NewAzure(cfg config.AzureConfig, maxTokens int) (*OpenAI, error) {
	if cfg.BaseURL == "" {
		return nil, notConfigured(config.ProviderAzure, "no endpoint specified")
	}
	if cfg.APIToken == "" {
		return nil, notConfigured(config.ProviderAzure, "no api token")
	}
	if cfg.DeploymentName == "" {
		return nil, notConfigured(config.ProviderAzure, "no deployment name specified")
	}

	endpoint, version := SplitAzureEndpoint(cfg.BaseURL)
	return &OpenAI{
		name: config.ProviderAzure,
		client: openai.NewClient(
			azure.WithEndpoint(endpoint, version),
			azure.WithAPIKey(cfg.APIToken),
		),
		model:     cfg.DeploymentName,
		maxTokens: orDefault(maxTokens, DefaultMaxTokens),
	}, nil
}

// SplitAzureEndpoint separates an optional ?api-version= suffix from an
// Azure base URL and drops any trailing slash.
func SplitAzureEndpoint(baseURL string) (endpoint, apiVersion string) {
	apiVersion = DefaultAzureAPIVersion
	if idx := strings.Index(baseURL, "?api-version="); idx != -1 {
		if v := baseURL[idx+len("?api-version="):]; v != "" {
			apiVersion = v
		}
		baseURL = baseURL[:idx]
	}
	return strings.TrimSuffix(baseURL, "/"), apiVersion
}

// Name returns "openai" or "azure".
func (p *OpenAI) Name() string { return p.name }

// Model returns the model or deployment name.
func (p *OpenAI) Model() string { return p.model }

// Stream starts a streaming chat completion.
func (p *OpenAI) Stream(ctx context.Context, messages []Message) (<-chan Chunk, error) {
	params := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(p.model),
		Messages:  toOpenAIMessages(messages),
		MaxTokens: param.NewOpt(int64(p.maxTokens)),
	}
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	out := make(chan Chunk, DefaultStreamChanSize)
	go func() {
		defer close(out)
		defer stream.Close()
		e := emitter{ctx: ctx, out: out}
		defer e.guard()

		sentHeader := false
		for stream.Next() {
			chunk := stream.Current()
			if chunk.Model != "" && !sentHeader {
				if !e.send(Chunk{Model: chunk.Model}) {
					return
				}
				sentHeader = true
			}
			for _, choice := range chunk.Choices {
				c := Chunk{Text: choice.Delta.Content, FinishReason: string(choice.FinishReason)}
				if c.Text == "" && c.FinishReason == "" {
					continue
				}
				if !e.send(c) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			e.send(Chunk{Err: fmt.Errorf("error in streaming: %w", err)})
		}
	}()
	return out, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		}
	}
	return out
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
