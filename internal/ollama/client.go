// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrorType classifies a ClientError.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// ClientError is returned by every Client method.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error { return e.Cause }

var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

func isType(err error, t ErrorType) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == t
}

// IsModelNotFound reports whether the server does not have the model.
func IsModelNotFound(err error) bool { return isType(err, ErrTypeModelNotFound) }

// IsNotRunning reports whether the server could not be reached.
func IsNotRunning(err error) bool { return isType(err, ErrTypeNotRunning) }

// IsTimeout reports whether the request ran out of time.
func IsTimeout(err error) bool { return isType(err, ErrTypeTimeout) }

// transportError maps a failed round trip. Cancellation is passed through
// so callers can tell a user stop from a dead server.
func transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return ErrNotRunning
	}
}

// statusError reads an {"error": "..."} body when the server sent one.
func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrModelNotFound
	}
	var apiErr apiError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error}
	}
	return &ClientError{Type: ErrTypeInvalidResponse, Message: "ollama returned " + resp.Status}
}

// =============================================================================
// CLIENT
// =============================================================================

const (
	// DefaultBaseURL uses 127.0.0.1 rather than localhost, which can
	// resolve to ::1 where Ollama does not listen.
	DefaultBaseURL = "http://127.0.0.1:11434"
	// DefaultModel is used when neither the request nor the config names one.
	DefaultModel = "qwen2.5-coder:7b"
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second
)

// ClientConfig configures a Client. Zero fields take the defaults.
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	DefaultModel string
}

// Client talks to one Ollama server. It is safe for concurrent use.
type Client struct {
	config *ClientConfig
	// api bounds health and list calls. Streams use stream, which has no
	// overall timeout; their context bounds them.
	api    *http.Client
	stream *http.Client
}

// NewClient creates a client for the default local server.
func NewClient() *Client {
	return NewClientWithConfig(nil)
}

// NewClientWithConfig creates a client, filling zero fields of config.
func NewClientWithConfig(config *ClientConfig) *Client {
	cfg := ClientConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	return &Client{
		config: &cfg,
		api:    &http.Client{Timeout: cfg.Timeout},
		stream: &http.Client{},
	}
}

// GetConfig returns the effective configuration.
func (c *Client) GetConfig() *ClientConfig { return c.config }

// GetDefaultModel returns the model used when a request names none.
func (c *Client) GetDefaultModel() string { return c.config.DefaultModel }

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "build request", Cause: err}
	}
	resp, err := c.api.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	return resp, nil
}

// CheckRunning returns nil when the server answers its root endpoint.
func (c *Client) CheckRunning(ctx context.Context) error {
	resp, err := c.get(ctx, "/")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ClientError{Type: ErrTypeConnection, Message: "unexpected status from Ollama: " + resp.Status}
	}
	return nil
}

// ListModels returns the locally pulled models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	resp, err := c.get(ctx, "/api/tags")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var out ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "decode model list", Cause: err}
	}
	return out.Models, nil
}

// HasModel reports whether name is among the pulled models. A name
// without a tag matches its ":latest" form.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.Name == name || (!strings.Contains(name, ":") && m.Name == name+":latest") {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamCallback receives each parsed chunk in order.
type StreamCallback func(chunk StreamChunk)

// ChatStream posts a streaming chat request and calls callback for each
// chunk until the final one. An empty model uses the default; maxTokens of
// zero leaves the server default.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message, maxTokens int, callback StreamCallback) error {
	if model == "" {
		model = c.config.DefaultModel
	}
	chatReq := ChatRequest{Model: model, Messages: messages, Stream: true}
	if maxTokens > 0 {
		chatReq.Options = &Options{NumPredict: maxTokens}
	}
	body, err := json.Marshal(chatReq)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.stream.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return NewStreamReader(resp.Body).Process(ctx, callback)
}

// ChatStreamChan runs ChatStream in a goroutine and delivers its chunks on
// the returned channel, which closes when the stream ends. A failure
// arrives as a final chunk with Error set.
func (c *Client) ChatStreamChan(ctx context.Context, model string, messages []Message, maxTokens int) <-chan StreamChunk {
	ch := make(chan StreamChunk)
	emit := func(chunk StreamChunk) {
		select {
		case ch <- chunk:
		case <-ctx.Done():
		}
	}
	go func() {
		defer close(ch)
		if err := c.ChatStream(ctx, model, messages, maxTokens, emit); err != nil {
			emit(StreamChunk{Error: err, Done: true})
		}
	}()
	return ch
}
