// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-aichat/internal/config"
	"github.com/jeranaias/rigrun-aichat/internal/model"
	"github.com/jeranaias/rigrun-aichat/internal/provider"
	"github.com/jeranaias/rigrun-aichat/internal/transcript"
)

// scriptedProvider replays chunks and records the prompt it was given.
type scriptedProvider struct {
	mu       sync.Mutex
	chunks   []provider.Chunk
	hang     bool
	startErr error
	got      []provider.Message
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, msgs []provider.Message) (<-chan provider.Chunk, error) {
	p.mu.Lock()
	p.got = msgs
	p.mu.Unlock()
	if p.startErr != nil {
		return nil, p.startErr
	}
	ch := make(chan provider.Chunk)
	go func() {
		defer close(ch)
		for _, c := range p.chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
		if p.hang {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

func (p *scriptedProvider) prompt() []provider.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.got
}

// harness applies messages inline, the way the line-mode REPL does.
type harness struct {
	store *transcript.Store
	svc   *Service
	prov  *scriptedProvider
	msgs  []tea.Msg
}

func newHarness(t *testing.T, prov *scriptedProvider, seed ...model.ChatMessage) *harness {
	t.Helper()
	h := &harness{store: transcript.New(seed...), prov: prov}
	cfg := config.Default().AI
	cfg.Shell = "zsh"
	h.svc = New(Options{
		Store:  h.store,
		Config: cfg,
		OSType: "linux",
		Factory: func(config.AIConfig, string) (provider.Provider, error) {
			return prov, nil
		},
		FlushRate: 1000,
		Sender: SenderFunc(func(m tea.Msg) {
			h.msgs = append(h.msgs, m)
			h.svc.Apply(m)
		}),
	})
	return h
}

func TestSubmitStreamsIntoPlaceholder(t *testing.T) {
	prov := &scriptedProvider{chunks: []provider.Chunk{
		{Model: "gpt-4o-mini"},
		{Text: "Use "},
		{Text: "`ls`"},
		{FinishReason: "stop"},
	}}
	h := newHarness(t, prov)

	require.NoError(t, h.svc.Submit(context.Background(), "list files", "git status"))

	snap := h.store.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, model.RoleUser, snap[0].Role)
	assert.Equal(t, "list files", snap[0].UserQuery)
	assert.Equal(t, EngineeredPrompt("list files", "git status", "zsh", "linux"), snap[0].EngineeredQuery)

	resp := snap[1].Response
	require.NotNil(t, resp)
	assert.Equal(t, "Use `ls`", resp.Message)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.False(t, resp.Streaming)
	assert.Empty(t, resp.Error)
}

func TestSubmitEmptyIsGreeting(t *testing.T) {
	prov := &scriptedProvider{chunks: []provider.Chunk{{Text: "Hello!"}}}
	h := newHarness(t, prov)

	require.NoError(t, h.svc.Submit(context.Background(), "", ""))

	snap := h.store.Snapshot()
	require.Len(t, snap, 1, "the greeting appends only the placeholder")
	assert.True(t, snap[0].IsAssistant())
	assert.Equal(t, "Hello!", snap[0].Text())

	prompt := prov.prompt()
	require.Len(t, prompt, 1)
	assert.Equal(t, EngineeredPrompt("", "", "zsh", "linux"), prompt[0].Content)
}

func TestSubmitBuildsHistory(t *testing.T) {
	q := model.NewUserQuery("first")
	q.EngineeredQuery = "engineered first"
	a := model.NewAssistantPlaceholder()
	a.Response.Message = "first answer"
	errEntry := model.NewAssistantPlaceholder()
	errEntry.Response.Error = "boom"

	prov := &scriptedProvider{}
	h := newHarness(t, prov, q, a, errEntry)

	require.NoError(t, h.svc.Submit(context.Background(), "second", ""))

	prompt := prov.prompt()
	require.Len(t, prompt, 3, "empty assistant entries are skipped")
	assert.Equal(t, provider.Message{Role: provider.RoleUser, Content: "engineered first"}, prompt[0])
	assert.Equal(t, provider.Message{Role: provider.RoleAssistant, Content: "first answer"}, prompt[1])
	assert.Equal(t, provider.RoleUser, prompt[2].Role)
	assert.Contains(t, prompt[2].Content, "The user's question is:\n\nsecond")
}

func TestSubmitProviderUnavailable(t *testing.T) {
	h := newHarness(t, &scriptedProvider{})
	h.svc.factory = func(config.AIConfig, string) (provider.Provider, error) {
		return nil, provider.ErrNotConfigured
	}

	err := h.svc.Submit(context.Background(), "hi", "")
	require.ErrorIs(t, err, provider.ErrNotConfigured)

	last, ok := h.store.Last()
	require.True(t, ok)
	assert.False(t, last.IsStreaming())
	assert.Equal(t, provider.ErrNotConfigured.Error(), last.Response.Error)
}

func TestSubmitStreamStartFailure(t *testing.T) {
	h := newHarness(t, &scriptedProvider{startErr: errors.New("dial tcp: refused")})

	require.NoError(t, h.svc.Submit(context.Background(), "hi", ""))
	last, _ := h.store.Last()
	assert.Contains(t, last.Response.Error, "dial tcp: refused")
	assert.False(t, last.IsStreaming())
}

func TestSubmitChunkError(t *testing.T) {
	prov := &scriptedProvider{chunks: []provider.Chunk{
		{Text: "partial"},
		{Err: errors.New("error in streaming: reset")},
	}}
	h := newHarness(t, prov)

	require.NoError(t, h.svc.Submit(context.Background(), "hi", ""))
	last, _ := h.store.Last()
	assert.Equal(t, "partial", last.Response.Message)
	assert.Equal(t, "error in streaming: reset", last.Response.Error)
}

func TestSubmitPacketTimeout(t *testing.T) {
	prov := &scriptedProvider{chunks: []provider.Chunk{{Text: "thinking"}}, hang: true}
	h := newHarness(t, prov)
	h.svc.cfg.PacketTimeout = 1

	start := time.Now()
	require.NoError(t, h.svc.Submit(context.Background(), "hi", ""))
	assert.Less(t, time.Since(start), 10*time.Second)

	last, _ := h.store.Last()
	assert.Equal(t, "thinking", last.Response.Message)
	assert.Equal(t, "timeout waiting for server response", last.Response.Error)
	assert.False(t, last.IsStreaming())
}

func TestApplyDropsStaleMessages(t *testing.T) {
	store := transcript.New()
	svc := New(Options{Store: store, Config: config.Default().AI, Sender: SenderFunc(func(tea.Msg) {})})

	svc.Begin("", "")
	svc.Begin("newer", "")
	snap := store.Snapshot()
	require.Len(t, snap, 3)
	first, second := snap[0].ID, snap[2].ID

	assert.True(t, svc.Apply(BeginMsg{ID: first}))
	assert.True(t, svc.Apply(ChunkMsg{ID: first, Text: "late"}))
	assert.True(t, svc.Apply(DoneMsg{ID: first, Text: "late"}))
	assert.True(t, svc.Apply(ChunkMsg{ID: second, Text: "fresh"}))

	snap = store.Snapshot()
	require.Len(t, snap, 3)
	assert.Empty(t, snap[0].Text(), "superseded placeholder ignores late chunks")
	assert.False(t, snap[0].IsStreaming())
	assert.Equal(t, "fresh", snap[2].Text())
	assert.True(t, snap[2].IsStreaming())

	assert.False(t, svc.Apply(tea.KeyMsg{}), "foreign messages are not handled")
}

func TestBeginKeepsSendOrder(t *testing.T) {
	store := transcript.New()
	msgs := make(chan tea.Msg, 32)
	prov := &scriptedProvider{chunks: []provider.Chunk{{Text: "answer"}}}
	svc := New(Options{
		Store:  store,
		Config: config.Default().AI,
		OSType: "linux",
		Factory: func(config.AIConfig, string) (provider.Provider, error) {
			return prov, nil
		},
		FlushRate: 1000,
		Sender:    SenderFunc(func(m tea.Msg) { msgs <- m }),
	})

	first := svc.Begin("first", "")
	second := svc.Begin("second", "")

	snap := store.Snapshot()
	require.Len(t, snap, 4, "both sends are in the transcript before any stream runs")
	assert.Equal(t, "first", snap[0].UserQuery)
	assert.Equal(t, "second", snap[2].UserQuery)

	// Streams may start in any order. The older one must not cancel the newer.
	require.NoError(t, second(context.Background()))
	require.NoError(t, first(context.Background()))
	close(msgs)
	for m := range msgs {
		svc.Apply(m)
	}

	snap = store.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, model.RoleUser, snap[0].Role)
	assert.Equal(t, "first", snap[0].UserQuery)
	assert.True(t, snap[1].IsAssistant())
	assert.Empty(t, snap[1].Text())
	assert.False(t, snap[1].IsStreaming())
	assert.Equal(t, "second", snap[2].UserQuery)
	assert.Equal(t, "answer", snap[3].Text())
	assert.False(t, snap[3].IsStreaming())
	assert.Empty(t, snap[3].Response.Error)

	prompt := prov.prompt()
	require.Len(t, prompt, 2, "the newer prompt carries the older question")
	assert.Contains(t, prompt[1].Content, "second")
}

func TestStopHaltsStream(t *testing.T) {
	prov := &scriptedProvider{chunks: []provider.Chunk{{Text: "partial"}}, hang: true}
	h := newHarness(t, prov)

	stream := h.svc.Begin("hi", "")
	errc := make(chan error, 1)
	go func() { errc <- stream(context.Background()) }()

	require.Eventually(t, func() bool { return len(prov.prompt()) > 0 }, 5*time.Second, 10*time.Millisecond)
	h.svc.Stop()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestBeginWithoutSenderFailsPlaceholder(t *testing.T) {
	store := transcript.New()
	svc := New(Options{Store: store, Config: config.Default().AI})

	err := svc.Begin("hi", "")(context.Background())
	require.Error(t, err)

	last, ok := store.Last()
	require.True(t, ok)
	assert.False(t, last.IsStreaming())
	assert.Contains(t, last.Response.Error, "no sender")
}

func TestThrottleCoalescesChunks(t *testing.T) {
	chunks := make([]provider.Chunk, 50)
	for i := range chunks {
		chunks[i] = provider.Chunk{Text: "x"}
	}
	prov := &scriptedProvider{chunks: chunks}
	h := newHarness(t, prov)
	h.svc.flushRate = 0.001

	require.NoError(t, h.svc.Submit(context.Background(), "hi", ""))

	var chunkMsgs int
	for _, m := range h.msgs {
		if _, ok := m.(ChunkMsg); ok {
			chunkMsgs++
		}
	}
	assert.Equal(t, 1, chunkMsgs, "only the burst token passes the limiter")
	last, _ := h.store.Last()
	assert.Len(t, last.Text(), 50, "the tail arrives with DoneMsg")
}

func TestProviderSelection(t *testing.T) {
	svc := New(Options{Store: transcript.New(), Config: config.Default().AI})
	assert.Equal(t, config.ProviderOpenAI, svc.Provider())

	assert.Equal(t, config.ProviderAzure, svc.CycleProvider())
	assert.Equal(t, config.ProviderGemini, svc.CycleProvider())
	assert.Equal(t, config.ProviderOllama, svc.CycleProvider())
	assert.Equal(t, config.ProviderOpenAI, svc.CycleProvider())

	require.NoError(t, svc.SetProvider(config.ProviderOllama))
	assert.True(t, svc.Configured(), "ollama needs no credentials")
	assert.Error(t, svc.SetProvider("bard"))
}

func TestEngineeredPrompt(t *testing.T) {
	got := EngineeredPrompt("how do I undo?", "git commit -m x", "bash", "macos")
	want := "You are an AI assistant with deep expertise in command line interfaces, CLI programs, and shell scripting. " +
		"Your task is to help the user to fix an existing command that will be provided, or if no command is provided, " +
		"help write a new command that the user requires. Feel free to provide appropriate context, but try to keep your " +
		"answers short and to the point as the user is asking for help because they are trying to get a task done immediately." +
		" The user is current using the \"bash\" shell on macos." +
		" The user is currently working with the command: ```\ngit commit -m x\n```\n\n" +
		"Please ensure any command line suggestions or code snippets or scripts that are meant to be run by " +
		"the user are enclosed in triple backquotes for easy copy and paste into the terminal.  Also note that any response " +
		"you give will be rendered in markdown." +
		" The user's question is:\n\nhow do I undo?"
	assert.Equal(t, want, got)

	noCmd := EngineeredPrompt("q", "   ", "fish", "linux")
	assert.NotContains(t, noCmd, "currently working with the command")
}

func TestOSType(t *testing.T) {
	assert.Equal(t, "macos", osTypeFor("darwin"))
	assert.Equal(t, "linux", osTypeFor("linux"))
	assert.Equal(t, "windows", osTypeFor("windows"))
}
