// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant turns submitted queries into streamed transcript
// entries.
//
// Begin runs on the goroutine that owns the store. It appends the user entry
// and the streaming placeholder, then hands back a stream function that runs
// off that goroutine and never touches the store directly. The stream
// reports progress as BeginMsg, ChunkMsg and DoneMsg through a Sender.
// Apply, called from the bubbletea update loop, turns those messages into
// store mutations.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"
	"pkt.systems/pslog"

	"github.com/jeranaias/rigrun-aichat/internal/config"
	"github.com/jeranaias/rigrun-aichat/internal/model"
	"github.com/jeranaias/rigrun-aichat/internal/provider"
	"github.com/jeranaias/rigrun-aichat/internal/transcript"
)

// ErrPacketTimeout is reported when the provider goes quiet for longer
// than the packet timeout.
var ErrPacketTimeout = errors.New("timeout waiting for server response")

// DefaultFlushRate bounds how often streamed text reaches the UI.
const DefaultFlushRate = 30

// Factory builds a provider by name.
type Factory func(cfg config.AIConfig, name string) (provider.Provider, error)

// Options configures a Service.
type Options struct {
	Store  *transcript.Store
	Sender Sender
	Config config.AIConfig
	Logger pslog.Logger

	// Factory defaults to provider.New.
	Factory Factory
	// FlushRate is flushes per second. Zero means DefaultFlushRate.
	FlushRate float64
	// OSType defaults to OSType().
	OSType string
}

// Service implements the submission collaborator.
type Service struct {
	store     *transcript.Store
	sender    Sender
	factory   Factory
	flushRate float64
	osType    string
	log       pslog.Logger

	mu       sync.Mutex
	cfg      config.AIConfig
	provider string
	seq      uint64
	cancel   context.CancelFunc
}

// New creates a Service.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = pslog.Ctx(context.Background())
	}
	if opts.Factory == nil {
		opts.Factory = func(cfg config.AIConfig, name string) (provider.Provider, error) {
			return provider.New(cfg, name)
		}
	}
	if opts.FlushRate <= 0 {
		opts.FlushRate = DefaultFlushRate
	}
	if opts.OSType == "" {
		opts.OSType = OSType()
	}
	return &Service{
		store:     opts.Store,
		sender:    opts.Sender,
		factory:   opts.Factory,
		flushRate: opts.FlushRate,
		osType:    opts.OSType,
		log:       opts.Logger.With("component", "assistant"),
		cfg:       opts.Config,
		provider:  opts.Config.DefaultProvider,
	}
}

// SetSender replaces the sender. The TUI sets it once the program exists.
func (s *Service) SetSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// UpdateConfig swaps in reloaded provider settings. The selected provider
// is kept.
func (s *Service) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Provider returns the selected provider name.
func (s *Service) Provider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// SetProvider selects the provider for subsequent sends.
func (s *Service) SetProvider(name string) error {
	if !config.IsProvider(name) {
		return fmt.Errorf("unknown provider %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = name
	return nil
}

// CycleProvider selects the next provider in config.Providers order and
// returns its name.
func (s *Service) CycleProvider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := config.Providers[0]
	for i, p := range config.Providers {
		if p == s.provider {
			next = config.Providers[(i+1)%len(config.Providers)]
			break
		}
	}
	s.provider = next
	return next
}

// Configured reports whether the selected provider has its settings.
func (s *Service) Configured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return provider.Configured(s.cfg, s.provider)
}

// Stop cancels the running stream, if any.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Begin appends the user entry and a streaming placeholder to the
// transcript and returns the function that streams the answer into it. It
// must run on the goroutine that owns the store, so entries land in send
// order. An empty text asks for the greeting and adds no user entry. draft
// is the host command line, quoted in the prompt when set.
//
// A newer Begin cancels the stream of every older one, whether or not it
// has started yet.
func (s *Service) Begin(text, draft string) func(ctx context.Context) error {
	s.mu.Lock()
	cfg := s.cfg
	name := s.provider
	sender := s.sender
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	halted, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	shell := cfg.Shell
	if shell == "" {
		shell = DetectShell()
	}

	history := s.history()
	placeholder := model.NewAssistantPlaceholder()
	if text != "" {
		user := model.NewUserQuery(text)
		user.EngineeredQuery = EngineeredPrompt(text, draft, shell, s.osType)
		history = append(history, provider.Message{Role: provider.RoleUser, Content: user.EngineeredQuery})
		s.store.Append(user)
	} else {
		history = append(history, provider.Message{Role: provider.RoleUser, Content: EngineeredPrompt("", draft, shell, s.osType)})
	}
	s.store.Append(placeholder)

	req := request{
		seq:      seq,
		id:       placeholder.ID,
		provider: name,
		cfg:      cfg,
		history:  history,
		sender:   sender,
		halted:   halted,
	}
	if sender == nil {
		err := errors.New("assistant: no sender")
		s.finish(req, DoneMsg{ID: req.id, Err: err})
		return func(context.Context) error { return err }
	}
	return func(ctx context.Context) error { return s.run(ctx, req) }
}

// Submit runs Begin and its stream on the calling goroutine.
func (s *Service) Submit(ctx context.Context, text, draft string) error {
	return s.Begin(text, draft)(ctx)
}

// request is what Begin captured for one submission.
type request struct {
	seq      uint64
	id       string
	provider string
	cfg      config.AIConfig
	history  []provider.Message
	sender   Sender
	halted   context.Context
}

func (s *Service) run(ctx context.Context, req request) error {
	streamCtx, cancel := context.WithTimeout(ctx, streamTimeout(req.cfg))
	defer cancel()
	stop := context.AfterFunc(req.halted, cancel)
	defer stop()
	defer s.release(req.seq)

	log := s.log.With("provider", req.provider, "id", req.id)
	req.sender.Send(BeginMsg{ID: req.id})

	if req.halted.Err() != nil {
		log.Debug("assistant.stream.halted")
		req.sender.Send(DoneMsg{ID: req.id})
		return nil
	}

	p, err := s.factory(req.cfg, req.provider)
	if err != nil {
		log.Warn("assistant.provider.unavailable", "err", err)
		req.sender.Send(DoneMsg{ID: req.id, Err: err})
		return err
	}

	ch, err := p.Stream(streamCtx, req.history)
	if err != nil {
		err = fmt.Errorf("error calling %s API: %w", req.provider, err)
		log.Warn("assistant.stream.failed", "err", err)
		req.sender.Send(DoneMsg{ID: req.id, Err: err})
		return nil
	}

	log.Info("assistant.stream.start", "messages", len(req.history))
	done := s.pump(streamCtx, req.id, ch, packetTimeout(req.cfg), req.sender)
	if done.Err != nil {
		log.Warn("assistant.stream.done", "err", done.Err)
	} else {
		log.Info("assistant.stream.done", "finish", done.FinishReason)
	}
	req.sender.Send(done)
	return nil
}

// finish applies done directly. Begin uses it when there is no sender to
// carry the message.
func (s *Service) finish(req request, done DoneMsg) {
	s.Apply(done)
	s.release(req.seq)
}

// release drops the cancel func if seq is still the newest submission.
func (s *Service) release(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == seq && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// pump reads chunks until the stream closes, fails or stalls, sending
// accumulated text at most flushRate times a second. The returned DoneMsg
// carries whatever was not yet flushed.
func (s *Service) pump(ctx context.Context, id string, ch <-chan provider.Chunk, packet time.Duration, sender Sender) DoneMsg {
	limiter := rate.NewLimiter(rate.Limit(s.flushRate), 1)
	done := DoneMsg{ID: id}
	var pending strings.Builder

	timer := time.NewTimer(packet)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			done.Err = ErrPacketTimeout
			done.Text = pending.String()
			return done

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				done.Err = ErrPacketTimeout
			}
			done.Text = pending.String()
			return done

		case c, ok := <-ch:
			if !ok {
				done.Text = pending.String()
				return done
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(packet)

			if c.Err != nil {
				done.Err = c.Err
			}
			if c.Model != "" {
				done.Model = c.Model
			}
			if c.FinishReason != "" {
				done.FinishReason = c.FinishReason
			}
			pending.WriteString(c.Text)
			if pending.Len() > 0 && limiter.Allow() {
				sender.Send(ChunkMsg{ID: id, Text: pending.String(), Model: done.Model})
				pending.Reset()
			}
		}
	}
}

// history converts the transcript into prompt messages. The streaming
// tail, if any, is about to be superseded and is left out.
func (s *Service) history() []provider.Message {
	var out []provider.Message
	for _, m := range s.store.Snapshot() {
		if m.IsStreaming() {
			continue
		}
		switch m.Role {
		case model.RoleUser:
			out = append(out, provider.Message{Role: provider.RoleUser, Content: m.PromptText()})
		case model.RoleAssistant:
			if m.Text() == "" {
				continue
			}
			out = append(out, provider.Message{Role: provider.RoleAssistant, Content: m.Text()})
		}
	}
	return out
}

// Apply performs the store mutation a message asks for and reports
// whether msg was one of this package's messages. It must run on the
// goroutine that owns the store. Messages for a superseded placeholder
// are dropped.
func (s *Service) Apply(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case BeginMsg:
		return true

	case ChunkMsg:
		if !s.isCurrent(msg.ID) {
			return true
		}
		s.mutate(func(r *model.AssistantResponse) {
			r.Message += msg.Text
			if msg.Model != "" {
				r.Model = msg.Model
			}
		})
		return true

	case DoneMsg:
		if !s.isCurrent(msg.ID) {
			return true
		}
		s.mutate(func(r *model.AssistantResponse) {
			r.Message += msg.Text
			if msg.Model != "" {
				r.Model = msg.Model
			}
			r.FinishReason = msg.FinishReason
			if msg.Err != nil {
				r.Error = msg.Err.Error()
			}
			r.Finalize()
		})
		return true
	}
	return false
}

func (s *Service) isCurrent(id string) bool {
	last, ok := s.store.Last()
	return ok && last.ID == id && last.IsStreaming()
}

func (s *Service) mutate(fn func(*model.AssistantResponse)) {
	if err := s.store.MutateLast(fn); err != nil {
		s.log.Error("assistant.apply", "err", err)
	}
}

func streamTimeout(cfg config.AIConfig) time.Duration {
	if d := cfg.StreamTimeoutDuration(); d > 0 {
		return d
	}
	return 3 * time.Minute
}

func packetTimeout(cfg config.AIConfig) time.Duration {
	if d := cfg.PacketTimeoutDuration(); d > 0 {
		return d
	}
	return 30 * time.Second
}
