// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package submit turns chat input into outbound actions: sending a chat
// message to the assistant or injecting text into the host command line.
//
// Both actions are fire-and-forget. A send touches the transcript
// synchronously and streams in the background. Failures are logged and
// never reach the UI as blocking state.
package submit

import (
	"context"
	"fmt"
	"sync"

	"pkt.systems/pslog"
)

// Submitter sends a chat message in two steps. Begin appends the user
// entry and the streaming placeholder to the transcript on the caller's
// goroutine and returns the network half, which the pipeline runs in the
// background.
type Submitter interface {
	Begin(text, draft string) func(ctx context.Context) error
}

// CommandLine is the host command-line input.
type CommandLine interface {
	SetText(text string)
	Focus()
}

// DraftSource returns the text currently typed in the host command line.
type DraftSource func() string

// Pipeline dispatches chat sends and command-line injections.
type Pipeline struct {
	ctx       context.Context
	submitter Submitter
	cmdline   CommandLine
	draft     DraftSource
	log       pslog.Logger

	wg sync.WaitGroup
}

// Options configures a Pipeline.
type Options struct {
	Submitter   Submitter
	CommandLine CommandLine
	Draft       DraftSource
	Logger      pslog.Logger
}

// New creates a pipeline. ctx bounds every submission started through it.
func New(ctx context.Context, opts Options) *Pipeline {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	draft := opts.Draft
	if draft == nil {
		draft = func() string { return "" }
	}
	return &Pipeline{
		ctx:       ctx,
		submitter: opts.Submitter,
		cmdline:   opts.CommandLine,
		draft:     draft,
		log:       logger,
	}
}

// Send adds text to the transcript now and streams the answer in the
// background. Sends made in a row keep their order. The draft is read on
// the calling goroutine so it reflects the command line at the moment of
// sending.
func (p *Pipeline) Send(text string) {
	if p.submitter == nil {
		p.log.Warn("submit chat command skipped", "reason", "no submitter")
		return
	}
	stream, err := p.begin(text, p.draft())
	if err != nil {
		p.log.Error("submit chat command error", "err", err, "len", len(text))
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.stream(stream); err != nil {
			p.log.Error("submit chat command error", "err", err, "len", len(text))
		}
	}()
}

func (p *Pipeline) begin(text, draft string) (stream func(context.Context) error, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("submitter panic: %v", r)
		}
	}()
	return p.submitter.Begin(text, draft), nil
}

func (p *Pipeline) stream(fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("submitter panic: %v", r)
		}
	}()
	if fn == nil {
		return nil
	}
	return fn(p.ctx)
}

// Inject places text in the host command line and focuses it.
func (p *Pipeline) Inject(text string) {
	if p.cmdline == nil {
		p.log.Warn("inject skipped", "reason", "no command line")
		return
	}
	p.cmdline.SetText(text)
	p.cmdline.Focus()
}

// Wait blocks until every background submission has returned.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
