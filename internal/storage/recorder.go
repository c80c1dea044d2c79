// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"

	"pkt.systems/pslog"

	"github.com/jeranaias/rigrun-aichat/internal/model"
	"github.com/jeranaias/rigrun-aichat/internal/transcript"
)

// Recorder mirrors transcript events into History. Writes happen on a
// background goroutine so the UI never waits on disk; failures are logged
// and dropped.
type Recorder struct {
	h   *History
	log pslog.Logger

	ops chan op
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type op struct {
	clear bool
	msgs  []model.ChatMessage
}

// NewRecorder starts a recorder writing to h.
func NewRecorder(h *History, logger pslog.Logger) *Recorder {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	r := &Recorder{
		h:   h,
		log: logger.With("component", "history"),
		ops: make(chan op, 64),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Observe is a transcript.Observer. Pass it to Store.Subscribe.
//
// An append finalizes the previous tail, so both of the last two entries
// may need saving. Streaming entries are skipped until they finish, and a
// finished response with neither text nor error is not saved at all.
func (r *Recorder) Observe(ev transcript.Event) {
	if ev.Kind == transcript.EventCleared {
		r.enqueue(op{clear: true})
		return
	}
	var save []model.ChatMessage
	start := len(ev.Snapshot) - 2
	if ev.Kind == transcript.EventMutated {
		start = len(ev.Snapshot) - 1
	}
	if start < 0 {
		start = 0
	}
	for _, m := range ev.Snapshot[start:] {
		if m.IsStreaming() || blankResponse(m) {
			continue
		}
		save = append(save, m)
	}
	if len(save) > 0 {
		r.enqueue(op{msgs: save})
	}
}

func blankResponse(m model.ChatMessage) bool {
	return m.Response != nil && m.Response.Message == "" && m.Response.Error == ""
}

// enqueue never blocks the store's observer path. Events after Close and
// events that find the queue full are dropped.
func (r *Recorder) enqueue(o op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.ops <- o:
	default:
		r.log.Warn("history queue full, dropping", "clear", o.clear, "entries", len(o.msgs))
	}
}

// Close flushes pending writes and stops the goroutine. It does not close
// the History. Safe to call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ops)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	ctx := context.Background()
	for o := range r.ops {
		if o.clear {
			if err := r.h.Clear(ctx); err != nil {
				r.log.Warn("history clear failed", "err", err)
			}
			continue
		}
		for _, m := range o.msgs {
			if err := r.h.Save(ctx, m); err != nil {
				r.log.Warn("history save failed", "err", err, "id", m.ID)
			}
		}
	}
}
