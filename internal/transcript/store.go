// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript holds the ordered chat log shown in the sidebar.
//
// The store is append-only. The single most recent assistant entry stays
// mutable while its response streams in; everything before it is frozen.
// Every mutation notifies subscribers synchronously before returning.
package transcript

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/rigrun-aichat/internal/model"
)

// ErrInvalidMutation is returned by MutateLast when the last entry is not a
// streaming assistant response.
var ErrInvalidMutation = errors.New("transcript: last entry is not streaming")

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies which mutation produced an Event.
type EventKind int

const (
	EventAppended EventKind = iota
	EventMutated
	EventCleared
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventAppended:
		return "appended"
	case EventMutated:
		return "mutated"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event describes a completed mutation.
type Event struct {
	Kind     EventKind
	Len      int
	Snapshot []model.ChatMessage
}

// Observer receives store events.
type Observer func(Event)

// =============================================================================
// STORE
// =============================================================================

// Store is the transcript. The zero value is not usable; call New.
type Store struct {
	mu        sync.Mutex
	entries   []model.ChatMessage
	observers []subscription
	nextSubID int
}

type subscription struct {
	id int
	fn Observer
}

// New returns an empty store, optionally seeded with restored history.
// Seeded entries are finalized so a crash mid-stream never leaves a
// permanently streaming tail.
func New(seed ...model.ChatMessage) *Store {
	s := &Store{}
	for _, m := range seed {
		c := m.Clone()
		if c.Response != nil {
			c.Response.Streaming = false
		}
		s.entries = append(s.entries, c)
	}
	return s
}

// Subscribe registers fn and returns a function that removes it.
// The returned function may be called more than once.
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.observers = append(s.observers, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.observers {
				if sub.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Append adds msg at the end. A streaming tail is finalized first, since a
// newer entry supersedes it.
func (s *Store) Append(msg model.ChatMessage) {
	s.mu.Lock()
	if n := len(s.entries); n > 0 && s.entries[n-1].IsStreaming() {
		s.entries[n-1].Response.Streaming = false
	}
	s.entries = append(s.entries, msg.Clone())
	ev := s.eventLocked(EventAppended)
	s.mu.Unlock()

	s.notify(ev)
}

// MutateLast applies update to the last entry's response. The update may
// clear Streaming to finalize the entry.
func (s *Store) MutateLast(update func(*model.AssistantResponse)) error {
	s.mu.Lock()
	n := len(s.entries)
	if n == 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: transcript is empty", ErrInvalidMutation)
	}
	last := &s.entries[n-1]
	if !last.IsStreaming() {
		s.mu.Unlock()
		return fmt.Errorf("%w: entry %s", ErrInvalidMutation, last.ID)
	}
	update(last.Response)
	ev := s.eventLocked(EventMutated)
	s.mu.Unlock()

	s.notify(ev)
	return nil
}

// Clear empties the transcript.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	ev := s.eventLocked(EventCleared)
	s.mu.Unlock()

	s.notify(ev)
}

// Snapshot returns a copy of the entries in order.
func (s *Store) Snapshot() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Last returns the last entry, if any.
func (s *Store) Last() (model.ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return model.ChatMessage{}, false
	}
	return s.entries[len(s.entries)-1].Clone(), true
}

func (s *Store) snapshotLocked() []model.ChatMessage {
	out := make([]model.ChatMessage, len(s.entries))
	for i, m := range s.entries {
		out[i] = m.Clone()
	}
	return out
}

// eventLocked builds the event and copies the observer list while the lock
// is held; observers then run without it so they may read the store.
func (s *Store) eventLocked(kind EventKind) notification {
	obs := make([]Observer, len(s.observers))
	for i, sub := range s.observers {
		obs[i] = sub.fn
	}
	return notification{
		ev:        Event{Kind: kind, Len: len(s.entries), Snapshot: s.snapshotLocked()},
		observers: obs,
	}
}

type notification struct {
	ev        Event
	observers []Observer
}

func (s *Store) notify(n notification) {
	for _, fn := range n.observers {
		fn(n.ev)
	}
}
