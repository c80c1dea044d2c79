// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keybind maps keys to named actions and dispatches those actions
// to handlers registered under named scopes.
//
// A view registers its handlers under one scope when it becomes active and
// removes the whole scope when it goes away, so no handler outlives the
// view that owns it.
package keybind

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Handler runs an action and reports whether it handled it. A false return
// lets dispatch continue to the next binding.
type Handler func() bool

type binding struct {
	panel   string
	scope   string
	action  string
	handler Handler
}

// Registry holds scoped bindings. It is safe for concurrent use, though in
// practice only the UI goroutine touches it.
type Registry struct {
	mu       sync.Mutex
	keys     KeyMap
	bindings []binding
}

// NewRegistry creates a registry using keys for Lookup.
func NewRegistry(keys KeyMap) *Registry {
	return &Registry{keys: keys}
}

// Keys returns the key map.
func (r *Registry) Keys() KeyMap {
	return r.keys
}

// Register adds one binding. Bindings are kept in registration order.
func (r *Registry) Register(panel, scope, action string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = append(r.bindings, binding{panel: panel, scope: scope, action: action, handler: h})
}

// UnregisterScope removes every binding registered under panel and scope
// in one step. It returns the number removed.
func (r *Registry) UnregisterScope(panel, scope string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.bindings[:0]
	removed := 0
	for _, b := range r.bindings {
		if b.panel == panel && b.scope == scope {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	// Clear the tail so dropped handlers can be collected.
	for i := len(kept); i < len(r.bindings); i++ {
		r.bindings[i] = binding{}
	}
	r.bindings = kept
	return removed
}

// Dispatch runs the handlers bound to action on panel in registration
// order until one returns true.
func (r *Registry) Dispatch(panel, action string) bool {
	for _, h := range r.handlers(panel, action) {
		if h() {
			return true
		}
	}
	return false
}

// HandleKey resolves msg to actions and dispatches them on panel.
func (r *Registry) HandleKey(panel string, msg tea.KeyMsg) bool {
	for _, action := range r.keys.Lookup(msg) {
		if r.Dispatch(panel, action) {
			return true
		}
	}
	return false
}

// Scopes returns the distinct scopes registered on panel, in order.
func (r *Registry) Scopes(panel string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	seen := make(map[string]bool)
	for _, b := range r.bindings {
		if b.panel == panel && !seen[b.scope] {
			seen[b.scope] = true
			out = append(out, b.scope)
		}
	}
	return out
}

// Len returns the total number of bindings.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

// handlers copies the matching handlers so they run without the lock held
// and may themselves register or unregister bindings.
func (r *Registry) handlers(panel, action string) []Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Handler
	for _, b := range r.bindings {
		if b.panel == panel && b.action == action {
			out = append(out, b.handler)
		}
	}
	return out
}
