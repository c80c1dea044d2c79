// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the chat transcript between runs.
//
// Entries are kept in a single sqlite table ordered by insertion. Only
// finalized entries are written; a response that is still streaming is
// saved once it completes.
//
// # Usage
//
//	h, err := storage.Open(path, 500)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	msgs, err := h.Load(ctx)
//	store := transcript.New(msgs...)
//	rec := storage.NewRecorder(h, logger)
//	stop := store.Subscribe(rec.Observe)
//
// # Storage Location
//
// The database lives at ~/.aichat/history.db unless history.path says
// otherwise.
package storage
