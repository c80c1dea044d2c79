// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/rigrun-aichat/internal/model"
	"github.com/jeranaias/rigrun-aichat/internal/util"
)

// ErrClosed is returned by History methods after Close.
var ErrClosed = errors.New("storage: history is closed")

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	role          TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	user_query    TEXT NOT NULL DEFAULT '',
	engineered    TEXT NOT NULL DEFAULT '',
	message       TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT '',
	finish_reason TEXT NOT NULL DEFAULT ''
);
`

// History is the sqlite-backed transcript log.
type History struct {
	db         *sql.DB
	path       string
	maxEntries int
}

// Open opens or creates the history database at path. maxEntries bounds
// the number of rows kept; 0 means unbounded.
func Open(path string, maxEntries int) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: initialize schema: %w", err)
	}

	return &History{db: db, path: path, maxEntries: maxEntries}, nil
}

// Path returns the database file path.
func (h *History) Path() string {
	return h.path
}

// Close closes the database.
func (h *History) Close() error {
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

// Save inserts msg, or updates it when an entry with the same ID exists.
func (h *History) Save(ctx context.Context, msg model.ChatMessage) error {
	if h.db == nil {
		return ErrClosed
	}
	var resp model.AssistantResponse
	if msg.Response != nil {
		resp = *msg.Response
	}
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO entries (id, role, created_at, user_query, engineered, message, error, model, finish_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			message = excluded.message,
			error = excluded.error,
			model = excluded.model,
			finish_reason = excluded.finish_reason`,
		msg.ID, string(msg.Role), msg.CreatedAt.UnixNano(),
		msg.UserQuery, msg.EngineeredQuery,
		resp.Message, resp.Error, resp.Model, resp.FinishReason,
	)
	if err != nil {
		return fmt.Errorf("storage: save entry %s: %w", msg.ID, err)
	}
	return h.prune(ctx)
}

// prune drops the oldest rows beyond maxEntries.
func (h *History) prune(ctx context.Context) error {
	if h.maxEntries <= 0 {
		return nil
	}
	_, err := h.db.ExecContext(ctx, `
		DELETE FROM entries WHERE seq <= (
			SELECT seq FROM entries ORDER BY seq DESC LIMIT 1 OFFSET ?
		)`, h.maxEntries)
	if err != nil {
		return fmt.Errorf("storage: prune: %w", err)
	}
	return nil
}

// Load returns every stored entry in insertion order. Restored assistant
// entries are never streaming.
func (h *History) Load(ctx context.Context) ([]model.ChatMessage, error) {
	if h.db == nil {
		return nil, ErrClosed
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, role, created_at, user_query, engineered, message, error, model, finish_reason
		FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("storage: load: %w", err)
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		var (
			m       model.ChatMessage
			role    string
			created int64
			resp    model.AssistantResponse
		)
		if err := rows.Scan(&m.ID, &role, &created, &m.UserQuery, &m.EngineeredQuery,
			&resp.Message, &resp.Error, &resp.Model, &resp.FinishReason); err != nil {
			return nil, fmt.Errorf("storage: scan: %w", err)
		}
		m.Role = model.Role(role)
		m.CreatedAt = time.Unix(0, created)
		if m.Role == model.RoleAssistant {
			m.Response = &resp
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: load: %w", err)
	}
	return out, nil
}

// Count returns the number of stored entries.
func (h *History) Count(ctx context.Context) (int, error) {
	if h.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count: %w", err)
	}
	return n, nil
}

// Clear deletes every entry.
func (h *History) Clear(ctx context.Context) error {
	if h.db == nil {
		return ErrClosed
	}
	if _, err := h.db.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("storage: clear: %w", err)
	}
	return nil
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatList formats entries as a table for `aichat history list`.
func FormatList(msgs []model.ChatMessage) string {
	if len(msgs) == 0 {
		return "No history."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("#", 5) + " " + util.PadRight("When", 17) + " " + util.PadRight("Who", 10) + " Text\n")
	sb.WriteString(strings.Repeat("-", 60) + "\n")
	for i, m := range msgs {
		text := m.Text()
		if m.Response != nil && m.Response.Error != "" {
			text = "error: " + m.Response.Error
		}
		text = strings.Join(strings.Fields(text), " ")
		sb.WriteString(util.PadRight(strconv.Itoa(i+1), 5) + " " +
			util.PadRight(m.CreatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(m.Role.DisplayName(), 10) + " " +
			util.Truncate(text, 40) + "\n")
	}
	return sb.String()
}

