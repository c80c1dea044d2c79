// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"pkt.systems/pslog"

	"github.com/jeranaias/rigrun-aichat/internal/config"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q", sc.Text())
		}
		out = append(out, entry)
	}
	return out
}

func message(entry map[string]any) any {
	if v, ok := entry["message"]; ok {
		return v
	}
	return entry["msg"]
}

func TestSetupFileWritesStructured(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "aichat.log")

	logger, closer, err := Setup(cfg, File)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Info("sidebar.open", "width", 60)
	logger.Debug("suppressed at info")
	closer.Close()

	entries := readEntries(t, cfg.Logging.File)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(entries), entries)
	}
	if message(entries[0]) != "sidebar.open" {
		t.Errorf("message = %v", message(entries[0]))
	}

	info, _ := os.Stat(cfg.Logging.File)
	if info.Mode().Perm() != 0600 {
		t.Errorf("log file mode = %o, want 600", info.Mode().Perm())
	}
}

func TestSetupFileHonorsLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "aichat.log")
	cfg.Logging.Level = "debug"

	logger, closer, err := Setup(cfg, File)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("visible")
	closer.Close()

	if n := len(readEntries(t, cfg.Logging.File)); n != 1 {
		t.Errorf("got %d entries at debug level, want 1", n)
	}
}

func TestSetupConsole(t *testing.T) {
	logger, closer, err := Setup(config.Default(), Console)
	if err != nil || logger == nil || closer == nil {
		t.Fatalf("Setup(Console) = %v, %v, %v", logger, closer, err)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestAttachStoresLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "aichat.log")
	logger, closer, err := Setup(cfg, File)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	ctx := Attach(context.Background(), logger)
	defer log.SetOutput(os.Stderr)
	pslog.Ctx(ctx).Info("from context")
	closer.Close()

	entries := readEntries(t, cfg.Logging.File)
	if len(entries) != 1 || message(entries[0]) != "from context" {
		t.Errorf("entries = %+v", entries)
	}
}
