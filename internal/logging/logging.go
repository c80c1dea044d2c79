// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the process logger.
//
// The TUI owns the terminal, so while it runs the log goes to a file in
// structured mode. Line-mode commands log to stderr in console mode.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"

	"github.com/jeranaias/rigrun-aichat/internal/config"
)

// Target selects where the logger writes.
type Target int

const (
	// Console writes human-readable lines to stderr.
	Console Target = iota
	// File writes structured lines to the configured log file.
	File
)

// Setup builds a logger for target. The returned closer releases the log
// file and is never nil.
func Setup(cfg *config.Config, target Target) (pslog.Logger, io.Closer, error) {
	opts := pslog.Options{Mode: pslog.ModeConsole}
	applyLevel(&opts, cfg.Logging.Level)

	if target == Console {
		return pslog.NewWithOptions(os.Stderr, opts), nopCloser{}, nil
	}

	path, err := cfg.LogPath()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	opts.Mode = pslog.ModeStructured
	opts.NoColor = true
	return pslog.NewWithOptions(f, opts), f, nil
}

// Attach stores logger in ctx and routes the standard library logger
// through it, so stray log.Printf calls from dependencies land in the
// same place.
func Attach(ctx context.Context, logger pslog.Logger) context.Context {
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)
	return pslog.ContextWithLogger(ctx, logger)
}

// FromEnv returns a console logger configured from the environment. It is
// used before the config file has been read.
func FromEnv() pslog.Logger {
	return pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
}

func applyLevel(opts *pslog.Options, level string) {
	switch strings.ToLower(level) {
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "warn":
		opts.MinLevel = pslog.WarnLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	default:
		opts.MinLevel = pslog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
