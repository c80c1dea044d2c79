// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"pkt.systems/pslog"

	"github.com/jeranaias/rigrun-aichat/internal/assistant"
	"github.com/jeranaias/rigrun-aichat/internal/config"
	"github.com/jeranaias/rigrun-aichat/internal/logging"
	"github.com/jeranaias/rigrun-aichat/internal/model"
	"github.com/jeranaias/rigrun-aichat/internal/storage"
	"github.com/jeranaias/rigrun-aichat/internal/transcript"
)

// loadConfig loads the config at path, or the default location when path
// is empty. An invalid file is reported and replaced by the defaults; any
// other error is returned.
func loadConfig(ctx context.Context, path string) (*config.Config, string, error) {
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		if !config.IsValidationError(err) {
			return nil, path, err
		}
		pslog.Ctx(ctx).Warn("config.invalid", "path", path, "err", err)
		cfg = config.Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
	}
	return cfg, path, nil
}

// session holds everything a chat front end needs: config, logger,
// transcript, history and the assistant service.
type session struct {
	cfg      *config.Config
	cfgPath  string
	ctx      context.Context
	log      pslog.Logger
	store    *transcript.Store
	history  *storage.History
	recorder *storage.Recorder
	svc      *assistant.Service

	closers []io.Closer
}

// openSession loads config, sets up logging to target, restores the
// transcript from history and creates the assistant service. History
// failures are logged and chat continues without persistence.
func openSession(ctx context.Context, cfgPath string, target logging.Target, sender assistant.Sender) (*session, error) {
	cfg, path, err := loadConfig(ctx, cfgPath)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.Setup(cfg, target)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	ctx = logging.Attach(ctx, logger)

	s := &session{
		cfg:     cfg,
		cfgPath: path,
		ctx:     ctx,
		log:     logger,
		closers: []io.Closer{closer},
	}

	var seed []model.ChatMessage
	if cfg.History.Enabled {
		seed = s.openHistory()
	}
	s.store = transcript.New(seed...)
	if s.recorder != nil {
		s.store.Subscribe(s.recorder.Observe)
	}

	s.svc = assistant.New(assistant.Options{
		Store:  s.store,
		Sender: sender,
		Config: cfg.AI,
		Logger: logger,
	})
	return s, nil
}

func (s *session) openHistory() []model.ChatMessage {
	path, err := s.cfg.HistoryPath()
	if err != nil {
		s.log.Warn("history.disabled", "err", err)
		return nil
	}
	h, err := storage.Open(path, s.cfg.History.MaxEntries)
	if err != nil {
		s.log.Warn("history.disabled", "path", path, "err", err)
		return nil
	}
	msgs, err := h.Load(s.ctx)
	if err != nil {
		s.log.Warn("history.load.failed", "path", path, "err", err)
		msgs = nil
	}
	s.history = h
	s.recorder = storage.NewRecorder(h, s.log)
	s.log.Debug("history.restored", "entries", len(msgs))
	return msgs
}

// Close stops the stream, flushes history and closes the log.
func (s *session) Close() {
	s.svc.Stop()
	if s.recorder != nil {
		s.recorder.Close()
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.log.Warn("history.close", "err", err)
		}
	}
	for _, c := range s.closers {
		_ = c.Close()
	}
}
