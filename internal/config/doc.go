// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for aichat.
//
// Settings live in ~/.aichat/config.toml. Missing values fall back to
// built-in defaults and AICHAT_* environment variables override the file.
//
// # Configuration Precedence
//
//   - Environment variables (AICHAT_*)
//   - ~/.aichat/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	timeout := cfg.AI.StreamTimeoutDuration()
//
// Watch reloads the file when it changes so provider settings can be
// edited while the sidebar is open.
package config
