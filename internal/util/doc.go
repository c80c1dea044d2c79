// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the config, storage and
// hostcmd packages: crash-safe file writes and display-width aware text
// fitting for line-mode tables.
package util
