// aichat - a terminal AI chat sidebar next to your shell.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"

	"pkt.systems/psi"
	"pkt.systems/pslog"

	"github.com/jeranaias/rigrun-aichat/internal/cli"
	"github.com/jeranaias/rigrun-aichat/internal/logging"
)

// Version information (set at build time)
var Version = "0.1.0"

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	ctx = logging.Attach(ctx, logging.FromEnv())

	cli.Version = Version
	root := cli.NewRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("aichat command failed")
		return 1
	}
	return 0
}
