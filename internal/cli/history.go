// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-aichat/internal/storage"
)

func newHistoryCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the saved chat transcript",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHistoryFile(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer h.Close()
			msgs, err := h.Load(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), storage.FormatList(msgs))
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all saved entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := openHistoryFile(cmd, *cfgPath)
			if err != nil {
				return err
			}
			defer h.Close()
			n, err := h.Count(cmd.Context())
			if err != nil {
				return err
			}
			if err := h.Clear(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d entries removed\n", successStyle.Render("Cleared"), n)
			return err
		},
	})
	return cmd
}

func openHistoryFile(cmd *cobra.Command, cfgPath string) (*storage.History, error) {
	cfg, _, err := loadConfig(cmd.Context(), cfgPath)
	if err != nil {
		return nil, err
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path, cfg.History.MaxEntries)
}
