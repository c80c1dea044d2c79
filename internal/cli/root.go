// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-aichat/internal/config"
	"github.com/jeranaias/rigrun-aichat/internal/hostcmd"
	"github.com/jeranaias/rigrun-aichat/internal/logging"
	"github.com/jeranaias/rigrun-aichat/internal/ui/app"
	"github.com/jeranaias/rigrun-aichat/internal/ui/styles"
)

// Version is set at build time.
var Version = "dev"

// NewRootCmd builds the aichat command tree. Without a subcommand it
// starts the terminal UI.
func NewRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "aichat",
		Short:         "Terminal AI chat sidebar next to your shell",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !IsTTY() || !IsStdoutTTY() {
				return errors.New("the chat UI needs a terminal; use 'aichat ask' for line mode")
			}
			return runTUI(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	root.AddCommand(newAskCmd(&cfgPath))
	root.AddCommand(newConfigCmd(&cfgPath))
	root.AddCommand(newHistoryCmd(&cfgPath))
	root.AddCommand(newProvidersCmd(&cfgPath))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "aichat %s\n", Version)
			return err
		},
	}
}

// runTUI starts the full-screen UI. Logs go to the log file so they do not
// corrupt the screen.
func runTUI(ctx context.Context, cfgPath string) error {
	s, err := openSession(ctx, cfgPath, logging.File, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	model := app.New(app.Options{
		Context:   ctx,
		Config:    s.cfg,
		Store:     s.store,
		Assistant: s.svc,
		Runner:    &hostcmd.Runner{Shell: s.cfg.AI.Shell},
		Theme:     styles.NewTheme(),
		Logger:    s.log,
	})
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	s.svc.SetSender(p)

	w, err := config.Watch(ctx, s.cfgPath, config.DefaultDebounce, func(cfg *config.Config, err error) {
		p.Send(app.ConfigReloadedMsg{Config: cfg, Err: err})
	})
	if err != nil {
		s.log.Warn("config.watch.disabled", "path", s.cfgPath, "err", err)
	}

	s.log.Info("aichat.start", "provider", s.cfg.AI.DefaultProvider, "entries", s.store.Len())
	_, runErr := p.Run()

	cancel()
	s.svc.Stop()
	model.Pipeline().Wait()
	if w != nil {
		<-w.Done()
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", runErr)
	}
	s.log.Info("aichat.exit")
	return nil
}
