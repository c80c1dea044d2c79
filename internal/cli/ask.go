// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-aichat/internal/config"
	"github.com/jeranaias/rigrun-aichat/internal/logging"
	"github.com/jeranaias/rigrun-aichat/internal/submit"
	"github.com/jeranaias/rigrun-aichat/internal/ui/sidebar"
)

const askPrompt = "aichat> "

func newAskCmd(cfgPath *string) *cobra.Command {
	var providerName string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Chat in line mode",
		Long: `Ask a single question, or start an interactive line-mode chat when no
question is given. Piped stdin is read as the question.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			interactive := question == "" && IsTTY()
			if question == "" && !interactive {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				question = strings.TrimSpace(string(data))
				if question == "" {
					return errors.New("no question given")
				}
			}

			s, err := openSession(cmd.Context(), *cfgPath, logging.Console, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			a := newAsker(s, cmd.OutOrStdout())
			if providerName != "" {
				if err := s.svc.SetProvider(providerName); err != nil {
					return err
				}
			}
			if !interactive {
				return a.ask(question)
			}
			cli := NewChatCLI()
			defer cli.Close()
			return a.repl(s.ctx, cli)
		},
	}
	cmd.Flags().StringVarP(&providerName, "provider", "p", "",
		"provider for this session ("+strings.Join(config.Providers, ", ")+")")
	return cmd
}

// asker runs questions through the same transcript, pipeline and assistant
// service as the sidebar, one at a time.
type asker struct {
	s        *session
	out      io.Writer
	printer  *streamPrinter
	pipeline *submit.Pipeline
}

func newAsker(s *session, out io.Writer) *asker {
	p := &streamPrinter{svc: s.svc, out: out}
	s.svc.SetSender(p)
	return &asker{
		s:       s,
		out:     out,
		printer: p,
		pipeline: submit.New(s.ctx, submit.Options{
			Submitter: s.svc,
			Logger:    s.log,
		}),
	}
}

// ask sends one question and waits for the whole answer.
func (a *asker) ask(question string) error {
	a.pipeline.Send(question)
	a.pipeline.Wait()
	return a.printer.lastErr()
}

// repl reads questions until EOF, Ctrl+C, /exit or ctx ends.
func (a *asker) repl(ctx context.Context, in LineReader) error {
	a.banner()
	for ctx.Err() == nil {
		line, err := in.ReadInput(askPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(a.out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(line, "/"):
			if !a.slash(line) {
				return nil
			}
			continue
		}
		// Errors are already printed with the answer.
		_ = a.ask(line)
	}
	return nil
}

// slash runs a slash command and reports whether the loop continues.
func (a *asker) slash(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/exit", "/quit":
		return false
	case "/clear":
		a.s.store.Clear()
		fmt.Fprintln(a.out, successStyle.Render("Chat cleared."))
	case "/provider":
		if len(fields) < 2 {
			fmt.Fprintln(a.out, "Provider:", sidebar.ProviderLabel(a.s.svc.Provider()))
			break
		}
		if err := a.s.svc.SetProvider(strings.ToLower(fields[1])); err != nil {
			fmt.Fprintln(a.out, errorStyle.Render("[Error]"), err.Error())
			break
		}
		fmt.Fprintln(a.out, "Provider:", sidebar.ProviderLabel(a.s.svc.Provider()))
	case "/help":
		fmt.Fprintln(a.out, strings.Join([]string{
			"/provider [name]  show or switch provider",
			"/clear            clear the chat",
			"/exit             leave",
		}, "\n"))
	default:
		fmt.Fprintln(a.out, errorStyle.Render("[Error]"), "unknown command "+fields[0]+" (try /help)")
	}
	return true
}

func (a *asker) banner() {
	width := TerminalWidth()
	if width > 60 {
		width = 60
	}
	fmt.Fprintln(a.out, titleStyle.Render("aichat")+" "+
		mutedStyle.Render("· "+sidebar.ProviderLabel(a.s.svc.Provider())+" · /help for commands"))
	fmt.Fprintln(a.out, mutedStyle.Render(strings.Repeat("─", width)))
	if n := a.s.store.Len(); n > 0 {
		fmt.Fprintln(a.out, mutedStyle.Render(fmt.Sprintf("%d earlier entries restored", n)))
	}
}
