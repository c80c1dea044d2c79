// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-aichat/internal/config"
	"github.com/jeranaias/rigrun-aichat/internal/ollama"
	"github.com/jeranaias/rigrun-aichat/internal/provider"
	"github.com/jeranaias/rigrun-aichat/internal/ui/sidebar"
)

const checkTimeout = 3 * time.Second

func newProvidersCmd(cfgPath *string) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List providers and whether they are configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range config.Providers {
				marker := "  "
				if name == cfg.AI.DefaultProvider {
					marker = promptStyle.Render("* ")
				}
				status := errorStyle.Render("not configured")
				if provider.Configured(cfg.AI, name) {
					status = successStyle.Render("ready")
				}
				model, key := providerDetails(cfg.AI, name)
				fmt.Fprintf(out, "%s%-14s %-16s %-24s %s\n", marker,
					sidebar.ProviderLabel(name), status, valueStyle.Render(model), maskedStyle.Render(key))
			}
			if check {
				checkOllama(cmd.Context(), out, cfg.AI.Ollama)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "probe the Ollama server and its model")
	return cmd
}

func providerDetails(ai config.AIConfig, name string) (model, key string) {
	switch name {
	case config.ProviderOpenAI:
		return ai.OpenAI.Model, config.MaskKey(ai.OpenAI.APIToken)
	case config.ProviderAzure:
		return ai.Azure.DeploymentName, config.MaskKey(ai.Azure.APIToken)
	case config.ProviderGemini:
		return ai.Gemini.Model, config.MaskKey(ai.Gemini.APIToken)
	case config.ProviderOllama:
		return ai.Ollama.Model, ai.Ollama.URL
	}
	return "", ""
}

// checkOllama reports whether the server answers and has the model pulled.
// Cloud providers are not probed; that would spend tokens.
func checkOllama(ctx context.Context, out io.Writer, cfg config.OllamaConfig) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.URL,
		Timeout:      checkTimeout,
		DefaultModel: cfg.Model,
	})
	fmt.Fprintln(out)
	ok, err := client.HasModel(ctx, client.GetDefaultModel())
	switch {
	case ollama.IsNotRunning(err) || ollama.IsTimeout(err):
		fmt.Fprintln(out, errorStyle.Render("Ollama unreachable")+" at "+client.GetConfig().BaseURL)
	case err != nil:
		fmt.Fprintln(out, errorStyle.Render("Ollama check failed:")+" "+err.Error())
	case !ok:
		fmt.Fprintf(out, "%s model %s is not pulled (ollama pull %s)\n",
			errorStyle.Render("Ollama running,"), client.GetDefaultModel(), client.GetDefaultModel())
	default:
		fmt.Fprintf(out, "%s model %s available\n", successStyle.Render("Ollama running,"), client.GetDefaultModel())
	}
}
