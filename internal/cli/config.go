// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-aichat/internal/config"
)

func newConfigCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
	}
	cmd.AddCommand(newConfigShowCmd(cfgPath))
	cmd.AddCommand(newConfigGetCmd(cfgPath))
	cmd.AddCommand(newConfigSetCmd(cfgPath))
	cmd.AddCommand(newConfigPathCmd(cfgPath))
	return cmd
}

func newConfigShowCmd(cfgPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				_, err := fmt.Fprintln(out, cfg.String())
				return err
			}
			return printConfig(out, cfg, path)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON with secrets redacted")
	return cmd
}

func newConfigGetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), displayValue(args[0], v))
			return err
		},
	}
}

func newConfigSetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value and save the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			cfg, path, err := loadFileConfig(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.SaveTOML(cfg, path); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n",
				successStyle.Render("Set"), key, displayValue(key, value))
			return err
		},
	}
}

func newConfigPathCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(*cfgPath)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

// loadFileConfig reads the file without environment overrides, so that
// saving does not write env-provided secrets to disk.
func loadFileConfig(path string) (*config.Config, string, error) {
	path, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return nil, path, err
		}
	}
	return cfg, path, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return config.ConfigPath()
}

func displayValue(key string, v interface{}) string {
	s := fmt.Sprint(v)
	if config.IsSecretKey(key) {
		return config.MaskKey(s)
	}
	return s
}

func printConfig(out io.Writer, cfg *config.Config, path string) error {
	fmt.Fprintln(out, titleStyle.Render("aichat configuration"))
	section := ""
	for _, key := range config.GetAllKeys() {
		name, field, ok := strings.Cut(key, ".")
		if !ok {
			name, field = "", key
		}
		if rest, sub, ok := strings.Cut(field, "."); ok {
			name, field = name+"."+rest, sub
		}
		if name != section {
			section = name
			fmt.Fprintln(out)
			fmt.Fprintln(out, sectionStyle.Render("["+section+"]"))
		}
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		value := valueStyle.Render(displayValue(key, v))
		if config.IsSecretKey(key) {
			value = maskedStyle.Render(displayValue(key, v))
		}
		fmt.Fprintf(out, "  %s %s\n", keyStyle.Render(field+":"), value)
	}
	fmt.Fprintln(out)
	_, err := fmt.Fprintln(out, mutedStyle.Render("Config file: "+path))
	return err
}
