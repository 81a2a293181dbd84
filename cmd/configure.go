// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"freetron/cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or save CLI configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, v, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if f := v.ConfigFileUsed(); f != "" {
			if _, err := os.Stat(f); err == nil {
				fmt.Printf("# %s\n", f)
			}
		}
		return yaml.NewEncoder(os.Stdout).Encode(map[string]any{
			"server":    cfg.Server,
			"socket":    cfg.Socket,
			"log_level": cfg.LogLevel,
			"timeout":   cfg.Timeout.String(),
			"poll": map[string]any{
				"max_attempts": cfg.Poll.MaxAttempts,
				"interval":     cfg.Poll.Interval.String(),
				"timeout":      cfg.Poll.Timeout.String(),
			},
		})
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the effective configuration, including --server and --socket, to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, v, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.Save(v.ConfigFileUsed(), cfg); err != nil {
			return err
		}
		fmt.Printf("✅ Configuration saved to %s\n", v.ConfigFileUsed())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSaveCmd)
	rootCmd.AddCommand(configCmd)
}
