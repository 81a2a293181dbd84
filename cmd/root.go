// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the freetron CLI.
// It implements subcommands for the account, PDF form upload and processing,
// and the processed form records, using the Cobra CLI framework with a pterm
// terminal UI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"freetron/cli/internal/logging"
)

var (
	flagServer  string
	flagSocket  string
	flagConfig  string
	flagVerbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "freetron",
	Short: "Freetron CLI for PDF form processing",
	Long: `Freetron uploads PDF forms to a freetron server, follows the server-side
processing until the form data is extracted, and manages the processed
records and the account they belong to.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// reportedError marks an error that has already been shown to the user.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var shown reportedError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, logging.PresentError("freetron", err))
		}
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagServer, "server", "", "freetron server URL (http, https or unix:///path)")
	pf.StringVar(&flagSocket, "socket", "", "unix socket to try before the server URL")
	pf.StringVar(&flagConfig, "config", "", "config file (default $XDG_CONFIG_HOME/freetron/config.yaml)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}
