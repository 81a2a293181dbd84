// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"freetron/cli/internal/auth"
)

// logoutCmd ends the server session and removes the stored cookies.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and remove the saved session",
	Long: `The logout command asks the server to end the current session
(best-effort) and always removes the session cookies and login state stored
in the OS keychain.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if a.session.Active() {
			if _, err := a.api.Logout(cmd.Context()); err != nil {
				a.log.Debug("remote logout failed", "error", err)
			}
		}
		if err := a.session.Clear(); err != nil {
			return err
		}
		_ = auth.SetLoggedOut(a.km)

		fmt.Println("✅ Session removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
