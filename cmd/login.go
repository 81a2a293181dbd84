// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"freetron/cli/internal/auth"
	"freetron/cli/internal/terminal"
	"freetron/cli/internal/validate"
)

var loginUser string

// loginCmd signs in with a username and password. The server answers with a
// session cookie that is kept in the OS keychain for later commands.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in to the freetron server",
	Long: `The login command signs in with a username and password. The password
is read without echo and only its salted SHA-256 digest is sent. The session
cookie returned by the server is stored in the OS keychain.

Set FREETRON_PASSWORD or pipe the password on stdin for non-interactive use.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if st, err := auth.Load(a.km); err == nil && st.LoggedIn && a.session.Active() && st.Server == a.ep.BaseURL {
			fmt.Printf("Already logged in as %s\n", st.Account)
			return nil
		}

		user := strings.TrimSpace(loginUser)
		if user == "" {
			if user, err = terminal.ReadLine("Username: ", os.Stdin); err != nil {
				return err
			}
			user = strings.TrimSpace(user)
		}
		if err := validate.CheckUser(user); err != nil {
			return err
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}

		var ok bool
		err = spin("Signing in", func() error {
			var err error
			ok, err = a.api.Login(ctx, user, password)
			return err
		})
		if err != nil {
			return a.fail("Login failed", err)
		}
		if !ok {
			printError("Login failed: wrong username or password")
			return reported(fmt.Errorf("login refused for %s", user))
		}

		a.saveSession()
		if err := auth.SetLoggedIn(a.km, user, a.ep.BaseURL); err != nil {
			a.log.Warn("could not save login state", "error", err)
		}
		fmt.Printf("✅ Logged in as %s\n", user)
		return nil
	},
}

// readPassword takes FREETRON_PASSWORD when set, else prompts.
func readPassword(prompt string) (string, error) {
	if pw := os.Getenv("FREETRON_PASSWORD"); pw != "" {
		return pw, nil
	}
	return terminal.ReadPassword(prompt, os.Stdin)
}

func init() {
	loginCmd.Flags().StringVarP(&loginUser, "user", "u", "", "username")
	rootCmd.AddCommand(loginCmd)
}
