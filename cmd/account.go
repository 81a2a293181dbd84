// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"freetron/cli/internal/auth"
	ferrors "freetron/cli/internal/errors"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Create, update or delete the freetron account",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a new account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		password, err := confirmPassword()
		if err != nil {
			return err
		}
		var ok bool
		err = spin("Creating account", func() error {
			ok, err = a.api.CreateAccount(cmd.Context(), args[0], password)
			return err
		})
		if err != nil {
			return a.fail("Create account failed", err)
		}
		if !ok {
			printError("The server refused to create the account; the username may be taken")
			return reported(errors.New("account create refused"))
		}
		a.saveSession()
		fmt.Printf("✅ Account %s created\n", args[0])
		return nil
	},
}

var accountUpdateCmd = &cobra.Command{
	Use:   "update <new-username>",
	Short: "Change the username and password of the logged in account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if !requireLogin(a) {
			return nil
		}
		password, err := confirmPassword()
		if err != nil {
			return err
		}
		var ok bool
		err = spin("Updating account", func() error {
			ok, err = a.api.UpdateAccount(cmd.Context(), args[0], password)
			return err
		})
		if err != nil {
			return a.fail("Update account failed", err)
		}
		if !ok {
			printError("The server refused the update")
			return reported(errors.New("account update refused"))
		}
		a.saveSession()
		if err := auth.SetLoggedIn(a.km, args[0], a.ep.BaseURL); err != nil {
			a.log.Warn("could not save login state", "error", err)
		}
		fmt.Printf("✅ Account updated, now signed in as %s\n", args[0])
		return nil
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete <code>",
	Short: "Delete the logged in account",
	Long: `Deletes the logged in account and all its forms. The server asks for the
numeric confirmation code shown on the account page.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return ferrors.New(ferrors.Validation, "confirmation code must be a number")
		}
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if !requireLogin(a) {
			return nil
		}
		var ok bool
		err = spin("Deleting account", func() error {
			ok, err = a.api.DeleteAccount(cmd.Context(), code)
			return err
		})
		if err != nil {
			return a.fail("Delete account failed", err)
		}
		if !ok {
			printError("The server refused to delete the account; check the confirmation code")
			return reported(errors.New("account delete refused"))
		}
		if err := a.session.Clear(); err != nil {
			a.log.Warn("could not clear session", "error", err)
		}
		fmt.Println("✅ Account deleted")
		return nil
	},
}

// confirmPassword asks for a new password twice.
func confirmPassword() (string, error) {
	if pw := os.Getenv("FREETRON_PASSWORD"); pw != "" {
		return pw, nil
	}
	first, err := readPassword("New password: ")
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", ferrors.New(ferrors.Validation, "password must not be empty")
	}
	second, err := readPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", ferrors.New(ferrors.Validation, "passwords do not match")
	}
	return first, nil
}

func init() {
	accountCmd.AddCommand(accountCreateCmd, accountUpdateCmd, accountDeleteCmd)
	rootCmd.AddCommand(accountCmd)
}
