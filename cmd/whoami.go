package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"freetron/cli/internal/auth"
	"freetron/cli/internal/keychain"
)

// whoamiCmd shows the account recorded at login. The server has no whoami
// call, so this reads the local state only.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show current authenticated account",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			printNotLoggedIn()
			return nil
		}
		st, err := auth.Load(km)
		if err != nil || !st.LoggedIn {
			printNotLoggedIn()
			return nil
		}
		fmt.Printf("👤 Current user: %s\n", st.Account)
		fmt.Printf("   Server: %s (since %s)\n", st.Server, st.Since.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
