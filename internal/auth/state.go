// Package auth keeps the login between CLI invocations.
//
// The freetron server authenticates by cookie. Session wraps a cookie jar
// that is handed to the HTTP transport and written back to the OS keychain
// after every command, and State records which account logged in where, for
// whoami and for friendly messages.
package auth

import (
	"encoding/json"
	"time"

	"freetron/cli/internal/keychain"
)

// State represents persisted authentication state for the current user.
type State struct {
	LoggedIn bool      `json:"logged_in"`
	Account  string    `json:"account"`
	Server   string    `json:"server"`
	Since    time.Time `json:"since"`
}

// Load reads the auth state from the keychain. Missing state yields zero value.
func Load(km *keychain.Manager) (State, error) {
	var s State
	data, err := km.LoadAuthState()
	if err != nil || len(data) == 0 {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}

// Save writes the auth state to the keychain.
func Save(km *keychain.Manager, s State) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return km.SaveAuthState(b)
}

// SetLoggedIn records a successful login of account on server.
func SetLoggedIn(km *keychain.Manager, account, server string) error {
	return Save(km, State{LoggedIn: true, Account: account, Server: server, Since: time.Now().UTC()})
}

// SetLoggedOut clears login state and the stored session cookies.
func SetLoggedOut(km *keychain.Manager) error {
	return km.ClearAuth()
}
