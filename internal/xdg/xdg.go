// Package xdg provides helpers to resolve XDG Base Directory paths for freetron.
// Configuration (config.yaml) lives under the config directory; the file
// keyring fallback keeps its encrypted items under the state directory.
//
// Both helpers fall back to the traditional locations when the XDG
// environment variables are not set and create the directory privately.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName names the per-application subdirectory.
const AppName = "freetron"

// ConfigDir returns the XDG config directory for freetron.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/freetron when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for freetron.
// It falls back to ~/.local/state/freetron when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return appDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func appDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
