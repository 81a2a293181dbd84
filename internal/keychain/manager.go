// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for freetron.
// It manages all interactions with the OS credential store: the session cookies
// issued by the server at login and the small account state shown by whoami.
//
// macOS uses the native security command when available; every other platform
// goes through 99designs/keyring with the backends native to that OS, and
// Linux falls back to an encrypted file under the XDG state directory.
package keychain

import (
	"errors"
	"os"
	"runtime"
	"sync"

	"github.com/99designs/keyring"

	"freetron/cli/internal/xdg"
)

// Global keychain manager instance
var (
	globalManager *Manager
	mu            sync.Mutex
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "freetron"

// Keys used for storing secrets in the OS keychain.
const (
	KeySession   = "session_cookies"
	KeyAuthState = "auth_state"
)

// PasswordEnv supplies the passphrase of the file keyring fallback.
const PasswordEnv = "FREETRON_KEYRING_PASSWORD"

// ErrNotFound is returned by Store.Get for missing items.
var ErrNotFound = errors.New("keychain: item not found")

// Store is a flat key/value secret store.
type Store interface {
	Set(key string, data []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu    sync.RWMutex
	store Store
}

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		if backend, err := newSecurityBackend(); err == nil {
			return &Manager{store: backend}, nil
		}
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{store: ringStore{ring: ring}}, nil
}

// NewWithRing wraps an already opened keyring.
func NewWithRing(ring keyring.Keyring) *Manager {
	return &Manager{store: ringStore{ring: ring}}
}

// NewMemory returns a manager backed by an in-memory keyring.
func NewMemory() *Manager {
	return NewWithRing(keyring.NewArrayKeyring(nil))
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

// SetManager replaces the global instance, mainly for tests.
func SetManager(m *Manager) {
	mu.Lock()
	defer mu.Unlock()
	globalManager = m
}

// openRing opens the OS keyring with the backends native to the platform.
func openRing() (keyring.Keyring, error) {
	cfg := keyring.Config{
		ServiceName: ServiceName,
		PassPrefix:  ServiceName,
	}

	switch runtime.GOOS {
	case "darwin":
		// Pass requires 'pass' utility installed: brew install pass
		cfg.AllowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		cfg.AllowedBackends = []keyring.BackendType{keyring.WinCredBackend}
		cfg.WinCredPrefix = ServiceName
	default:
		dir, err := xdg.StateDir()
		if err != nil {
			return nil, err
		}
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		}
		cfg.LibSecretCollectionName = ServiceName
		cfg.KWalletAppID = ServiceName
		cfg.KWalletFolder = ServiceName
		cfg.FileDir = dir
		cfg.FilePasswordFunc = filePassword
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. Install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}
	return ring, nil
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

type ringStore struct {
	ring keyring.Keyring
}

func (r ringStore) Set(key string, data []byte) error {
	return r.ring.Set(keyring.Item{Key: key, Data: data, Label: ServiceName + " " + key})
}

func (r ringStore) Get(key string) ([]byte, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return it.Data, nil
}

func (r ringStore) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

// load returns nil data for missing keys.
func (m *Manager) load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, err := m.store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (m *Manager) save(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Set(key, data)
}

// SaveSession stores the serialized session cookies.
func (m *Manager) SaveSession(data []byte) error { return m.save(KeySession, data) }

// LoadSession returns the serialized session cookies, or nil when none are stored.
func (m *Manager) LoadSession() ([]byte, error) { return m.load(KeySession) }

// SaveAuthState stores serialized auth state in the keychain.
func (m *Manager) SaveAuthState(data []byte) error { return m.save(KeyAuthState, data) }

// LoadAuthState retrieves serialized auth state, or nil when none is stored.
func (m *Manager) LoadAuthState() ([]byte, error) { return m.load(KeyAuthState) }

// ClearAuth removes the session and auth state from the keychain.
// This method is thread-safe.
func (m *Manager) ClearAuth() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.store.Delete(KeySession), m.store.Delete(KeyAuthState))
}
