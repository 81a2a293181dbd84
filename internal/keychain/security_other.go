// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build !darwin

package keychain

import "errors"

// newSecurityBackend returns an error on non-macOS platforms.
func newSecurityBackend() (Store, error) {
	return nil, errors.New("security backend only available on macOS")
}
