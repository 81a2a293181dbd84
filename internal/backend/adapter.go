// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides interfaces and implementations for communicating with the freetron server.
// It defines the API contract for account and forms operations on top of the
// RPC façade, so commands deal in typed values instead of raw JSON replies.
package backend

import (
	"context"

	"freetron/cli/internal/model"
)

// API defines server operations the CLI depends on.
// Implementations may call the real server or provide mocks for tests.
//
// Account methods return the server's boolean verdict; false with a nil
// error means the server refused the request (bad credentials, name taken).
type API interface {
	// Login sends the username and the salted password digest.
	Login(ctx context.Context, user, password string) (bool, error)
	Logout(ctx context.Context) (bool, error)
	CreateAccount(ctx context.Context, user, password string) (bool, error)
	// UpdateAccount changes the username and password of the logged in account.
	UpdateAccount(ctx context.Context, user, password string) (bool, error)
	// DeleteAccount removes the account; code is the numeric confirmation code.
	DeleteAccount(ctx context.Context, code int) (bool, error)

	Forms(ctx context.Context) ([]model.Form, error)
	// Form returns the record for id, or nil when the server has none.
	Form(ctx context.Context, id int64) (*model.Form, error)
	DeleteForm(ctx context.Context, id int64) (bool, error)
	RenameForm(ctx context.Context, id int64, name string) (bool, error)
}
