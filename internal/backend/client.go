// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"fmt"

	ferrors "freetron/cli/internal/errors"
	"freetron/cli/internal/model"
	"freetron/cli/internal/rpc"
	"freetron/cli/internal/validate"
)

// Client implements API over an rpc.Facade.
type Client struct {
	f *rpc.Facade
}

// New creates a backend API implementation. f must register rpc.DefaultOperations.
func New(f *rpc.Facade) *Client {
	return &Client{f: f}
}

var _ API = (*Client)(nil)

// call runs op synchronously and decodes the result into v.
func (c *Client) call(ctx context.Context, op string, v any, args ...any) error {
	o := c.f.Op(op)
	if o == nil {
		return ferrors.New(ferrors.Application, fmt.Sprintf("operation %s is not available", op))
	}
	raw, err := o.Call(ctx, args...).Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ferrors.Wrap(ferrors.Canceled, op+" interrupted", err)
		}
		return classify(op, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ferrors.Wrap(ferrors.Transport, fmt.Sprintf("unexpected %s reply", op), err)
	}
	return nil
}

// classify maps façade failures onto the CLI error kinds.
func classify(op string, err error) error {
	switch rpc.KindOf(err) {
	case rpc.KindCanceled:
		return ferrors.Wrap(ferrors.Canceled, op+" canceled", err)
	case rpc.KindRemote:
		return ferrors.Wrap(ferrors.Application, op+" rejected by server", err)
	default:
		return ferrors.Wrap(ferrors.Transport, op+" failed", err)
	}
}

func (c *Client) verdict(ctx context.Context, op string, args ...any) (bool, error) {
	var ok bool
	if err := c.call(ctx, op, &ok, args...); err != nil {
		return false, err
	}
	return ok, nil
}

func (c *Client) Login(ctx context.Context, user, password string) (bool, error) {
	if err := validate.CheckUser(user); err != nil {
		return false, err
	}
	return c.verdict(ctx, "account_login", user, validate.PasswordHash(password))
}

func (c *Client) Logout(ctx context.Context) (bool, error) {
	return c.verdict(ctx, "account_logout")
}

func (c *Client) CreateAccount(ctx context.Context, user, password string) (bool, error) {
	if err := validate.CheckUser(user); err != nil {
		return false, err
	}
	return c.verdict(ctx, "account_create", user, validate.PasswordHash(password))
}

func (c *Client) UpdateAccount(ctx context.Context, user, password string) (bool, error) {
	if err := validate.CheckUser(user); err != nil {
		return false, err
	}
	return c.verdict(ctx, "account_update", user, validate.PasswordHash(password))
}

func (c *Client) DeleteAccount(ctx context.Context, code int) (bool, error) {
	return c.verdict(ctx, "account_delete", code)
}

func (c *Client) Forms(ctx context.Context) ([]model.Form, error) {
	var forms []model.Form
	if err := c.call(ctx, "form_getall", &forms); err != nil {
		return nil, err
	}
	return forms, nil
}

// Form returns the single record the server keeps for id. Anything other
// than exactly one record is treated as missing.
func (c *Client) Form(ctx context.Context, id int64) (*model.Form, error) {
	var forms []model.Form
	if err := c.call(ctx, "form_getone", &forms, id); err != nil {
		return nil, err
	}
	if len(forms) != 1 {
		return nil, nil
	}
	return &forms[0], nil
}

func (c *Client) DeleteForm(ctx context.Context, id int64) (bool, error) {
	return c.verdict(ctx, "form_delete", id)
}

func (c *Client) RenameForm(ctx context.Context, id int64, name string) (bool, error) {
	return c.verdict(ctx, "form_rename", id, name)
}
