// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies why a call ended in its error handler.
type Kind string

const (
	// KindEncode means the arguments could not be serialized; nothing was sent.
	KindEncode Kind = "encode"
	// KindTransport covers non-success statuses, network errors and timeouts.
	KindTransport Kind = "transport"
	// KindDecode means the reply body was not valid JSON.
	KindDecode Kind = "decode"
	// KindRemote means the server replied with a JSON-RPC error member.
	KindRemote Kind = "remote"
	// KindCanceled means the call was aborted before it finished.
	KindCanceled Kind = "canceled"
)

// ErrCanceled is wrapped by errors of KindCanceled.
var ErrCanceled = errors.New("rpc: call canceled")

// Error is what error handlers receive. Body holds the raw reply payload
// when the server sent one.
type Error struct {
	Op     string
	Kind   Kind
	Body   []byte
	Remote json.RawMessage
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindRemote:
		return fmt.Sprintf("rpc %s: remote error: %s", e.Op, string(e.Remote))
	case e.Err != nil:
		return fmt.Sprintf("rpc %s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("rpc %s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
