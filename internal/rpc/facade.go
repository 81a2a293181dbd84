// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package rpc turns a transport into named, callable JSON-RPC operations.
//
// A Facade is built once with a fixed set of operation names. Each operation
// POSTs {"id","method","params"} to base/name and dispatches the single JSON
// reply to a result or an error handler, never both.
//
// Two dispatch styles exist. Invoke uses the operation's shared hook pair,
// read when the reply arrives, so concurrent same-name calls race on which
// pair answers (the last assignment wins). Call and CallFunc bind handlers to
// the one call and are safe to use concurrently.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"freetron/cli/internal/transport"
)

// DefaultOperations is the operation set exposed by the freetron server.
var DefaultOperations = []string{
	"account_login",
	"account_logout",
	"account_create",
	"account_update",
	"account_delete",
	"form_process",
	"form_delete",
	"form_rename",
	"form_getall",
	"form_getone",
}

// Facade is a fixed registry of operations sharing one transport and endpoint.
type Facade struct {
	t     transport.Transport
	base  string
	ops   map[string]*Operation
	names []string
	seq   atomic.Int64
	log   *slog.Logger
}

// Option customizes a Facade.
type Option func(*Facade)

// WithLogger sets the logger used for per-call debug output.
func WithLogger(l *slog.Logger) Option {
	return func(f *Facade) {
		if l != nil {
			f.log = l
		}
	}
}

// New registers names against base (e.g. "/rpc"). Duplicate names are
// registered once; order follows first appearance.
func New(t transport.Transport, base string, names []string, opts ...Option) *Facade {
	f := &Facade{
		t:    t,
		base: strings.TrimRight(base, "/"),
		ops:  make(map[string]*Operation, len(names)),
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(f)
	}
	for _, n := range names {
		if _, ok := f.ops[n]; ok {
			continue
		}
		f.ops[n] = &Operation{f: f, name: n}
		f.names = append(f.names, n)
	}
	return f
}

// Op returns the named operation, or nil when it is not registered.
func (f *Facade) Op(name string) *Operation { return f.ops[name] }

// MustOp is like Op but panics on unknown names. Use it with constant names.
func (f *Facade) MustOp(name string) *Operation {
	op := f.ops[name]
	if op == nil {
		panic(fmt.Sprintf("rpc: operation %q is not registered", name))
	}
	return op
}

// Names lists the registered operations in registration order.
func (f *Facade) Names() []string { return append([]string(nil), f.names...) }

// Operation is one named remote procedure.
type Operation struct {
	f    *Facade
	name string

	mu       sync.Mutex
	onResult func(json.RawMessage)
	onError  func(error)
}

// Name returns the operation name.
func (o *Operation) Name() string { return o.name }

// Endpoint returns the path the operation is posted to.
func (o *Operation) Endpoint() string { return o.f.base + "/" + o.name }

// SetHooks overwrites the shared hook pair used by Invoke. Only the most
// recently assigned pair is honored for the next reply.
func (o *Operation) SetHooks(onResult func(json.RawMessage), onError func(error)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onResult = onResult
	o.onError = onError
}

func (o *Operation) hooks() (func(json.RawMessage), func(error)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.onResult, o.onError
}

// Invoke calls the operation and answers through whichever hook pair is
// assigned when the reply arrives.
func (o *Operation) Invoke(args ...any) *Future {
	return o.CallFunc(context.Background(),
		func(r json.RawMessage) {
			if onResult, _ := o.hooks(); onResult != nil {
				onResult(r)
			}
		},
		func(err error) {
			if _, onError := o.hooks(); onError != nil {
				onError(err)
			}
		},
		args...)
}

// CallFunc calls the operation with handlers bound to this call only.
// Exactly one handler runs per call given a responsive transport.
func (o *Operation) CallFunc(ctx context.Context, onResult func(json.RawMessage), onError func(error), args ...any) *Future {
	fut := &Future{done: make(chan struct{})}
	if onResult == nil {
		onResult = func(json.RawMessage) {}
	}
	if onError == nil {
		onError = func(error) {}
	}
	finish := func(r json.RawMessage, err error) {
		fut.result, fut.err = r, err
		if err != nil {
			onError(err)
		} else {
			onResult(r)
		}
		close(fut.done)
	}

	id := o.f.seq.Add(1)
	params := args
	if params == nil {
		params = []any{}
	}
	payload, err := transport.JSON(request{ID: id, Method: o.name, Params: params})
	if err != nil {
		finish(nil, &Error{Op: o.name, Kind: KindEncode, Err: err})
		return fut
	}

	o.f.log.Debug("rpc call", "op", o.name, "id", id)
	fut.call = o.f.t.Send(ctx, o.Endpoint(), payload, transport.Callbacks{
		OnComplete: func(body []byte) {
			result, rerr := decodeReply(o.name, body)
			if rerr != nil {
				o.f.log.Debug("rpc reply rejected", "op", o.name, "id", id, "kind", string(KindOf(rerr)))
			}
			finish(result, rerr)
		},
		OnFail: func(body []byte, err error) {
			finish(nil, &Error{Op: o.name, Kind: KindTransport, Body: body, Err: err})
		},
		OnCancel: func() {
			finish(nil, &Error{Op: o.name, Kind: KindCanceled, Err: ErrCanceled})
		},
	})
	return fut
}

// Call calls the operation and returns a handle to its result.
func (o *Operation) Call(ctx context.Context, args ...any) *Future {
	return o.CallFunc(ctx, nil, nil, args...)
}

type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// decodeReply unwraps a JSON-RPC envelope. Replies that are not envelopes
// are taken as the result value itself.
func decodeReply(op string, body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, &Error{Op: op, Kind: KindDecode, Body: body, Err: fmt.Errorf("invalid JSON reply")}
	}
	if trimmed[0] != '{' {
		return json.RawMessage(trimmed), nil
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, &Error{Op: op, Kind: KindDecode, Body: body, Err: err}
	}
	res, hasResult := env["result"]
	errRaw, hasError := env["error"]
	if !hasResult && !hasError {
		return json.RawMessage(trimmed), nil
	}
	if hasError && !isNull(errRaw) {
		return nil, &Error{Op: op, Kind: KindRemote, Body: body, Remote: errRaw}
	}
	if !hasResult {
		res = json.RawMessage("null")
	}
	return res, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// Future is the handle of one call.
type Future struct {
	call   *transport.Call
	done   chan struct{}
	result json.RawMessage
	err    error
}

// Done is closed once the call's handler has run.
func (f *Future) Done() <-chan struct{} { return f.done }

// Abort cancels the call; its error handler receives ErrCanceled.
func (f *Future) Abort() {
	if f.call != nil {
		f.call.Abort()
	}
}

// Wait blocks until the reply is handled or ctx ends.
func (f *Future) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Decode waits for the result and unmarshals it into v.
func (f *Future) Decode(ctx context.Context, v any) error {
	raw, err := f.Wait(ctx)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &Error{Kind: KindDecode, Body: raw, Err: err}
	}
	return nil
}
