// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freetron/cli/internal/transport"
)

const wait = 2 * time.Second

type handled struct {
	mu      sync.Mutex
	results []json.RawMessage
	errs    []error
}

func (h *handled) onResult(r json.RawMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, r)
}

func (h *handled) onError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *handled) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.results), len(h.errs)
}

func waitFuture(t *testing.T, f *Future) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(wait):
		t.Fatal("future not resolved")
	}
}

func TestNewRegistersNamesOnce(t *testing.T) {
	f := New(transport.NewManual(), "/rpc/", []string{"form_process", "form_getone", "form_process"})

	assert.Equal(t, []string{"form_process", "form_getone"}, f.Names())
	assert.Nil(t, f.Op("form_delete"))
	require.NotNil(t, f.Op("form_getone"))
	assert.Equal(t, "/rpc/form_getone", f.Op("form_getone").Endpoint())
	assert.Panics(t, func() { f.MustOp("nope") })
}

func TestCallRequestFormat(t *testing.T) {
	m := transport.NewManual()
	f := New(m, "/rpc", DefaultOperations)

	fut := f.MustOp("form_rename").Call(context.Background(), 7, "invoice")
	mc, err := m.Await(1, wait)
	require.NoError(t, err)

	assert.Equal(t, "/rpc/form_rename", mc.Endpoint)
	assert.Equal(t, "application/json", mc.ContentType)

	var req struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
		Params []any  `json:"params"`
	}
	require.NoError(t, json.Unmarshal(mc.Body, &req))
	assert.Equal(t, int64(1), req.ID)
	assert.Equal(t, "form_rename", req.Method)
	assert.Equal(t, []any{float64(7), "invoice"}, req.Params)

	mc.CompleteString(`{"id":1,"result":true,"error":null}`)
	var ok bool
	require.NoError(t, fut.Decode(context.Background(), &ok))
	assert.True(t, ok)
}

func TestCallWithoutArgsSendsEmptyParams(t *testing.T) {
	m := transport.NewManual()
	f := New(m, "/rpc", DefaultOperations)

	f.MustOp("form_getall").Call(context.Background())
	mc, err := m.Await(1, wait)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"method":"form_getall","params":[]}`, string(mc.Body))
}

func TestCallFuncDispatch(t *testing.T) {
	tests := []struct {
		name       string
		reply      func(mc *transport.ManualCall)
		wantResult string
		wantKind   Kind
	}{
		{
			name:       "envelope result",
			reply:      func(mc *transport.ManualCall) { mc.CompleteString(`{"id":1,"result":{"percent":40},"error":null}`) },
			wantResult: `{"percent":40}`,
		},
		{
			name:       "bare value",
			reply:      func(mc *transport.ManualCall) { mc.CompleteString(`42`) },
			wantResult: `42`,
		},
		{
			name:       "bare object",
			reply:      func(mc *transport.ManualCall) { mc.CompleteString(`{"percent":100}`) },
			wantResult: `{"percent":100}`,
		},
		{
			name:       "envelope without result",
			reply:      func(mc *transport.ManualCall) { mc.CompleteString(`{"id":1,"error":null}`) },
			wantResult: `null`,
		},
		{
			name:     "remote error",
			reply:    func(mc *transport.ManualCall) { mc.CompleteString(`{"id":1,"result":null,"error":"no such form"}`) },
			wantKind: KindRemote,
		},
		{
			name:     "not json",
			reply:    func(mc *transport.ManualCall) { mc.CompleteString(`<html>oops</html>`) },
			wantKind: KindDecode,
		},
		{
			name:     "empty body",
			reply:    func(mc *transport.ManualCall) { mc.CompleteString(``) },
			wantKind: KindDecode,
		},
		{
			name: "transport failure",
			reply: func(mc *transport.ManualCall) {
				mc.Fail([]byte("bad gateway"), &transport.StatusError{StatusCode: 502, Status: "502 Bad Gateway"})
			},
			wantKind: KindTransport,
		},
		{
			name:     "canceled",
			reply:    func(mc *transport.ManualCall) { mc.Cancel() },
			wantKind: KindCanceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := transport.NewManual()
			f := New(m, "/rpc", DefaultOperations)
			h := &handled{}

			fut := f.MustOp("form_process").CallFunc(context.Background(), h.onResult, h.onError, 1)
			mc, err := m.Await(1, wait)
			require.NoError(t, err)
			tt.reply(mc)
			waitFuture(t, fut)

			results, errs := h.counts()
			assert.Equal(t, 1, results+errs, "exactly one handler must run")
			if tt.wantKind == "" {
				require.Equal(t, 1, results)
				assert.JSONEq(t, tt.wantResult, string(h.results[0]))
				return
			}
			require.Equal(t, 1, errs)
			assert.Equal(t, tt.wantKind, KindOf(h.errs[0]))
			var rerr *Error
			require.True(t, errors.As(h.errs[0], &rerr))
			assert.Equal(t, "form_process", rerr.Op)
		})
	}
}

func TestRemoteErrorCarriesPayload(t *testing.T) {
	m := transport.NewManual()
	f := New(m, "/rpc", DefaultOperations)

	fut := f.MustOp("form_delete").Call(context.Background(), 3)
	mc, err := m.Await(1, wait)
	require.NoError(t, err)
	mc.CompleteString(`{"result":null,"error":{"code":1,"message":"denied"}}`)

	_, err = fut.Wait(context.Background())
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.JSONEq(t, `{"code":1,"message":"denied"}`, string(rerr.Remote))
}

func TestAbortYieldsErrCanceled(t *testing.T) {
	m := transport.NewManual()
	f := New(m, "/rpc", DefaultOperations)

	fut := f.MustOp("form_process").Call(context.Background(), 9)
	mc, err := m.Await(1, wait)
	require.NoError(t, err)

	fut.Abort()
	_, err = fut.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCanceled)

	// A reply arriving after the abort is dropped.
	mc.CompleteString(`{"percent":10}`)
	assert.Equal(t, transport.OutcomeCancel, mc.Call().Outcome())
}

func TestContextCancelYieldsErrCanceled(t *testing.T) {
	m := transport.NewManual()
	f := New(m, "/rpc", DefaultOperations)
	ctx, cancel := context.WithCancel(context.Background())

	fut := f.MustOp("form_getone").Call(ctx, 9)
	_, err := m.Await(1, wait)
	require.NoError(t, err)

	cancel()
	_, err = fut.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestInvokeHooksLastWriterWins(t *testing.T) {
	m := transport.NewManual()
	f := New(m, "/rpc", DefaultOperations)
	op := f.MustOp("account_login")

	first, second := &handled{}, &handled{}
	op.SetHooks(first.onResult, first.onError)
	fa := op.Invoke("alice", "digest")
	op.SetHooks(second.onResult, second.onError)
	fb := op.Invoke("bob", "digest")

	a, err := m.Await(1, wait)
	require.NoError(t, err)
	b, err := m.Await(2, wait)
	require.NoError(t, err)

	a.CompleteString(`true`)
	b.CompleteString(`false`)
	waitFuture(t, fa)
	waitFuture(t, fb)

	r1, e1 := first.counts()
	assert.Zero(t, r1+e1, "overwritten hooks must not be called")
	r2, e2 := second.counts()
	assert.Equal(t, 2, r2)
	assert.Zero(t, e2)
}

func TestCallFuncIsolatesConcurrentCalls(t *testing.T) {
	m := transport.NewManual()
	f := New(m, "/rpc", DefaultOperations)
	op := f.MustOp("account_login")

	first, second := &handled{}, &handled{}
	fa := op.CallFunc(context.Background(), first.onResult, first.onError, "alice")
	fb := op.CallFunc(context.Background(), second.onResult, second.onError, "bob")

	a, err := m.Await(1, wait)
	require.NoError(t, err)
	b, err := m.Await(2, wait)
	require.NoError(t, err)

	b.CompleteString(`false`)
	a.CompleteString(`true`)
	waitFuture(t, fa)
	waitFuture(t, fb)

	require.Len(t, first.results, 1)
	require.Len(t, second.results, 1)
	assert.Equal(t, "true", string(first.results[0]))
	assert.Equal(t, "false", string(second.results[0]))
}

func TestEncodeErrorReportedWithoutSending(t *testing.T) {
	m := transport.NewManual()
	f := New(m, "/rpc", DefaultOperations)
	h := &handled{}

	fut := f.MustOp("form_rename").CallFunc(context.Background(), h.onResult, h.onError, make(chan int))
	waitFuture(t, fut)

	assert.Zero(t, m.Len())
	require.Len(t, h.errs, 1)
	assert.Equal(t, KindEncode, KindOf(h.errs[0]))
}

func TestWaitHonorsContext(t *testing.T) {
	m := transport.NewManual()
	f := New(m, "/rpc", DefaultOperations)

	fut := f.MustOp("form_getall").Call(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := fut.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
