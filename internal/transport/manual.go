// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Manual is a Transport whose calls are resolved by hand. It lets the layers
// built on a Transport be exercised without a server: every Send is queued
// and the owner decides when and how each call ends.
type Manual struct {
	mu     sync.Mutex
	serial sync.Mutex
	calls  []*ManualCall
	added  chan struct{}
}

// NewManual returns an empty Manual transport.
func NewManual() *Manual {
	return &Manual{added: make(chan struct{})}
}

// ManualCall is one queued call.
type ManualCall struct {
	Endpoint    string
	ContentType string
	Body        []byte
	call        *Call
}

// Send queues the call. The payload is read eagerly.
func (m *Manual) Send(ctx context.Context, endpoint string, payload Payload, cb Callbacks) *Call {
	if cb.OnComplete == nil {
		return finishedCall()
	}
	if payload == nil {
		payload = Empty
	}
	mc := &ManualCall{Endpoint: endpoint}
	if body, ctype, _, err := payload.Open(); err == nil {
		mc.Body, _ = io.ReadAll(body)
		mc.ContentType = ctype
		_ = body.Close()
	}

	callCtx, cancelCtx := context.WithCancel(ctx)
	var c *Call
	c = newCall(&m.serial, cb, func() {
		cancelCtx()
		go c.canceled()
	})
	mc.call = c
	go func() {
		<-callCtx.Done()
		c.Abort()
	}()

	m.mu.Lock()
	m.calls = append(m.calls, mc)
	close(m.added)
	m.added = make(chan struct{})
	m.mu.Unlock()
	return c
}

// Calls returns every call sent so far, in order.
func (m *Manual) Calls() []*ManualCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ManualCall(nil), m.calls...)
}

// Len returns the number of calls sent so far.
func (m *Manual) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Await returns the n-th call (1-based), waiting up to timeout for it.
func (m *Manual) Await(n int, timeout time.Duration) (*ManualCall, error) {
	deadline := time.After(timeout)
	for {
		m.mu.Lock()
		if len(m.calls) >= n {
			mc := m.calls[n-1]
			m.mu.Unlock()
			return mc, nil
		}
		added := m.added
		m.mu.Unlock()

		select {
		case <-added:
		case <-deadline:
			return nil, fmt.Errorf("manual transport: call %d not sent within %s", n, timeout)
		}
	}
}

// Call returns the handle given to the sender.
func (mc *ManualCall) Call() *Call { return mc.call }

// Progress delivers a progress notification.
func (mc *ManualCall) Progress(p Progress) { mc.call.progress(p) }

// Complete ends the call successfully with body.
func (mc *ManualCall) Complete(body []byte) { mc.call.complete(body) }

// CompleteString is Complete with a string body.
func (mc *ManualCall) CompleteString(body string) { mc.call.complete([]byte(body)) }

// Fail ends the call with a failure.
func (mc *ManualCall) Fail(body []byte, err error) { mc.call.fail(body, err) }

// Cancel ends the call as if the caller had aborted it and waits for
// OnCancel to run.
func (mc *ManualCall) Cancel() {
	mc.call.Abort()
	<-mc.call.done
}
