// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package transport issues single outbound calls to the freetron server and
// reports their outcome through a fixed callback contract.
//
// Every call ends with exactly one terminal callback: OnComplete for a
// successful reply, OnFail for a non-success status, a network error or a
// timeout, or OnCancel when the caller aborts first. Zero or more OnProgress
// notifications precede the terminal callback. All callbacks issued through
// one Transport are delivered serially, so consumers may treat them as if they
// ran on a single event loop.
package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Direction tells which half of the exchange a progress notification measures.
type Direction int

const (
	// Upload counts request body bytes written to the server.
	Upload Direction = iota
	// Download counts response body bytes read from the server.
	Download
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// Progress is one progress notification. Total is negative when the size of
// the transfer is not known.
type Progress struct {
	Direction Direction
	Loaded    int64
	Total     int64
}

// Computable reports whether Total is known.
func (p Progress) Computable() bool { return p.Total > 0 }

// Percent returns the rounded completion percentage when Total is known.
func (p Progress) Percent() (int, bool) {
	if !p.Computable() {
		return 0, false
	}
	pct := int((p.Loaded*100 + p.Total/2) / p.Total)
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

// Callbacks is the four-slot contract of a call. Only OnComplete is required;
// the others default to no-ops.
type Callbacks struct {
	OnComplete func(body []byte)
	OnFail     func(body []byte, err error)
	OnProgress func(p Progress)
	OnCancel   func()
}

func (cb Callbacks) withDefaults() Callbacks {
	if cb.OnFail == nil {
		cb.OnFail = func([]byte, error) {}
	}
	if cb.OnProgress == nil {
		cb.OnProgress = func(Progress) {}
	}
	if cb.OnCancel == nil {
		cb.OnCancel = func() {}
	}
	return cb
}

// Transport sends one call per Send and returns without waiting for it.
type Transport interface {
	Send(ctx context.Context, endpoint string, payload Payload, cb Callbacks) *Call
}

// Outcome names the terminal callback that ended a call.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeFail     Outcome = "fail"
	OutcomeCancel   Outcome = "cancel"
)

var (
	// ErrNoTransport is returned by Negotiate when no candidate could be opened.
	ErrNoTransport = errors.New("transport: no transport mechanism available")
	// ErrTimeout is passed to OnFail when the call deadline expires.
	ErrTimeout = errors.New("transport: call timed out")
)

// StatusError is passed to OnFail for replies with a non-success status code.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return "transport: unexpected status " + e.Status
}

// Call is the handle of one in-flight call.
type Call struct {
	cancel   context.CancelFunc
	done     chan struct{}
	aborted  atomic.Bool
	finished bool
	outcome  Outcome
	// serial is shared by every call of the owning transport.
	serial *sync.Mutex
	cb     Callbacks
}

func newCall(serial *sync.Mutex, cb Callbacks, cancel context.CancelFunc) *Call {
	return &Call{
		cancel: cancel,
		done:   make(chan struct{}),
		serial: serial,
		cb:     cb.withDefaults(),
	}
}

// finishedCall returns a call that never started and fires no callbacks.
func finishedCall() *Call {
	c := &Call{done: make(chan struct{}), finished: true}
	close(c.done)
	return c
}

// Abort cancels the call. If no terminal callback has fired yet, OnCancel
// fires instead of it and nothing fires afterwards.
func (c *Call) Abort() {
	if c == nil || c.cancel == nil {
		return
	}
	c.aborted.Store(true)
	c.cancel()
}

// Done is closed after the terminal callback returns.
func (c *Call) Done() <-chan struct{} { return c.done }

// Outcome reports how the call ended. It is empty until Done is closed and
// for calls that never started.
func (c *Call) Outcome() Outcome {
	select {
	case <-c.done:
		return c.outcome
	default:
		return ""
	}
}

// progress delivers a progress notification unless the call already ended.
func (c *Call) progress(p Progress) {
	c.serial.Lock()
	defer c.serial.Unlock()
	if c.finished || c.aborted.Load() {
		return
	}
	c.cb.OnProgress(p)
}

// complete, fail and canceled deliver the terminal callback exactly once.
// An abort that raced with the reply wins.
func (c *Call) complete(body []byte) { c.terminate(OutcomeComplete, body, nil) }

func (c *Call) fail(body []byte, err error) { c.terminate(OutcomeFail, body, err) }

func (c *Call) canceled() { c.terminate(OutcomeCancel, nil, nil) }

func (c *Call) terminate(o Outcome, body []byte, err error) {
	c.serial.Lock()
	if c.finished {
		c.serial.Unlock()
		return
	}
	if c.aborted.Load() {
		o = OutcomeCancel
	}
	c.finished = true
	c.outcome = o
	switch o {
	case OutcomeComplete:
		c.cb.OnComplete(body)
	case OutcomeFail:
		c.cb.OnFail(body, err)
	default:
		c.cb.OnCancel()
	}
	c.serial.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	close(c.done)
}
