// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Observer receives one notification per finished call.
type Observer interface {
	ObserveCall(endpoint string, outcome Outcome, elapsed time.Duration)
}

// Options configures an HTTP transport.
type Options struct {
	// Client performs the requests. A client with a cookie jar carries the
	// server session between calls.
	Client *http.Client
	// Timeout bounds every call. Zero leaves calls bounded only by the caller's
	// context.
	Timeout time.Duration
	// UserAgent is sent on every request when set.
	UserAgent string
	Observer  Observer
	Logger    *slog.Logger
}

// HTTP implements Transport over net/http POST requests.
type HTTP struct {
	// baseURL is prefixed to relative endpoints (e.g. "https://freetron.example")
	baseURL string
	client  *http.Client
	timeout time.Duration
	agent   string
	obs     Observer
	log     *slog.Logger
	// serial orders callback delivery across all calls of this transport
	serial sync.Mutex
}

// NewHTTP creates an HTTP transport rooted at baseURL.
func NewHTTP(baseURL string, opts Options) *HTTP {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: opts.Timeout,
		agent:   opts.UserAgent,
		obs:     opts.Observer,
		log:     log,
	}
}

// URL resolves endpoint against the transport's base URL.
func (h *HTTP) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return h.baseURL + endpoint
}

// Send starts one POST to endpoint. A nil OnComplete means the call is not
// started; the returned Call is already done and no callback fires.
func (h *HTTP) Send(ctx context.Context, endpoint string, payload Payload, cb Callbacks) *Call {
	if cb.OnComplete == nil {
		return finishedCall()
	}
	if payload == nil {
		payload = Empty
	}

	callCtx, cancel := context.WithCancel(ctx)
	if h.timeout > 0 {
		callCtx, cancel = withTimeout(callCtx, cancel, h.timeout)
	}
	c := newCall(&h.serial, cb, cancel)
	go h.run(callCtx, c, endpoint, payload)
	return c
}

func withTimeout(ctx context.Context, cancelParent context.CancelFunc, d time.Duration) (context.Context, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(ctx, d)
	return tctx, func() {
		cancel()
		cancelParent()
	}
}

func (h *HTTP) run(ctx context.Context, c *Call, endpoint string, payload Payload) {
	start := time.Now()
	target := h.URL(endpoint)
	defer func() {
		<-c.done
		if h.obs != nil {
			h.obs.ObserveCall(endpoint, c.outcome, time.Since(start))
		}
		h.log.Debug("transport call finished", "endpoint", endpoint, "outcome", string(c.outcome), "elapsed", time.Since(start))
	}()

	body, ctype, size, err := payload.Open()
	if err != nil {
		c.fail(nil, fmt.Errorf("open payload: %w", err))
		return
	}

	var reqBody io.Reader = http.NoBody
	if size != 0 {
		reqBody = &countingReader{r: body, total: size, dir: Upload, report: c.progress}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, reqBody)
	if err != nil {
		_ = body.Close()
		c.fail(nil, err)
		return
	}
	if size > 0 {
		req.ContentLength = size
	}
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if h.agent != "" {
		req.Header.Set("User-Agent", h.agent)
	}

	h.log.Debug("transport call started", "endpoint", endpoint, "bytes", size)
	resp, err := h.client.Do(req)
	_ = body.Close()
	if err != nil {
		h.finishWithError(ctx, c, nil, err)
		return
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(&countingReader{r: resp.Body, total: resp.ContentLength, dir: Download, report: c.progress})
	if err != nil {
		h.finishWithError(ctx, c, rb, err)
		return
	}

	if resp.StatusCode != http.StatusOK {
		c.fail(rb, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
		return
	}
	c.complete(rb)
}

// finishWithError maps a request error to the right terminal callback:
// caller cancellation is OnCancel, an expired deadline is a failure.
func (h *HTTP) finishWithError(ctx context.Context, c *Call, body []byte, err error) {
	switch {
	case c.aborted.Load():
		c.canceled()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		c.fail(body, fmt.Errorf("%w: %v", ErrTimeout, err))
	case errors.Is(ctx.Err(), context.Canceled):
		c.canceled()
	default:
		c.fail(body, err)
	}
}

// countingReader reports bytes as they pass through.
type countingReader struct {
	r      io.Reader
	loaded int64
	total  int64
	dir    Direction
	report func(Progress)
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.loaded += int64(n)
		total := cr.total
		if total <= 0 {
			total = -1
		}
		cr.report(Progress{Direction: cr.dir, Loaded: cr.loaded, Total: total})
	}
	return n, err
}
