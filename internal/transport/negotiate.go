// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Candidate is one way of reaching the server. Open fails when the mechanism
// is not usable on this host or with this configuration.
type Candidate struct {
	Name string
	Open func() (Transport, error)
}

// Negotiate opens the first usable candidate, once, at startup. When none
// can be opened it returns Unavailable together with ErrNoTransport.
func Negotiate(candidates ...Candidate) (Transport, string, error) {
	var errs []error
	for _, c := range candidates {
		if c.Open == nil {
			continue
		}
		t, err := c.Open()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		return t, c.Name, nil
	}
	errs = append([]error{ErrNoTransport}, errs...)
	return Unavailable, "", errors.Join(errs...)
}

// Unavailable never starts a call: Send returns a finished Call and no
// callback ever fires. Callers must not assume a bounded wait on it.
var Unavailable Transport = unavailable{}

type unavailable struct{}

func (unavailable) Send(context.Context, string, Payload, Callbacks) *Call {
	return finishedCall()
}

// HTTPCandidate reaches the server over TCP at baseURL.
func HTTPCandidate(baseURL string, opts Options) Candidate {
	return Candidate{
		Name: "http",
		Open: func() (Transport, error) {
			u, err := url.Parse(strings.TrimSpace(baseURL))
			if err != nil {
				return nil, err
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
			}
			if u.Host == "" {
				return nil, errors.New("missing host")
			}
			return NewHTTP(u.String(), opts), nil
		},
	}
}

// UnixCandidate reaches a server listening on a unix domain socket. The
// socket path must exist when the candidate is opened.
func UnixCandidate(socketPath string, opts Options) Candidate {
	return Candidate{
		Name: "unix",
		Open: func() (Transport, error) {
			if strings.TrimSpace(socketPath) == "" {
				return nil, errors.New("no socket configured")
			}
			conn, err := net.Dial("unix", socketPath)
			if err != nil {
				return nil, err
			}
			_ = conn.Close()

			base := opts.Client
			if base == nil {
				base = &http.Client{}
			}
			client := *base
			client.Transport = &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			}
			opts.Client = &client
			return NewHTTP("http://unix", opts), nil
		},
	}
}
