// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package endpoints resolves where the freetron server lives and which
// paths it serves RPC and uploads on.
package endpoints

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Endpoints is the resolved server location.
type Endpoints struct {
	// BaseURL is scheme://host[:port] with no trailing slash. For a unix
	// socket server it is a placeholder host used to build request URLs.
	BaseURL string
	// Socket is the unix socket path, empty for TCP servers.
	Socket string
	RPC    string
	Upload string
}

// Default paths served by the freetron web application.
const (
	RPCPath    = "/rpc"
	UploadPath = "/upload"
)

// SocketBaseURL is the base URL requests carry when sent over a unix socket.
const SocketBaseURL = "http://unix"

// Resolve parses server, which is either an http(s) URL or unix:///path/to.sock.
// An explicit socket overrides the socket derived from server.
func Resolve(server, socket string) (Endpoints, error) {
	e := Endpoints{RPC: RPCPath, Upload: UploadPath, Socket: socket}
	server = strings.TrimSpace(server)
	if server == "" && socket == "" {
		return Endpoints{}, fmt.Errorf("no server configured")
	}
	if server == "" {
		e.BaseURL = SocketBaseURL
		return e, nil
	}

	u, err := url.Parse(server)
	if err != nil {
		return Endpoints{}, fmt.Errorf("parse server %q: %w", server, err)
	}
	switch u.Scheme {
	case "unix":
		if u.Path == "" {
			return Endpoints{}, fmt.Errorf("server %q: missing socket path", server)
		}
		if e.Socket == "" {
			e.Socket = u.Path
		}
		e.BaseURL = SocketBaseURL
		return e, nil
	case "http", "https":
	default:
		return Endpoints{}, fmt.Errorf("server %q: scheme must be http, https or unix", server)
	}
	if u.Host == "" {
		return Endpoints{}, fmt.Errorf("server %q: missing host", server)
	}
	// A path prefix is kept so the app can live under a sub-path.
	e.BaseURL = strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/")
	return e, nil
}

// URL returns the absolute URL of path on the server.
func (e Endpoints) URL(path string) string {
	return e.BaseURL + path
}

// TCP reports whether the server is reachable by URL, not only by socket.
func (e Endpoints) TCP() bool { return e.BaseURL != SocketBaseURL }

// Host is the display name of the server.
func (e Endpoints) Host() string {
	if e.Socket != "" {
		return "unix:" + e.Socket
	}
	if u, err := url.Parse(e.BaseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return e.BaseURL
}

var (
	current     *Endpoints
	currentLock sync.RWMutex
)

// Current returns the endpoints resolved for this process, or nil.
func Current() *Endpoints {
	currentLock.RLock()
	defer currentLock.RUnlock()
	return current
}

// SetCurrent stores the endpoints resolved at startup.
func SetCurrent(e *Endpoints) {
	currentLock.Lock()
	defer currentLock.Unlock()
	current = e
}
