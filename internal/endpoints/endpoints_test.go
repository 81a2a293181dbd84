// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package endpoints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name, server, socket string
		wantBase, wantSocket string
		wantHost             string
		wantErr              bool
	}{
		{name: "http", server: "http://localhost:8080", wantBase: "http://localhost:8080", wantHost: "localhost:8080"},
		{name: "trailing slash", server: "https://forms.example.com/", wantBase: "https://forms.example.com", wantHost: "forms.example.com"},
		{name: "sub path", server: "https://example.com/freetron/", wantBase: "https://example.com/freetron", wantHost: "example.com"},
		{name: "unix", server: "unix:///run/freetron.sock", wantBase: SocketBaseURL, wantSocket: "/run/freetron.sock", wantHost: "unix:/run/freetron.sock"},
		{name: "socket only", socket: "/tmp/f.sock", wantBase: SocketBaseURL, wantSocket: "/tmp/f.sock", wantHost: "unix:/tmp/f.sock"},
		{name: "explicit socket wins", server: "unix:///a.sock", socket: "/b.sock", wantBase: SocketBaseURL, wantSocket: "/b.sock", wantHost: "unix:/b.sock"},
		{name: "bad scheme", server: "ftp://host", wantErr: true},
		{name: "no host", server: "http://", wantErr: true},
		{name: "unix without path", server: "unix://", wantErr: true},
		{name: "nothing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Resolve(tt.server, tt.socket)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, e.BaseURL)
			assert.Equal(t, tt.wantSocket, e.Socket)
			assert.Equal(t, tt.wantHost, e.Host())
			assert.Equal(t, RPCPath, e.RPC)
			assert.Equal(t, UploadPath, e.Upload)
		})
	}
}

func TestURL(t *testing.T) {
	e, err := Resolve("http://h:1", "")
	require.NoError(t, err)
	assert.Equal(t, "http://h:1/rpc", e.URL(e.RPC))
	assert.True(t, e.TCP())

	e, err = Resolve("unix:///run/f.sock", "")
	require.NoError(t, err)
	assert.False(t, e.TCP())
}

func TestCurrent(t *testing.T) {
	t.Cleanup(func() { SetCurrent(nil) })
	assert.Nil(t, Current())
	e := &Endpoints{BaseURL: "http://x"}
	SetCurrent(e)
	assert.Same(t, e, Current())
}
