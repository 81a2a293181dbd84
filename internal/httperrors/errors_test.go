// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package httperrors

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"freetron/cli/internal/transport"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"server status", &transport.StatusError{StatusCode: 503, Status: "503 Service Unavailable"}, Server},
		{"unauthorized", fmt.Errorf("call: %w", &transport.StatusError{StatusCode: 401, Status: "401 Unauthorized"}), Unauthorized},
		{"client status", &transport.StatusError{StatusCode: 404, Status: "404 Not Found"}, Generic},
		{"call timeout", fmt.Errorf("upload: %w", transport.ErrTimeout), Timeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "forms.invalid"}, DNS},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), ConnectionRefused},
		{"tls", errors.New("x509: certificate signed by unknown authority"), TLS},
		{"no transport", transport.ErrNoTransport, NoTransport},
		{"other", errors.New("boom"), Generic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractHostFromURL(t *testing.T) {
	if got := ExtractHostFromURL("https://forms.example.com:8443/rpc"); got != "forms.example.com:8443" {
		t.Errorf("got %q", got)
	}
	if got := ExtractHostFromURL("::bad"); got != "server" {
		t.Errorf("got %q", got)
	}
}
