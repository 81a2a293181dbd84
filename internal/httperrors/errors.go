// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors provides user-friendly error handling for calls to the
// freetron server.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"freetron/cli/internal/transport"
)

// Category is the rough cause of a failed call, as shown to the user.
type Category int

const (
	Generic Category = iota
	Timeout
	DNS
	ConnectionRefused
	TLS
	Server
	Unauthorized
	NoTransport
)

// FormatNetworkError converts technical HTTP/network errors into user-friendly messages.
// It detects common error types (timeout, DNS, connection refused, SSL, server errors)
// and displays helpful troubleshooting information.
func FormatNetworkError(err error, context, server string) error {
	if err == nil {
		return nil
	}

	display(Classify(err), err, context, ExtractHostFromURL(server))

	// Return wrapped error for logging/debugging
	return fmt.Errorf("network error: %w", err)
}

// Classify picks the category that best explains err.
func Classify(err error) Category {
	if err == nil {
		return Generic
	}
	var status *transport.StatusError
	if errors.As(err, &status) {
		switch {
		case status.StatusCode == 401 || status.StatusCode == 403:
			return Unauthorized
		case status.StatusCode >= 500:
			return Server
		}
		return Generic
	}
	switch {
	case errors.Is(err, transport.ErrNoTransport):
		return NoTransport
	case isTimeoutError(err):
		return Timeout
	case isDNSError(err):
		return DNS
	case isConnectionRefusedError(err):
		return ConnectionRefused
	case isSSLError(err):
		return TLS
	}
	return Generic
}

func display(cat Category, err error, context, host string) {
	switch cat {
	case Timeout:
		showTimeoutError(context)
	case DNS:
		showDNSError(context, host)
	case ConnectionRefused:
		showConnectionRefusedError(context)
	case TLS:
		showSSLError(context)
	case Server:
		showServerError(context)
	case Unauthorized:
		showUnauthorizedError(context)
	case NoTransport:
		showNoTransportError(context)
	default:
		showGenericError(context, host, err.Error())
	}
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	if errors.Is(err, transport.ErrTimeout) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

func showTimeoutError(context string) {
	pterm.Printf("⏱️  Connection timeout while %s\n", context)
	pterm.Println()
	pterm.Println("The server took too long to respond. This could mean:")
	pterm.Println("  • Slow internet connection")
	pterm.Println("  • The server is busy processing other documents")
	pterm.Println()
	pterm.Println("Try again, or raise --timeout for large files.")
	pterm.Println()
}

func showDNSError(context, host string) {
	pterm.Printf("🌐 Cannot resolve server address while %s\n", context)
	pterm.Println()
	pterm.Printf("Unable to look up %s. Please check:\n", host)
	pterm.Println("  • Your internet connection is working")
	pterm.Println("  • The --server address or the server key in config.yaml")
	pterm.Println()
}

func showConnectionRefusedError(context string) {
	pterm.Printf("🚫 Connection refused while %s\n", context)
	pterm.Println()
	pterm.Println("The server is not accepting connections. This could mean:")
	pterm.Println("  • The freetron server is not running")
	pterm.Println("  • Wrong server address or port")
	pterm.Println()
}

func showSSLError(context string) {
	pterm.Printf("🔒 Secure connection failed while %s\n", context)
	pterm.Println()
	pterm.Println("Cannot establish a secure HTTPS connection. This could mean:")
	pterm.Println("  • SSL/TLS certificate issue")
	pterm.Println("  • Network proxy interfering with HTTPS")
	pterm.Println("  • System clock is incorrect")
	pterm.Println()
}

func showServerError(context string) {
	pterm.Printf("⚠️  Server error while %s\n", context)
	pterm.Println()
	pterm.Println("The freetron server encountered an internal error.")
	pterm.Println("Please try again in a few minutes.")
	pterm.Println()
}

func showUnauthorizedError(context string) {
	pterm.Printf("🔑 Not authorized while %s\n", context)
	pterm.Println()
	pterm.Println("Your session is missing or has expired. Run: freetron login")
	pterm.Println()
}

func showNoTransportError(context string) {
	pterm.Printf("❌ No way to reach the server while %s\n", context)
	pterm.Println()
	pterm.Println("Neither the configured server URL nor the local socket could be opened.")
	pterm.Println()
}

func showGenericError(context, host, errDetails string) {
	pterm.Printf("❌ Cannot reach the freetron server while %s\n", context)
	pterm.Println()
	pterm.Println("Please check:")
	pterm.Println("  • Your internet connection")
	pterm.Printf("  • Whether %s is accessible from your network\n", host)
	pterm.Println()

	if errDetails != "" {
		shortErr := errDetails
		if len(shortErr) > 100 {
			shortErr = shortErr[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", shortErr)
		pterm.Println()
	}
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
