// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	ferrors "freetron/cli/internal/errors"
)

func TestUser(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"min length", "abcd", true},
		{"max length", strings.Repeat("a", 30), true},
		{"too short", "abc", false},
		{"too long", strings.Repeat("a", 31), false},
		{"punctuation allowed", "jo.doe-_1", true},
		{"space", "jo doe", false},
		{"at sign", "jo@doe", false},
		{"unicode", "jöhndoe", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := User(tt.in); got != tt.want {
				t.Errorf("User(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"0123456789", true},
		{"12345678901", false},
		{"", false},
		{"12a", false},
		{"-1", false},
		{" 1", false},
	}
	for _, tt := range tests {
		if got := Key(tt.in); got != tt.want {
			t.Errorf("Key(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		ctype, name string
		want        bool
	}{
		{"application/pdf", "scan.bin", true},
		{"", "scan.pdf", true},
		{"application/octet-stream", "SCAN.PDF", true},
		{"text/plain", "notes.txt", false},
		{"", "pdf", true},
		{"", "scan.pdf.zip", false},
	}
	for _, tt := range tests {
		if got := IsPDF(tt.ctype, tt.name); got != tt.want {
			t.Errorf("IsPDF(%q, %q) = %v, want %v", tt.ctype, tt.name, got, tt.want)
		}
	}
}

func TestPasswordHash(t *testing.T) {
	sum := sha256.Sum256([]byte("freetronsecret"))
	if got, want := PasswordHash("secret"), hex.EncodeToString(sum[:]); got != want {
		t.Errorf("PasswordHash(secret) = %s, want %s", got, want)
	}
	if PasswordHash("secret") == PasswordHash("Secret") {
		t.Error("PasswordHash must be case sensitive")
	}
}

func TestChecksReturnValidationErrors(t *testing.T) {
	for name, err := range map[string]error{
		"user": CheckUser("x"),
		"key":  CheckKey("x"),
		"pdf":  CheckPDF("text/plain", "a.txt"),
	} {
		if !ferrors.Is(err, ferrors.Validation) {
			t.Errorf("%s: got %v, want validation error", name, err)
		}
	}
	if err := CheckUser("valid_user"); err != nil {
		t.Errorf("CheckUser(valid_user) = %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0KB"},
		{512, "0.5KB"},
		{1024, "1KB"},
		{1536, "1.5KB"},
		{1000, "0.98KB"},
		{1024 * 1024, "1024KB"},
		{1024*1024 + 1, "1MB"},
		{5 * 1024 * 1024 / 2, "2.5MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.size); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
