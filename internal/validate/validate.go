// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package validate holds the client-side checks run before any request is
// sent: account names, upload keys, the PDF type check, and the password
// digest the server expects in place of the plain password.
package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	ferrors "freetron/cli/internal/errors"
)

// PasswordSalt is prepended to passwords before hashing.
const PasswordSalt = "freetron"

// PDFMime is the declared MIME type accepted for uploads.
const PDFMime = "application/pdf"

var (
	reUser = regexp.MustCompile(`^[A-Za-z0-9\-_.]+$`)
	reKey  = regexp.MustCompile(`^[0-9]+$`)
)

// User reports whether username is 4 to 30 characters of letters, digits,
// '-', '_' or '.'.
func User(username string) bool {
	if len(username) < 4 || len(username) > 30 {
		return false
	}
	return reUser.MatchString(username)
}

// Key reports whether key is 1 to 10 decimal digits.
func Key(key string) bool {
	if len(key) < 1 || len(key) > 10 {
		return false
	}
	return reKey.MatchString(key)
}

// IsPDF accepts a file whose declared type is application/pdf or whose name
// ends in "pdf", case-insensitively. File contents are not inspected.
func IsPDF(contentType, name string) bool {
	if contentType == PDFMime {
		return true
	}
	return strings.HasSuffix(strings.ToLower(name), "pdf")
}

// PasswordHash returns the hex SHA-256 digest of the salted password.
func PasswordHash(password string) string {
	sum := sha256.Sum256([]byte(PasswordSalt + password))
	return hex.EncodeToString(sum[:])
}

// CheckUser returns a validation error for an invalid username.
func CheckUser(username string) error {
	if !User(username) {
		return ferrors.New(ferrors.Validation, fmt.Sprintf("invalid username %q: use 4-30 letters, digits, '-', '_' or '.'", username))
	}
	return nil
}

// CheckKey returns a validation error for an invalid upload key.
func CheckKey(key string) error {
	if !Key(key) {
		return ferrors.New(ferrors.Validation, fmt.Sprintf("invalid key %q: use 1-10 digits", key))
	}
	return nil
}

// CheckPDF returns a validation error when the file is not a PDF.
func CheckPDF(contentType, name string) error {
	if !IsPDF(contentType, name) {
		return ferrors.New(ferrors.Validation, "Must be PDF")
	}
	return nil
}

// FormatSize renders a byte count the way the upload summary shows it:
// megabytes above 1 MiB, kilobytes otherwise, with up to two decimals.
func FormatSize(size int64) string {
	const mib = 1024 * 1024
	if size > mib {
		return trimNumber(float64(size)/mib) + "MB"
	}
	return trimNumber(float64(size)/1024) + "KB"
}

func trimNumber(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
