// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model holds the records exchanged with the freetron server.
package model

// Form is one processed document as returned by form_getone and form_getall.
type Form struct {
	// ID is the server-assigned job/form identifier
	ID int64 `json:"id" yaml:"id"`
	// Name is the display name, initially the uploaded file name
	Name string `json:"name" yaml:"name"`
	// Date is the processing date as formatted by the server
	Date string `json:"date" yaml:"date"`
	// Data is the extracted form content
	Data string `json:"data" yaml:"data"`
}
