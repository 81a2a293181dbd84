// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"
)

// Payload is an optional request body. Open is called once per call.
// Size is negative when unknown.
type Payload interface {
	Open() (body io.ReadCloser, contentType string, size int64, err error)
}

// Empty is a call without a body.
var Empty Payload = emptyPayload{}

type emptyPayload struct{}

func (emptyPayload) Open() (io.ReadCloser, string, int64, error) {
	return emptyBody{}, "", 0, nil
}

// emptyBody is an empty, closeable reader.
type emptyBody struct{}

func (emptyBody) Read([]byte) (int, error) { return 0, io.EOF }
func (emptyBody) Close() error             { return nil }

type bytesPayload struct {
	contentType string
	data        []byte
}

// Bytes sends data verbatim with the given content type.
func Bytes(contentType string, data []byte) Payload {
	return bytesPayload{contentType: contentType, data: data}
}

func (p bytesPayload) Open() (io.ReadCloser, string, int64, error) {
	return io.NopCloser(bytes.NewReader(p.data)), p.contentType, int64(len(p.data)), nil
}

// JSON encodes v once and sends it as application/json.
func JSON(v any) (Payload, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json payload: %w", err)
	}
	return Bytes("application/json", b), nil
}

// FilePart describes a file sent as one part of a multipart/form-data body.
type FilePart struct {
	// Field is the form field name, e.g. "file".
	Field string
	// Filename is reported to the server; it defaults to the base of Path.
	Filename    string
	ContentType string
	Path        string
}

type multipartPayload struct {
	part FilePart
}

// MultipartFile streams the file at part.Path as a single-part form. The body
// size is computed up front so upload progress has a total.
func MultipartFile(part FilePart) Payload {
	return multipartPayload{part: part}
}

func (p multipartPayload) Open() (io.ReadCloser, string, int64, error) {
	f, err := os.Open(p.part.Path)
	if err != nil {
		return nil, "", 0, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, "", 0, err
	}

	filename := p.part.Filename
	if filename == "" {
		filename = st.Name()
	}
	ctype := p.part.ContentType
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	// Render the part header and the closing boundary into buffers; the file
	// itself is streamed between them.
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(p.part.Field), escapeQuotes(filename)))
	h.Set("Content-Type", ctype)
	if _, err := mw.CreatePart(h); err != nil {
		_ = f.Close()
		return nil, "", 0, err
	}
	prefix := append([]byte(nil), head.Bytes()...)
	head.Reset()
	if err := mw.Close(); err != nil {
		_ = f.Close()
		return nil, "", 0, err
	}
	suffix := append([]byte(nil), head.Bytes()...)

	size := int64(len(prefix)) + st.Size() + int64(len(suffix))
	body := &multiReadCloser{
		Reader: io.MultiReader(bytes.NewReader(prefix), f, bytes.NewReader(suffix)),
		closer: f,
	}
	return body, mw.FormDataContentType(), size, nil
}

type multiReadCloser struct {
	io.Reader
	closer io.Closer
}

func (m *multiReadCloser) Close() error { return m.closer.Close() }

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
