// Package httpcodec implements the incremental HTTP/1.1 request parser
// and response assembly of §4.5, translated from http.rs's httparse
// usage and send_headers/send_response/send_error trio.
package httpcodec

import (
	"bytes"
	"errors"
	"strings"
)

// MaxHeaders is the header-slot ceiling (§4.5: "at most 64 header
// slots").
const MaxHeaders = 64

// ErrMalformed is returned when the buffered bytes are not a prefix of
// a valid HTTP/1.1 request line/headers.
var ErrMalformed = errors.New("httpcodec: malformed request")

// Header is a single parsed request header.
type Header struct {
	Name  string
	Value string
}

// Request is a fully parsed request line plus headers.
type Request struct {
	Method     string
	Path       string
	HTTPMinor  int // 0 for HTTP/1.0, 1 for HTTP/1.1
	Headers    []Header
	HeaderLen  int // bytes consumed from the buffer, including the terminating blank line
}

// Header looks up a header by case-insensitive name.
func (r *Request) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// ParseResult is the tri-state outcome of Parse (§4.5).
type ParseResult int

const (
	// Partial means the buffer does not yet contain a full header block.
	Partial ParseResult = iota
	// Complete means req is populated and HeaderLen bytes may be consumed.
	Complete
	// Error means the bytes are not a valid request.
	Error
)

// Parse attempts to parse an HTTP/1.1 request from the first n bytes
// of buf. It never allocates more than MaxHeaders header slots; a
// request with more headers than that is a parse Error, which the
// connection loop maps to 400 (§4.6 step 4).
func Parse(buf []byte, n int) (ParseResult, Request) {
	data := buf[:n]
	idx := bytes.Index(data, []byte("\r\n\r\n"))
	if idx == -1 {
		return Partial, Request{}
	}
	headerBlock := data[:idx]
	headerLen := idx + 4

	lines := bytes.Split(headerBlock, []byte("\r\n"))
	if len(lines) == 0 {
		return Error, Request{}
	}

	method, path, minor, ok := parseRequestLine(lines[0])
	if !ok {
		return Error, Request{}
	}

	headerLines := lines[1:]
	if len(headerLines) > MaxHeaders {
		return Error, Request{}
	}

	headers := make([]Header, 0, len(headerLines))
	for _, line := range headerLines {
		if len(line) == 0 {
			continue
		}
		name, value, ok := parseHeaderLine(line)
		if !ok {
			return Error, Request{}
		}
		headers = append(headers, Header{Name: name, Value: value})
	}

	return Complete, Request{
		Method:    method,
		Path:      path,
		HTTPMinor: minor,
		Headers:   headers,
		HeaderLen: headerLen,
	}
}

func parseRequestLine(line []byte) (method, path string, minor int, ok bool) {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return "", "", 0, false
	}
	method = string(parts[0])
	path = string(parts[1])
	version := string(parts[2])

	switch version {
	case "HTTP/1.1":
		minor = 1
	case "HTTP/1.0":
		minor = 0
	default:
		return "", "", 0, false
	}
	if method == "" || path == "" {
		return "", "", 0, false
	}
	return method, path, minor, true
}

func parseHeaderLine(line []byte) (name, value string, ok bool) {
	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return "", "", false
	}
	name = string(bytes.TrimSpace(line[:colon]))
	value = string(bytes.TrimSpace(line[colon+1:]))
	if name == "" {
		return "", "", false
	}
	return name, value, true
}

// HasBody reports whether req declares a request body via a nonzero
// Content-Length or any Transfer-Encoding header (§4.6 step 4).
func (r *Request) HasBody() bool {
	if te, ok := r.Header("Transfer-Encoding"); ok && te != "" {
		return true
	}
	if cl, ok := r.Header("Content-Length"); ok {
		return strings.TrimSpace(cl) != "0" && strings.TrimSpace(cl) != ""
	}
	return false
}

// IsKeepAlive implements §4.5's keep-alive decision table.
func (r *Request) IsKeepAlive() bool {
	if conn, ok := r.Header("Connection"); ok {
		lower := strings.ToLower(conn)
		if lower == "keep-alive" {
			return true
		}
		if lower == "close" {
			return false
		}
		return strings.Contains(lower, "keep-alive")
	}
	return r.HTTPMinor == 1
}
