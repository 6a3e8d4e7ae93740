package httpcodec

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// reasonPhrase returns the fixed reason string for status, or "Error"
// for anything not enumerated by §4.5.
func reasonPhrase(status int) string {
	switch status {
	case 200:
		return "OK"
	case 206:
		return "Partial Content"
	case 301:
		return "Moved Permanently"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 408:
		return "Request Timeout"
	case 416:
		return "Range Not Satisfiable"
	case 431:
		return "Header Too Large"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	default:
		return "Error"
	}
}

// WriteHeaders writes the status line and header block described in
// §4.5 to w. extraHeaders, if non-empty, is inserted verbatim
// (each entry already terminated by "\r\n") between Connection and the
// precomputed security header block.
func WriteHeaders(w io.Writer, status int, contentType string, length int64, keepAlive bool, securityHeaders string, extraHeaders ...string) error {
	var b strings.Builder
	b.Grow(512)

	conn := "close"
	if keepAlive {
		conn = "keep-alive"
	}

	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", status, reasonPhrase(status))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(http11DateFormat))
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("Content-Length: ")
	b.WriteString(strconv.FormatInt(length, 10))
	b.WriteString("\r\n")
	b.WriteString("Connection: ")
	b.WriteString(conn)
	b.WriteString("\r\n")

	for _, h := range extraHeaders {
		b.WriteString(h)
	}
	b.WriteString(securityHeaders)
	b.WriteString("\r\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// http11DateFormat is the RFC 7231 / IMF-fixdate layout.
const http11DateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// WriteResponse writes a full response (headers + body) to w.
func WriteResponse(w io.Writer, status int, body []byte, contentType string, keepAlive bool, securityHeaders string, extraHeaders ...string) error {
	if err := WriteHeaders(w, status, contentType, int64(len(body)), keepAlive, securityHeaders, extraHeaders...); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// WriteError writes a short textual or HTML error body, choosing
// content type the way send_error did: HTML if the body looks like a
// markup fragment, plain text otherwise.
func WriteError(w io.Writer, status int, message []byte, keepAlive bool, securityHeaders string) error {
	contentType := "text/plain"
	if len(message) > 0 && message[0] == '<' {
		contentType = "text/html; charset=utf-8"
	}
	return WriteResponse(w, status, message, contentType, keepAlive, securityHeaders)
}
