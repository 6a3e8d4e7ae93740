package httpcodec

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectMIME resolves a static file's content type, preferring the
// extension table (fast, and stable for well-known text formats like
// .css and .js that content-sniffing sometimes gets wrong) and falling
// back to content sniffing via mimetype, then octet-stream.
func DetectMIME(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	if m, err := mimetype.DetectFile(path); err == nil {
		return m.String()
	}
	return "application/octet-stream"
}

// IsHTML reports whether a content type string names an HTML
// representation, used to decide whether Cache-Control applies (§4.5:
// "all non-HTML static responses carry Cache-Control").
func IsHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "html")
}
