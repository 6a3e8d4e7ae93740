package server

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cuemby/lumen/internal/httpcodec"
	"github.com/cuemby/lumen/internal/render"
	"github.com/cuemby/lumen/internal/resolver"
)

// Serve implements connection.Dispatcher, translating serve_path's URL
// mapping (§6) across the rendered-Markdown and static-file branches.
func (s *State) Serve(w io.Writer, req *httpcodec.Request, keepAlive bool, securityHeaders string) int {
	normalized := normalizePath(req.Path)

	if resolver.IsForbidden(normalized) {
		return s.writeError(w, 403, "403 Forbidden", keepAlive)
	}

	target := strings.TrimPrefix(normalized, "/")
	isDir := normalized == "/" || strings.HasSuffix(normalized, "/")

	mdTarget := target + ".md"
	if isDir {
		mdTarget = target + "index.md"
	}

	if mdPath, ok := resolver.SecureJoin(s.BaseDir, mdTarget); ok {
		if info, err := os.Stat(mdPath); err == nil && !info.IsDir() {
			return s.serveMarkdown(w, mdPath, keepAlive, securityHeaders)
		}
	}

	if !isDir {
		if dirPath, ok := resolver.SecureJoin(s.BaseDir, target); ok {
			if info, err := os.Stat(dirPath); err == nil && info.IsDir() {
				return s.redirectToDir(w, normalized, keepAlive, securityHeaders)
			}
		}
	}

	staticTarget := target
	if isDir {
		staticTarget = target + "index.html"
	}

	if staticPath, ok := resolver.SecureJoin(s.BaseDir, staticTarget); ok {
		if status, handled := s.serveStatic(w, staticPath, req, keepAlive, securityHeaders); handled {
			return status
		}
	}

	return s.writeError(w, 404, s.Config.Paths.Fallback404, keepAlive)
}

// normalizePath percent-decodes req path, strips the query string, and
// rewrites any backslashes to forward slashes (serve_path's decoding
// step). net/url is used for percent-decoding because no ecosystem
// decoder appears anywhere in the retrieved corpus (see DESIGN.md).
func normalizePath(raw string) string {
	path := raw
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	return strings.ReplaceAll(path, "\\", "/")
}

func (s *State) serveMarkdown(w io.Writer, path string, keepAlive bool, securityHeaders string) int {
	html, contentType, status := render.Page(path, s.Theme.Get(), s.PageCache, s.Config.Performance.EnableCaching)
	if status != 200 {
		if status == 404 {
			return s.writeError(w, 404, s.Config.Paths.Fallback404, keepAlive)
		}
		return s.writeError(w, status, "Internal Server Error", keepAlive)
	}
	_ = httpcodec.WriteResponse(w, 200, []byte(html), contentType, keepAlive, securityHeaders)
	return 200
}

func (s *State) redirectToDir(w io.Writer, normalized string, keepAlive bool, securityHeaders string) int {
	location := url.PathEscape(normalized + "/")
	// PathEscape also escapes '/', which must stay literal in a path.
	location = strings.ReplaceAll(location, "%2F", "/")
	escaped := escapeHTML(normalized)
	body := "301 Moved Permanently: <a href=\"" + location + "\">" + escaped + "/</a>"

	extra := "Location: " + location + "\r\n"
	_ = httpcodec.WriteResponse(w, 301, []byte(body), "text/html", keepAlive, securityHeaders, extra)
	return 301
}

func escapeHTML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
	)
	return r.Replace(s)
}

// serveStatic resolves staticPath, re-checks containment against the
// canonicalized base directory, rejects direct .md access, and serves
// the file with byte-range support (§4.3, §4.5).
func (s *State) serveStatic(w io.Writer, staticPath string, req *httpcodec.Request, keepAlive bool, securityHeaders string) (int, bool) {
	canon, err := filepath.EvalSymlinks(staticPath)
	if err != nil {
		return 0, false
	}
	baseCanon, err := filepath.EvalSymlinks(s.BaseDir)
	if err != nil {
		baseCanon = s.BaseDir
	}
	if !strings.HasPrefix(canon, baseCanon) {
		return s.writeError(w, 403, "403 Forbidden", keepAlive), true
	}
	if strings.EqualFold(filepath.Ext(canon), ".md") {
		return s.writeError(w, 403, "403 Forbidden", keepAlive), true
	}

	file, err := os.Open(canon)
	if err != nil {
		return 0, false
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		return 0, false
	}

	mime := httpcodec.DetectMIME(canon)

	rangeHeader, _ := req.Header("Range")
	rng, err := httpcodec.ParseRange(rangeHeader, info.Size())
	if err != nil {
		extra := "Content-Range: bytes */" + itoa(info.Size()) + "\r\n"
		_ = httpcodec.WriteResponse(w, 416, []byte("Range Not Satisfiable"), "text/plain", keepAlive, securityHeaders, extra)
		return 416, true
	}

	status := 200
	var extras []string
	if !httpcodec.IsHTML(mime) {
		extras = append(extras, "Cache-Control: public, max-age=86400\r\n")
	}
	extras = append(extras, "Accept-Ranges: bytes\r\n")

	if rng.Partial {
		status = 206
		extras = append(extras, "Content-Range: bytes "+itoa(rng.Start)+"-"+itoa(rng.End)+"/"+itoa(info.Size())+"\r\n")
		if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
			return 0, false
		}
	}

	length := rng.ContentLength()
	if err := httpcodec.WriteHeaders(w, status, mime, length, keepAlive, securityHeaders, extras...); err != nil {
		return status, true
	}
	if length > 0 {
		_, _ = io.CopyN(w, file, length)
	}
	return status, true
}

func (s *State) writeError(w io.Writer, status int, message string, keepAlive bool) int {
	_ = httpcodec.WriteError(w, status, []byte(message), keepAlive, s.PrecomputedHeaders)
	return status
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
