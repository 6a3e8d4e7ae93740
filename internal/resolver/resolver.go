// Package resolver implements the two layers of path safety from §4.3:
// a lexical filter applied to the raw request path, and SecureJoin,
// which composes a user path onto a base directory without ever
// escaping it.
package resolver

import (
	"path/filepath"
	"strings"
)

// IsForbidden reports whether a decoded, query-stripped request path must
// be rejected with 403 before any filesystem resolution is attempted
// (§4.3's "connection-level URL filter").
func IsForbidden(normalized string) bool {
	return strings.Contains(normalized, "..") ||
		strings.Contains(normalized, "/.") ||
		strings.HasPrefix(normalized, ".")
}

// SecureJoin composes the components of userPath onto base. Normal
// components are appended; ".." pops a component but only while the
// result is strictly deeper than base (otherwise the join is rejected);
// root/prefix/current-dir components are dropped silently, so a leading
// "/" never produces an absolute escape. Returns ("", false) on
// rejection.
func SecureJoin(base, userPath string) (string, bool) {
	result := base
	userPath = filepath.ToSlash(userPath)

	for _, part := range strings.Split(userPath, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if result == base {
				return "", false
			}
			result = filepath.Dir(result)
		default:
			result = filepath.Join(result, part)
		}
	}
	return result, true
}
