package httpcodec

import (
	"strconv"
	"strings"
)

// Range is a resolved, clamped byte range over a file of known length.
type Range struct {
	Start, End int64 // inclusive
	Length     int64 // total file length
	Partial    bool
}

// ErrUnsatisfiable means the requested range cannot be satisfied against
// length and the caller must respond 416 (§4.5).
type ErrUnsatisfiable struct{ Length int64 }

func (e *ErrUnsatisfiable) Error() string { return "httpcodec: range not satisfiable" }

// ParseRange parses a Range header value (e.g. "bytes=0-499",
// "bytes=-500", "bytes=500-") against a file of the given length. A
// missing header, a malformed value, or a comma-separated multi-range
// request all fall back to the full-file range per §4.5 ("multi-range
// is ignored"); the one exception is a valid start with an unparsable
// end, which is served as the open form "start-". An empty file is
// never partial.
func ParseRange(headerValue string, length int64) (Range, error) {
	full := Range{Start: 0, End: length - 1, Length: length, Partial: false}
	if length == 0 {
		return Range{Start: 0, End: 0, Length: 0, Partial: false}, nil
	}

	stripped, ok := strings.CutPrefix(headerValue, "bytes=")
	if !ok {
		return full, nil
	}
	if strings.Contains(stripped, ",") {
		return full, nil
	}

	parts := strings.SplitN(stripped, "-", 2)
	if len(parts) != 2 {
		return full, nil
	}
	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])

	var start, end int64
	partial := false

	switch {
	case startStr == "" && endStr != "":
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || suffix <= 0 {
			return full, nil
		}
		start = length - suffix
		if start < 0 {
			start = 0
		}
		end = length - 1
		partial = true

	case startStr != "":
		s, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return full, nil
		}
		start = s
		partial = true
		if endStr != "" {
			e, err := strconv.ParseInt(endStr, 10, 64)
			if err != nil {
				end = length - 1
			} else {
				end = e
				if end > length-1 {
					end = length - 1
				}
			}
		} else {
			end = length - 1
		}

	default:
		return full, nil
	}

	if !partial {
		return full, nil
	}
	if start > end || start >= length {
		return Range{}, &ErrUnsatisfiable{Length: length}
	}
	return Range{Start: start, End: end, Length: length, Partial: true}, nil
}

// ContentLength returns the Content-Length for r. A zero-length source
// file always reports 0 (§4.5).
func (r Range) ContentLength() int64 {
	if r.Length == 0 {
		return 0
	}
	return r.End - r.Start + 1
}
