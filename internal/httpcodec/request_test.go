package httpcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCompleteRequest(t *testing.T) {
	raw := "GET /index.html HTTP/1.1\r\nHost: example.com\r\nConnection: keep-alive\r\n\r\n"
	buf := []byte(raw)

	result, req := Parse(buf, len(buf))
	require.Equal(t, Complete, result)
	require.Equal(t, "GET", req.Method)
	require.Equal(t, "/index.html", req.Path)
	require.Equal(t, 1, req.HTTPMinor)
	require.Equal(t, len(raw), req.HeaderLen)

	host, ok := req.Header("host")
	require.True(t, ok)
	require.Equal(t, "example.com", host)
	require.True(t, req.IsKeepAlive())
}

func TestParsePartialRequest(t *testing.T) {
	raw := "GET /index.html HTTP/1.1\r\nHost: exam"
	buf := []byte(raw)
	result, _ := Parse(buf, len(buf))
	require.Equal(t, Partial, result)
}

func TestParseMalformedRequestLine(t *testing.T) {
	raw := "GARBAGE\r\n\r\n"
	buf := []byte(raw)
	result, _ := Parse(buf, len(buf))
	require.Equal(t, Error, result)
}

func TestParseTooManyHeaders(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n"
	for i := 0; i < MaxHeaders+1; i++ {
		raw += "X-Custom: v\r\n"
	}
	raw += "\r\n"
	buf := []byte(raw)
	result, _ := Parse(buf, len(buf))
	require.Equal(t, Error, result)
}

func TestHasBody(t *testing.T) {
	r1 := Request{Headers: []Header{{Name: "Content-Length", Value: "3"}}}
	require.True(t, r1.HasBody())

	r2 := Request{Headers: []Header{{Name: "Content-Length", Value: "0"}}}
	require.False(t, r2.HasBody())

	r3 := Request{Headers: []Header{{Name: "Transfer-Encoding", Value: "chunked"}}}
	require.True(t, r3.HasBody())

	r4 := Request{}
	require.False(t, r4.HasBody())
}

func TestIsKeepAliveDecisionTable(t *testing.T) {
	ka := func(minor int, conn string, hasConn bool) *Request {
		r := &Request{HTTPMinor: minor}
		if hasConn {
			r.Headers = []Header{{Name: "Connection", Value: conn}}
		}
		return r
	}

	require.True(t, ka(0, "keep-alive", true).IsKeepAlive())
	require.False(t, ka(1, "close", true).IsKeepAlive())
	require.True(t, ka(0, "Keep-Alive, Upgrade", true).IsKeepAlive())
	require.True(t, ka(1, "", false).IsKeepAlive())
	require.False(t, ka(0, "", false).IsKeepAlive())
}
