// Package transport provides a unified read/write/timeout surface over
// plain TCP or TLS-over-TCP (§4.4), so the connection state machine
// never has to branch on which one it holds.
package transport

import (
	"crypto/tls"
	"net"
	"time"
)

// Conn is the surface the connection state machine needs from a socket.
type Conn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Plain wraps a raw TCP connection.
type Plain struct {
	net.Conn
}

// NewPlain wraps conn as a Plain transport.
func NewPlain(conn net.Conn) *Plain { return &Plain{Conn: conn} }

// TLS wraps a TLS connection. Deadlines are set on the underlying TCP
// socket (§4.4: "TLS timeouts apply to the underlying TCP socket"); the
// handshake itself happens lazily on first Read/Write, which is
// tls.Conn's native behavior, so handshake errors surface as ordinary
// Read errors to the caller.
type TLS struct {
	conn *tls.Conn
	raw  net.Conn
}

// NewTLS wraps raw in a server-side TLS connection using cfg. ALPN is
// expected to already restrict cfg.NextProtos to "http/1.1" (§4.4).
func NewTLS(raw net.Conn, cfg *tls.Config) *TLS {
	return &TLS{conn: tls.Server(raw, cfg), raw: raw}
}

func (t *TLS) Read(b []byte) (int, error)  { return t.conn.Read(b) }
func (t *TLS) Write(b []byte) (int, error) { return t.conn.Write(b) }
func (t *TLS) Close() error                { return t.conn.Close() }

func (t *TLS) SetReadDeadline(d time.Time) error  { return t.raw.SetReadDeadline(d) }
func (t *TLS) SetWriteDeadline(d time.Time) error { return t.raw.SetWriteDeadline(d) }
