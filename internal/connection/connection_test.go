package connection

import (
	"bufio"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/lumen/internal/httpcodec"
	"github.com/cuemby/lumen/internal/transport"
	"github.com/stretchr/testify/require"
)

type stubDispatcher struct {
	status int
}

func (s *stubDispatcher) Serve(w io.Writer, req *httpcodec.Request, keepAlive bool, securityHeaders string) int {
	_ = httpcodec.WriteResponse(w, s.status, []byte("ok"), "text/plain", keepAlive, securityHeaders)
	return s.status
}

func newActiveConnections(running bool) (Config, func()) {
	var n atomic.Int64
	cfg := Config{
		ReadTimeout:       time.Second,
		WriteTimeout:      time.Second,
		BufferSize:        4096,
		ThreadCount:       32,
		ActiveConnections: &n,
		IsRunning:         func() bool { return running },
	}
	return cfg, func() {}
}

func TestHandleSingleRequestCloseConnection(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	cfg, _ := newActiveConnections(true)
	done := make(chan struct{})
	go func() {
		Handle(transport.NewPlain(server), cfg, &stubDispatcher{status: 200})
		close(done)
	}()

	_, err := client.Write([]byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(client)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 200 OK\r\n", line)

	<-done
}

func TestHandleMethodNotAllowed(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	cfg, _ := newActiveConnections(true)
	done := make(chan struct{})
	go func() {
		Handle(transport.NewPlain(server), cfg, &stubDispatcher{status: 200})
		close(done)
	}()

	_, err := client.Write([]byte("POST / HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc"))
	require.NoError(t, err)

	reader := bufio.NewReader(client)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 405 Method Not Allowed\r\n", line)

	<-done
}

func TestHandleBadRequest(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	cfg, _ := newActiveConnections(true)
	done := make(chan struct{})
	go func() {
		Handle(transport.NewPlain(server), cfg, &stubDispatcher{status: 200})
		close(done)
	}()

	_, err := client.Write([]byte("GARBAGE REQUEST\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(client)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 400 Bad Request\r\n", line)

	<-done
}
