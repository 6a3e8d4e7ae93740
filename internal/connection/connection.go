// Package connection implements the per-connection state machine of
// §4.6: one goroutine per accepted connection, looping over requests
// until the peer disconnects, keep-alive is declined, or a deadline
// expires. Translated from server.rs's handle_connection.
package connection

import (
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cuemby/lumen/internal/httpcodec"
	"github.com/cuemby/lumen/internal/log"
	"github.com/cuemby/lumen/internal/metrics"
	"github.com/cuemby/lumen/internal/transport"
	"github.com/google/uuid"
)

// idleKeepAliveTimeout is the fixed deadline applied to every request
// after the first one on a connection (§4.6 step 1).
const idleKeepAliveTimeout = 2 * time.Second

// Dispatcher routes a fully parsed request to the Path Resolver and
// Page Renderer / static file layer, writing the response to w and
// returning the status code it sent, for access logging.
type Dispatcher interface {
	Serve(w io.Writer, req *httpcodec.Request, keepAlive bool, securityHeaders string) (status int)
}

// Config carries the connection-loop parameters derived from the
// immutable server configuration.
type Config struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	BufferSize        int
	ThreadCount       int
	SecurityHeaders   string
	ActiveConnections *atomic.Int64
	IsRunning         func() bool
}

// Handle runs the request loop for one accepted connection. It
// increments cfg.ActiveConnections on entry and decrements it on every
// exit path (§4.6's scoped guard), and always closes conn before
// returning.
func Handle(conn transport.Conn, cfg Config, dispatcher Dispatcher) {
	connID := uuid.NewString()
	cfg.ActiveConnections.Add(1)
	defer cfg.ActiveConnections.Add(-1)
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))

	buffer := make([]byte, cfg.BufferSize)
	readOffset := 0
	isFirstRequest := true
	deadline := time.Now().Add(cfg.ReadTimeout)

	for {
		_ = conn.SetReadDeadline(deadline)

		result, req := httpcodec.Parse(buffer, readOffset)

		switch result {
		case httpcodec.Complete:
			keepAlive := req.IsKeepAlive()
			if keepAlive && (!cfg.IsRunning() || cfg.ActiveConnections.Load() >= int64(cfg.ThreadCount)) {
				keepAlive = false
			}

			reqTimer := metrics.NewTimer()
			var status int
			if req.Method != "GET" || req.HasBody() {
				_ = httpcodec.WriteError(conn, 405, []byte("Method Not Allowed"), false, cfg.SecurityHeaders)
				status = 405
				keepAlive = false
			} else {
				status = dispatcher.Serve(conn, &req, keepAlive, cfg.SecurityHeaders)
			}
			metrics.RequestDuration.WithLabelValues(req.Method).Observe(reqTimer.Duration().Seconds())
			metrics.RequestsTotal.WithLabelValues(req.Method, strconv.Itoa(status)).Inc()

			log.Logger.Info().Str("conn_id", connID).Str("method", req.Method).Str("path", req.Path).Int("status", status).Msg("request")

			copy(buffer, buffer[req.HeaderLen:readOffset])
			readOffset -= req.HeaderLen
			isFirstRequest = false

			if !keepAlive {
				return
			}
			deadline = time.Now().Add(idleKeepAliveTimeout)
			continue

		case httpcodec.Partial:
			if readOffset == len(buffer) {
				_ = httpcodec.WriteError(conn, 431, []byte("Request Header Fields Too Large"), false, cfg.SecurityHeaders)
				return
			}

		case httpcodec.Error:
			_ = httpcodec.WriteError(conn, 400, []byte("Bad Request"), false, cfg.SecurityHeaders)
			return
		}

		now := time.Now()
		if !now.Before(deadline) {
			if isFirstRequest {
				_ = httpcodec.WriteError(conn, 408, []byte("Request Timeout"), false, cfg.SecurityHeaders)
			}
			return
		}
		_ = conn.SetReadDeadline(deadline)

		n, err := conn.Read(buffer[readOffset:])
		if err != nil {
			if isTimeout(err) {
				if isFirstRequest {
					_ = httpcodec.WriteError(conn, 408, []byte("Request Timeout"), false, cfg.SecurityHeaders)
				}
			} else if err != io.EOF {
				log.Logger.Debug().Err(err).Msg("connection read error")
			}
			return
		}
		if n == 0 {
			return
		}
		readOffset += n
	}
}

type timeoutError interface {
	Timeout() bool
}

func isTimeout(err error) bool {
	te, ok := err.(timeoutError)
	return ok && te.Timeout()
}
