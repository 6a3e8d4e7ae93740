package server

import (
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cuemby/lumen/internal/connection"
	"github.com/cuemby/lumen/internal/log"
	"github.com/cuemby/lumen/internal/metrics"
	"github.com/cuemby/lumen/internal/pool"
	"github.com/cuemby/lumen/internal/transport"
)

// shedResponse is the canned 503 written directly to a freshly
// accepted socket when the pool rejects admission (§4.9).
const shedResponse = "HTTP/1.1 503 Service Unavailable\r\nConnection: close\r\nContent-Length: 0\r\n\r\n"

// Listener owns the bound TCP socket and accept loop of §4.9.
type Listener struct {
	state *State
	pool  *pool.Pool
	ln    net.Listener
}

// Listen binds host:port and constructs a Listener backed by workers.
func Listen(state *State, workers *pool.Pool) (*Listener, error) {
	addr := net.JoinHostPort(state.Config.Server.Host, strconv.Itoa(int(state.Config.Server.Port)))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	log.Logger.Info().Str("addr", addr).Msg("server started")
	return &Listener{state: state, pool: workers, ln: ln}, nil
}

// Addr returns the bound address, useful when Port 0 asked the kernel
// to pick an ephemeral port.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Serve runs the accept loop until Accept fails while State.IsRunning is
// false, then drains in-flight connections. Accept errors while
// IsRunning is still true are logged and the loop continues. It
// installs its own SIGINT/SIGTERM handler that flips State.IsRunning
// and closes the listener to unblock Accept
// (Go's net.Listener.Accept returns an error on Close, which serves
// the same purpose as server.rs's self-connect trick).
func (l *Listener) Serve() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Logger.Info().Msg("shutdown signal received, draining connections")
		l.state.IsRunning.Store(false)
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if !l.state.IsRunning.Load() {
				l.drain()
				return
			}
			log.Logger.Debug().Err(err).Msg("accept error")
			continue
		}
		l.handleAccepted(conn)
	}
}

func (l *Listener) handleAccepted(raw net.Conn) {
	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	var c transport.Conn
	if l.state.TLSConfig != nil {
		c = transport.NewTLS(raw, l.state.TLSConfig)
	} else {
		c = transport.NewPlain(raw)
	}

	cfg := connection.Config{
		ReadTimeout:       time.Duration(l.state.Config.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout:      time.Duration(l.state.Config.Server.WriteTimeout) * time.Second,
		BufferSize:        l.state.Config.Performance.ConnectionBufferSize,
		ThreadCount:       l.state.Config.Server.Threads,
		SecurityHeaders:   l.state.PrecomputedHeaders,
		ActiveConnections: &l.state.ActiveConnections,
		IsRunning:         l.state.IsRunning.Load,
	}

	job := func() {
		metrics.ActiveConnections.Set(float64(l.state.ActiveConnections.Load()))
		connection.Handle(c, cfg, l.state)
		metrics.ActiveConnections.Set(float64(l.state.ActiveConnections.Load()))
	}

	if err := l.pool.Execute(job); err != nil {
		metrics.PoolRejectedTotal.Inc()
		log.Logger.Warn().Msg("queue full, shedding load with 503")
		_ = raw.SetWriteDeadline(time.Now().Add(500 * time.Millisecond))
		_, _ = raw.Write([]byte(shedResponse))
		_ = raw.Close()
	}
}

// drain busy-waits for in-flight connections to finish (§4.9).
func (l *Listener) drain() {
	for l.state.ActiveConnections.Load() > 0 {
		time.Sleep(50 * time.Millisecond)
	}
	log.Logger.Info().Msg("all connections drained, exiting")
}
