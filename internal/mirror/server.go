package mirror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/nusig/internal/logging"
	"github.com/muurk/nusig/internal/transcript"
)

// Path is the WebSocket endpoint
const Path = "/transcript"

// Config holds the mirror server configuration
type Config struct {
	// Listen is the TCP address to listen on, e.g. ":7777" or "127.0.0.1:0"
	Listen string
	// Advertise registers the server over mDNS
	Advertise bool
	// Instance is the mDNS instance name; defaults to the device label
	Instance string
	// Device and Name go into the TXT records
	Device string
	Name   string
}

// Server mirrors one transcript to any number of viewers
type Server struct {
	buf      *transcript.Buffer
	upgrader websocket.Upgrader

	wg          sync.WaitGroup
	mu          sync.Mutex
	closing     bool
	activeConns map[string]*websocket.Conn
}

// New creates a server for buf
func New(buf *transcript.Buffer) *Server {
	return &Server{
		buf: buf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// read-only viewers on the local network
			CheckOrigin: func(*http.Request) bool { return true },
		},
		activeConns: make(map[string]*websocket.Conn),
	}
}

// Handler returns the HTTP handler serving Path
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.serveTranscript)
	return mux
}

func (s *Server) serveTranscript(w http.ResponseWriter, r *http.Request) {
	// Add only while open, so it never races the Wait in shutdown
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		http.Error(w, "mirror is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		logging.Debug("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "viewer_disconnected")
	}()

	logging.LogConnection(remoteAddr, "viewer_connected")
	if err := streamTranscript(conn, s.buf); err != nil && !isClosed(err) {
		logging.Debug("Viewer stream ended",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// Serve accepts viewers on ln until ctx is cancelled, then closes every
// viewer connection
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	logging.Info("Transcript mirror listening", zap.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.shutdown(shutdownCtx, srv)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mirror server: %w", err)
	}
}

// shutdown stops accepting viewers and closes the active ones. Hijacked
// WebSocket connections are not tracked by http.Server, so they are
// closed here.
func (s *Server) shutdown(ctx context.Context, srv *http.Server) error {
	err := srv.Shutdown(ctx)

	s.mu.Lock()
	s.closing = true
	for addr, conn := range s.activeConns {
		logging.Debug("Closing viewer", zap.String("remote_addr", addr))
		deadline := time.Now().Add(writeWait)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"), deadline)
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Mirror shutdown timeout, forcing close")
	}
	return err
}

// GetActiveConnections returns the number of connected viewers
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Running is a mirror started by Start
type Running struct {
	addr   net.Addr
	cancel context.CancelFunc
	done   chan struct{}
}

// Start listens on cfg.Listen, advertises the mirror when cfg.Advertise is
// set and serves viewers in the background until ctx is cancelled or Stop
// is called. Listen errors are returned immediately.
func Start(ctx context.Context, buf *transcript.Buffer, cfg Config) (*Running, error) {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
	}

	var withdraw func()
	if cfg.Advertise {
		instance := cfg.Instance
		if instance == "" {
			instance = "nusig"
		}
		withdraw, err = Advertise(instance, listenPort(ln), cfg.Device, cfg.Name)
		if err != nil {
			// the mirror still works by address
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &Running{addr: ln.Addr(), cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		if withdraw != nil {
			defer withdraw()
		}
		if err := New(buf).Serve(ctx, ln); err != nil {
			logging.Error("Transcript mirror stopped", zap.Error(err))
		}
	}()
	return r, nil
}

// Addr returns the address viewers connect to
func (r *Running) Addr() net.Addr {
	return r.addr
}

// URL returns the WebSocket URL of the transcript on this machine
func (r *Running) URL() string {
	return "ws://" + r.addr.String() + Path
}

// Stop shuts the mirror down and waits for viewers to be closed
func (r *Running) Stop() {
	r.cancel()
	<-r.done
}
