package ipc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// Server carries dispatcher requests over WebSocket connections. Each text
// message is one Request; each reply is one Response. Requests on one
// connection run concurrently, so replies may arrive out of order and are
// matched by ID.
type Server struct {
	dispatcher     *Dispatcher
	allowedOrigins []string
	logger         *slog.Logger
	upgrader       websocket.Upgrader

	wg sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAllowedOrigins restricts the Origin header of upgrade requests. "*"
// allows any origin. Requests without an Origin header are always allowed
// since they do not come from a browser.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithServerLogger sets the server's logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a Server over d.
func NewServer(d *Dispatcher, opts ...ServerOption) *Server {
	s := &Server{
		dispatcher: d,
		logger:     d.logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	s.logger.Warn("rejected websocket origin", "origin", origin)
	return false
}

// Handler returns the HTTP handler: the WebSocket endpoint at /ipc and a
// plain health check at /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ipc", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down and
// waits for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.logger.Info("ipc server listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.wg.Wait()
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return err
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: s.logger.With("remote", r.RemoteAddr),
	}
	c.logger.Debug("client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(ctx)
	}()

	var requests sync.WaitGroup
	c.readPump(func(msg []byte) {
		requests.Add(1)
		go func() {
			defer requests.Done()
			reply := s.dispatcher.DispatchJSON(ctx, msg)
			select {
			case c.send <- reply:
			case <-ctx.Done():
			}
		}()
	})
	cancel()
	requests.Wait()
	<-writerDone
	conn.Close()
	c.logger.Debug("client disconnected")
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
}

// readPump delivers text messages to handle until the connection fails.
func (c *client) readPump(handle func([]byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket unexpected close", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		handle(msg)
	}
}

// writePump is the connection's only writer.
func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.conn.Close()
			return
		}
	}
}
