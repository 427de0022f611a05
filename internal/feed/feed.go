// Package feed broadcasts plugin lifecycle events to websocket clients.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/eina/internal/config"
	"github.com/soyeahso/eina/internal/hooks"
	"github.com/soyeahso/eina/internal/logging"
)

var (
	ErrClientClosed = errors.New("client connection closed")
	ErrClientSlow   = errors.New("client send queue full")
)

const (
	// sendQueueSize is how many frames a client may fall behind before it
	// is disconnected.
	sendQueueSize = 64
	writeWait     = 5 * time.Second
)

// Frame types.
const (
	FrameTypeHello = "hello"
	FrameTypeEvent = "event"
)

// Frame is the envelope for every message sent to a client.
type Frame struct {
	Type    string          `json:"type"`
	ConnID  string          `json:"connId,omitempty"`
	Event   string          `json:"event,omitempty"`
	Seq     int64           `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one connected websocket subscriber. Frames are queued by Send
// and written by the client's own writer goroutine.
type Client struct {
	ConnID      string
	Socket      *websocket.Conn
	ConnectedAt time.Time

	queue     chan Frame
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		ConnID:      uuid.New().String(),
		Socket:      conn,
		ConnectedAt: time.Now(),
		queue:       make(chan Frame, sendQueueSize),
		done:        make(chan struct{}),
	}
}

// Send queues a frame without blocking. A client whose queue is full is
// closed and ErrClientSlow returned.
func (c *Client) Send(f Frame) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.queue <- f:
		return nil
	default:
		c.Close()
		return ErrClientSlow
	}
}

// writeLoop drains the queue until the client is closed or a write fails.
func (c *Client) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.done:
			return
		case f := <-c.queue:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Socket.WriteJSON(f); err != nil {
				return
			}
		}
	}
}

// Close closes the websocket connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.Socket.Close()
	})
	return c.closeErr
}

// Server accepts websocket subscribers and fans events out to them.
type Server struct {
	listen   string
	log      *logging.Logger
	upgrader websocket.Upgrader
	seq      atomic.Int64

	mu      sync.RWMutex
	clients map[string]*Client

	httpServer *http.Server
	addr       atomic.Value
}

// New creates a feed server from the events config.
func New(cfg config.EventsConfig, log *logging.Logger) *Server {
	return &Server{
		listen:  cfg.Listen,
		log:     log.Sub("feed"),
		clients: make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
	}
}

// checkOrigin allows non-browser clients and the configured origins.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Subscribe forwards every hook event to connected clients.
func (s *Server) Subscribe(hm *hooks.Manager) {
	hm.OnAll("feed", func(_ context.Context, p hooks.Payload) error {
		s.Broadcast(p.Event, p.Data)
		return nil
	})
}

// Broadcast sends an event frame to all connected clients.
func (s *Server) Broadcast(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("cannot encode event payload")
		return
	}
	f := Frame{Type: FrameTypeEvent, Event: event, Seq: s.seq.Add(1), Payload: raw}

	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if err := c.Send(f); err != nil {
			s.log.Warn().Err(err).Str("connId", c.ConnID).Msg("broadcast send failed")
		}
	}
}

// Count returns the number of connected clients.
func (s *Server) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Handler returns the HTTP routes: /ws for subscribers and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": s.Count()})
	})
	return mux
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	c := newClient(conn)
	c.Send(Frame{Type: FrameTypeHello, ConnID: c.ConnID})
	go c.writeLoop()

	s.mu.Lock()
	s.clients[c.ConnID] = c
	s.mu.Unlock()
	s.log.Info().Str("connId", c.ConnID).Str("remote", r.RemoteAddr).Msg("client connected")

	go s.readLoop(c)
}

// readLoop discards inbound messages and unregisters the client when the
// connection drops.
func (s *Server) readLoop(c *Client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c.ConnID)
		s.mu.Unlock()
		c.Close()
		s.log.Info().Str("connId", c.ConnID).Msg("client disconnected")
	}()
	for {
		if _, _, err := c.Socket.ReadMessage(); err != nil {
			return
		}
	}
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listen, err)
	}
	s.addr.Store(ln.Addr().String())

	s.httpServer = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down event feed")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("event feed ready")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() string {
	if v, ok := s.addr.Load().(string); ok {
		return v
	}
	return ""
}

func (s *Server) closeAll() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*Client)
	s.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
