// Package socket provides the persistent WebSocket transport between the
// visualization backend and browser clients.
//
// The server assigns each connection an opaque stable client id, dispatches
// inbound frames to a registered handler, and offers targeted and broadcast
// sends. It carries no business logic: envelope semantics live in the
// coordinator.
//
// Lifecycle follows the same pattern as the other infrastructure components:
//
//	server := socket.New(cfg, logger)
//	err := server.Start()
//	defer server.Stop()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package socket

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ljouon/visionary-ui-core/internal/infrastructure/config"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/logging"
)

// InboundHandler receives transport-level client events.
//
// Exactly one handler is active at a time; registering a new one replaces
// the former. Fan-out to multiple consumers is not this layer's job.
type InboundHandler interface {
	// OnConnect is called once a client connection is established and
	// registered, before any of its inbound frames are dispatched.
	OnConnect(clientID string)

	// OnDisconnect is called exactly once when a connection ends,
	// even under abrupt closure.
	OnDisconnect(clientID string)

	// OnMessageFromClient is called for every inbound text frame.
	OnMessageFromClient(clientID string, data []byte)
}

// Server manages WebSocket client connections.
type Server struct {
	cfg    config.SocketConfig
	logger *logging.Logger

	listener   net.Listener
	httpServer *http.Server
	started    bool
	clients    map[string]*client
	mu         sync.RWMutex

	handler   InboundHandler
	handlerMu sync.RWMutex
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Clients connect from file:// panels and arbitrary LAN origins;
		// access control is the host platform's concern.
		return true
	},
}

// New creates a socket server. It does not listen until Start() is called.
func New(cfg config.SocketConfig, logger *logging.Logger) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// RegisterInboundHandler installs the handler for client events.
// A later registration replaces the former.
func (s *Server) RegisterInboundHandler(handler InboundHandler) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// Start begins listening for WebSocket connections.
//
// The listen happens synchronously so that a port conflict surfaces here
// rather than in a background goroutine.
//
// Returns:
//   - error: ErrAlreadyStarted, or ErrListenFailed if the port is bound
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrListenFailed, addr, err)
	}

	mux := http.NewServeMux()
	path := s.cfg.Path
	if path == "" {
		path = "/"
	}
	mux.HandleFunc(path, s.handleUpgrade)

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.started = true

	go func() {
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("socket server error", "error", serveErr)
		}
	}()

	s.logger.Info("socket server listening", "address", listener.Addr().String(), "path", path)
	return nil
}

// Stop closes the listener and all client connections. Idempotent.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	// Close all client connections and their send channels so writePump
	// goroutines exit. Handler disconnect callbacks are skipped: the server
	// is going away, not the clients.
	for id, c := range s.clients {
		close(c.send)
		c.conn.Close()
		delete(s.clients, id)
	}

	if err := s.httpServer.Close(); err != nil {
		return fmt.Errorf("closing socket server: %w", err)
	}
	return nil
}

// Addr returns the bound listen address, or "" before Start().
// Useful when starting on port 0 in tests.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// MessageToClient sends a payload to one client. Unknown client ids are a
// no-op: the client may have disconnected between lookup and send.
func (s *Server) MessageToClient(clientID string, payload []byte) {
	s.mu.RLock()
	c, ok := s.clients[clientID]
	s.mu.RUnlock()

	if !ok {
		return
	}
	c.trySend(payload)
}

// MessageToAllClients sends a payload to every currently connected client.
// Clients that disconnect mid-iteration are skipped, not an error.
func (s *Server) MessageToAllClients(payload []byte) {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		c.trySend(payload)
	}
}

// handleUpgrade upgrades an HTTP request to a WebSocket connection and runs
// the connection until it closes.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sendBuffer := s.cfg.SendBufferSize
	if sendBuffer <= 0 {
		sendBuffer = 256
	}

	c := &client{
		id:   uuid.NewString(),
		srv:  s,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	s.mu.Lock()
	if !s.started {
		// Raced with Stop(); drop the connection.
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c.id] = c
	s.mu.Unlock()

	s.logger.Debug("client connected", "client_id", c.id, "clients", s.ClientCount())

	go c.writePump()
	s.notifyConnect(c.id)
	c.readPump()
}

// unregister removes a client from the registry. Only the goroutine that
// actually removes the entry closes the send channel and notifies the
// handler, preventing double-close and double-disconnect during shutdown.
func (s *Server) unregister(c *client) {
	s.mu.Lock()
	_, existed := s.clients[c.id]
	delete(s.clients, c.id)
	s.mu.Unlock()

	if existed {
		close(c.send)
		s.notifyDisconnect(c.id)
		s.logger.Debug("client disconnected", "client_id", c.id, "clients", s.ClientCount())
	}
}

func (s *Server) notifyConnect(clientID string) {
	if h := s.currentHandler(); h != nil {
		h.OnConnect(clientID)
	}
}

func (s *Server) notifyDisconnect(clientID string) {
	if h := s.currentHandler(); h != nil {
		h.OnDisconnect(clientID)
	}
}

func (s *Server) notifyMessage(clientID string, data []byte) {
	if h := s.currentHandler(); h != nil {
		h.OnMessageFromClient(clientID, data)
	}
}

func (s *Server) currentHandler() InboundHandler {
	s.handlerMu.RLock()
	defer s.handlerMu.RUnlock()
	return s.handler
}
