package socket

import (
	"errors"
	"net"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ljouon/visionary-ui-core/internal/infrastructure/config"
	"github.com/ljouon/visionary-ui-core/internal/infrastructure/logging"
)

const eventWait = 2 * time.Second

func testConfig() config.SocketConfig {
	return config.SocketConfig{
		Host:           "127.0.0.1",
		Port:           0,
		Path:           "/ws",
		SendBufferSize: 8,
	}
}

// recordingHandler captures transport events on channels so tests can wait
// for them without polling.
type recordingHandler struct {
	connects    chan string
	disconnects chan string
	messages    chan string

	mu              sync.Mutex
	disconnectCount int
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		connects:    make(chan string, 8),
		disconnects: make(chan string, 8),
		messages:    make(chan string, 8),
	}
}

func (h *recordingHandler) OnConnect(clientID string) {
	h.connects <- clientID
}

func (h *recordingHandler) OnDisconnect(clientID string) {
	h.mu.Lock()
	h.disconnectCount++
	h.mu.Unlock()
	h.disconnects <- clientID
}

func (h *recordingHandler) OnMessageFromClient(clientID string, data []byte) {
	h.messages <- clientID + ":" + string(data)
}

func waitFor(t *testing.T, ch chan string, what string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(eventWait):
		t.Fatalf("timed out waiting for %s", what)
		return ""
	}
}

func startServer(t *testing.T, handler InboundHandler) *Server {
	t.Helper()
	server := New(testConfig(), logging.Default())
	if handler != nil {
		server.RegisterInboundHandler(handler)
	}
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func dial(t *testing.T, server *Server) *websocket.Conn {
	t.Helper()
	u := url.URL{Scheme: "ws", Host: server.Addr(), Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", u.String(), err)
	}
	return conn
}

func TestServer_StartPortConflict(t *testing.T) {
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer blocker.Close()

	cfg := testConfig()
	cfg.Port = blocker.Addr().(*net.TCPAddr).Port

	server := New(cfg, logging.Default())
	if err := server.Start(); !errors.Is(err, ErrListenFailed) {
		_ = server.Stop()
		t.Fatalf("Start() on bound port error = %v, want ErrListenFailed", err)
	}
}

func TestServer_StartTwice(t *testing.T) {
	server := startServer(t, nil)
	if err := server.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestServer_StopIdempotent(t *testing.T) {
	server := New(testConfig(), logging.Default())
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := server.Stop(); err != nil {
		t.Errorf("second Stop() error = %v, want nil", err)
	}
}

func TestServer_ConnectAndInboundMessage(t *testing.T) {
	handler := newRecordingHandler()
	server := startServer(t, handler)

	conn := dial(t, server)
	defer conn.Close()

	clientID := waitFor(t, handler.connects, "connect event")
	if clientID == "" {
		t.Fatal("connect event carried an empty client id")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"setValues"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	got := waitFor(t, handler.messages, "inbound message")
	want := clientID + `:{"type":"setValues"}`
	if got != want {
		t.Errorf("inbound message = %q, want %q", got, want)
	}
}

func TestServer_DisconnectExactlyOnce(t *testing.T) {
	handler := newRecordingHandler()
	server := startServer(t, handler)

	conn := dial(t, server)
	clientID := waitFor(t, handler.connects, "connect event")

	// Abrupt closure, no close handshake.
	conn.Close()

	gone := waitFor(t, handler.disconnects, "disconnect event")
	if gone != clientID {
		t.Errorf("disconnect for %q, want %q", gone, clientID)
	}

	// Give any duplicate notification a chance to arrive.
	time.Sleep(100 * time.Millisecond)
	handler.mu.Lock()
	count := handler.disconnectCount
	handler.mu.Unlock()
	if count != 1 {
		t.Errorf("disconnect notified %d times, want exactly 1", count)
	}
	if server.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after disconnect, want 0", server.ClientCount())
	}
}

func TestServer_MessageToClient(t *testing.T) {
	handler := newRecordingHandler()
	server := startServer(t, handler)

	conn := dial(t, server)
	defer conn.Close()
	clientID := waitFor(t, handler.connects, "connect event")

	server.MessageToClient(clientID, []byte(`{"type":"configuration"}`))

	_ = conn.SetReadDeadline(time.Now().Add(eventWait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if string(data) != `{"type":"configuration"}` {
		t.Errorf("received %q", data)
	}
}

func TestServer_MessageToUnknownClient(t *testing.T) {
	server := startServer(t, nil)

	// Must be a silent no-op.
	server.MessageToClient("no-such-client", []byte("payload"))
}

func TestServer_MessageToAllClients(t *testing.T) {
	handler := newRecordingHandler()
	server := startServer(t, handler)

	first := dial(t, server)
	defer first.Close()
	second := dial(t, server)
	defer second.Close()
	waitFor(t, handler.connects, "first connect")
	waitFor(t, handler.connects, "second connect")

	server.MessageToAllClients([]byte("broadcast"))

	for i, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(eventWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d ReadMessage() error = %v", i, err)
		}
		if string(data) != "broadcast" {
			t.Errorf("client %d received %q", i, data)
		}
	}
}

func TestServer_HandlerReplacement(t *testing.T) {
	first := newRecordingHandler()
	server := startServer(t, first)

	replacement := newRecordingHandler()
	server.RegisterInboundHandler(replacement)

	conn := dial(t, server)
	defer conn.Close()

	waitFor(t, replacement.connects, "connect on replacement handler")
	select {
	case <-first.connects:
		t.Error("replaced handler still received events")
	default:
	}
}
