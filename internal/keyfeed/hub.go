package keyfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rigela/internal/keys"
)

const (
	writeDeadline      = 2 * time.Second
	readDeadline       = 90 * time.Second
	pingInterval       = 30 * time.Second
	maxReadMessageSize = 4 * 1024
	shutdownTimeout    = 5 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	// The listener is loopback-only.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
}

// HubOptions configures the feed server.
type HubOptions struct {
	// Addr is the listen address; "127.0.0.1:0" picks a free port.
	Addr string
}

// Hub serves one WebSocket client at a time. A new connection replaces the
// current one.
//
// Lock ordering: writeMu -> mu.
//
// Publish paths log only at Debug. Warnings are forwarded to the log topic,
// so a failing write logged at Warn would feed itself.
type Hub struct {
	opts HubOptions

	mu     sync.RWMutex
	conn   *websocket.Conn
	topics map[string]bool

	// writeMu serializes WriteMessage; gorilla/websocket allows one writer.
	writeMu sync.Mutex

	listener  net.Listener
	server    *http.Server
	url       string
	closeOnce sync.Once
}

// NewHub creates a Hub. It does not listen until Start.
func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{
		opts:   opts,
		topics: make(map[string]bool),
	}
}

// Start listens on the configured address. ctx becomes the base context of
// connection handlers; stopping the server still requires Stop.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return errors.New("keyfeed: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("keyfeed: listen: %w", err)
	}
	h.listener = ln
	h.url = "ws://" + ln.Addr().String() + "/ws"

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("[DEBUG-WS] server error", "error", serveErr)
		}
	}()

	slog.Info("[DEBUG-WS] key feed started", "url", h.url)
	return nil
}

// Stop closes the client and shuts the server down. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		conn := h.conn
		h.conn = nil
		h.topics = make(map[string]bool)
		h.mu.Unlock()

		if conn != nil {
			h.closeConn(conn, "hub stop")
		}
		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("keyfeed: shutdown: %w", err)
			}
		}
		slog.Info("[DEBUG-WS] key feed stopped")
	})
	return stopErr
}

// URL returns the client endpoint, e.g. "ws://127.0.0.1:54321/ws", or ""
// before Start.
func (h *Hub) URL() string {
	return h.url
}

// HasActiveConnection reports whether a client is connected.
func (h *Hub) HasActiveConnection() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn != nil
}

// Subscribed reports whether the current client subscribed to topic.
func (h *Hub) Subscribed(topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn != nil && h.topics[topic]
}

// PublishKey sends a key transition on the keys topic. Its signature matches
// commander.KeyListener.
func (h *Hub) PublishKey(k keys.Keys, pressed bool) {
	if !h.Subscribed(TopicKeys) {
		return
	}
	frame, err := EncodeKey(k, pressed)
	if err != nil {
		slog.Debug("[DEBUG-WS] encode key frame failed", "error", err)
		return
	}
	h.publish(TopicKeys, frame)
}

// PublishTalent sends a dispatch notification on the talents topic.
func (h *Hub) PublishTalent(id, chord string) {
	if !h.Subscribed(TopicTalents) {
		return
	}
	frame, err := EncodeTalent(id, chord)
	if err != nil {
		slog.Debug("[DEBUG-WS] encode talent frame failed", "error", err)
		return
	}
	h.publish(TopicTalents, frame)
}

// PublishLog sends a log record on the log topic.
func (h *Hub) PublishLog(level slog.Level, message string) {
	if !h.Subscribed(TopicLog) {
		return
	}
	frame, err := EncodeLog(level, message)
	if err != nil {
		return
	}
	h.publish(TopicLog, frame)
}

func (h *Hub) publish(topic string, frame []byte) {
	h.mu.RLock()
	conn := h.conn
	subscribed := h.topics[topic]
	h.mu.RUnlock()
	if conn == nil || !subscribed {
		return
	}
	if err := h.write(conn, websocket.TextMessage, frame); err != nil {
		h.clearIfCurrent(conn)
		h.closeConn(conn, "publish write error")
		slog.Debug("[DEBUG-WS] publish failed, client dropped", "topic", topic, "error", err)
	}
}

// write performs one deadline-bounded write under writeMu.
func (h *Hub) write(conn *websocket.Conn, messageType int, data []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(messageType, data); err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("[DEBUG-WS] clear write deadline failed (non-fatal)", "error", err)
	}
	return nil
}

func (h *Hub) clearIfCurrent(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != conn {
		return false
	}
	h.conn = nil
	h.topics = make(map[string]bool)
	return true
}

func (h *Hub) closeConn(conn *websocket.Conn, reason string) {
	if err := conn.Close(); err != nil {
		slog.Debug("[DEBUG-WS] connection close", "reason", reason, "error", err)
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("[DEBUG-WS] upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		h.closeConn(conn, "initial read deadline failure")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	h.mu.Lock()
	oldConn := h.conn
	h.conn = conn
	h.topics = make(map[string]bool)
	h.mu.Unlock()
	if oldConn != nil {
		h.closeConn(oldConn, "replaced by new connection")
	}
	slog.Info("[DEBUG-WS] key feed client connected", "remoteAddr", conn.RemoteAddr())

	pingDone := make(chan struct{})
	go h.pingLoop(conn, pingDone)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] keyfeed handleWS recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
		close(pingDone)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "read pump exit")
		slog.Info("[DEBUG-WS] key feed client disconnected")
	}()

	for {
		msgType, msg, readErr := conn.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("[DEBUG-WS] read error", "error", readErr)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var sub subscribeMsg
		if jsonErr := json.Unmarshal(msg, &sub); jsonErr != nil {
			h.sendError(conn, fmt.Sprintf("invalid JSON: %s", jsonErr))
			continue
		}
		if errMsg := h.handleSubscription(conn, sub); errMsg != "" {
			h.sendError(conn, errMsg)
		}
	}
}

func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.write(conn, websocket.PingMessage, nil); err != nil {
				slog.Debug("[DEBUG-WS] ping failed, connection likely dead", "error", err)
				h.clearIfCurrent(conn)
				h.closeConn(conn, "ping failure")
				return
			}
		}
	}
}

// handleSubscription applies msg and returns a client-facing error, if any.
func (h *Hub) handleSubscription(conn *websocket.Conn, msg subscribeMsg) string {
	for _, topic := range msg.Topics {
		if !IsTopic(topic) {
			return fmt.Sprintf("unknown topic %q", topic)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != conn {
		return ""
	}
	switch msg.Action {
	case subscribeAction:
		for _, topic := range msg.Topics {
			h.topics[topic] = true
		}
	case unsubscribeAction:
		for _, topic := range msg.Topics {
			delete(h.topics, topic)
		}
	default:
		return fmt.Sprintf("unknown action %q", msg.Action)
	}
	slog.Debug("[DEBUG-WS] subscription updated", "action", msg.Action, "topics", msg.Topics)
	return ""
}

func (h *Hub) sendError(conn *websocket.Conn, message string) {
	payload, err := json.Marshal(errorMsg{Type: "error", Message: message})
	if err != nil {
		return
	}
	if err := h.write(conn, websocket.TextMessage, payload); err != nil {
		h.clearIfCurrent(conn)
		h.closeConn(conn, "write error in sendError")
	}
}
