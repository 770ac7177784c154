package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

const websocketWriteTimeout = 5 * time.Second

// wsInbound is a client frame.
type wsInbound struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// wsOutbound is a server frame.
type wsOutbound struct {
	Text    string   `json:"text,omitempty"`
	Buttons []string `json:"buttons,omitempty"`
	Typing  bool     `json:"typing,omitempty"`
}

// WebSocketChannel serves browser clients. Each connection is its own user
// and receives a synthetic /start when it opens.
type WebSocketChannel struct {
	originPatterns []string

	// OnDisconnect, if set, is called with the user ID of a closed connection.
	OnDisconnect func(userID string)

	mu      sync.RWMutex
	conns   map[string]*websocket.Conn
	handler func(InboundMessage)
}

// NewWebSocketChannel creates a WebSocket channel. originPatterns are passed
// to websocket.AcceptOptions; empty means same-origin only.
func NewWebSocketChannel(originPatterns ...string) *WebSocketChannel {
	return &WebSocketChannel{
		originPatterns: originPatterns,
		conns:          make(map[string]*websocket.Conn),
	}
}

func (w *WebSocketChannel) Start(_ context.Context, handler func(InboundMessage)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handler = handler
	return nil
}

func (w *WebSocketChannel) Stop() error {
	w.mu.Lock()
	conns := w.conns
	w.conns = make(map[string]*websocket.Conn)
	w.handler = nil
	w.mu.Unlock()

	for _, c := range conns {
		_ = c.Close(websocket.StatusGoingAway, "server shutting down")
	}
	return nil
}

func (w *WebSocketChannel) SendTyping(ctx context.Context, userID string) error {
	return w.write(ctx, userID, wsOutbound{Typing: true})
}

func (w *WebSocketChannel) SendMessage(ctx context.Context, userID string, msg OutboundMessage) error {
	return w.write(ctx, userID, wsOutbound{Text: msg.Text, Buttons: msg.Buttons})
}

func (w *WebSocketChannel) write(ctx context.Context, userID string, frame wsOutbound) error {
	w.mu.RLock()
	c, ok := w.conns[userID]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("websocket connection not found: %s", userID)
	}

	ctx, cancel := context.WithTimeout(ctx, websocketWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c, frame); err != nil {
		return fmt.Errorf("writing websocket frame: %w", err)
	}
	return nil
}

// Connections returns the number of open connections.
func (w *WebSocketChannel) Connections() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.conns)
}

// ServeHTTP upgrades the request and reads client frames until the connection closes.
func (w *WebSocketChannel) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w.mu.RLock()
	handler := w.handler
	w.mu.RUnlock()
	if handler == nil {
		http.Error(rw, "websocket channel not started", http.StatusServiceUnavailable)
		return
	}

	// Connections outlive the HTTP server's read/write timeouts.
	rc := http.NewResponseController(rw)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	c, err := websocket.Accept(rw, r, &websocket.AcceptOptions{
		OriginPatterns: w.originPatterns,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer c.CloseNow()

	userID := uuid.NewString()
	w.mu.Lock()
	w.conns[userID] = c
	w.mu.Unlock()
	slog.Info("websocket client connected", "user_id", userID)

	defer func() {
		w.mu.Lock()
		delete(w.conns, userID)
		w.mu.Unlock()
		if w.OnDisconnect != nil {
			w.OnDisconnect(userID)
		}
		slog.Info("websocket client disconnected", "user_id", userID)
	}()

	lang := r.URL.Query().Get("lang")
	handler(InboundMessage{Channel: "websocket", UserID: userID, Text: "/start", Language: lang})

	for {
		var in wsInbound
		if err := wsjson.Read(r.Context(), c, &in); err != nil {
			if !isNormalClose(err) {
				slog.Warn("websocket read failed", "user_id", userID, "error", err)
			}
			return
		}

		text := strings.TrimSpace(in.Text)
		if text == "" {
			continue
		}
		if in.Language != "" {
			lang = in.Language
		}
		handler(InboundMessage{Channel: "websocket", UserID: userID, Text: text, Language: lang})
	}
}

func isNormalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
