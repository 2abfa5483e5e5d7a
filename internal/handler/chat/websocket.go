package chat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/homewiz/lease-concierge/backend/internal/model/chat"
	chatService "github.com/homewiz/lease-concierge/backend/internal/service/chat"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// WebSocketHandler streams a conversation over a websocket.
type WebSocketHandler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a websocket handler. checkOrigin may be nil to
// accept every origin.
func NewWebSocketHandler(chatSvc *chatService.Service, logger *zap.Logger, checkOrigin func(*http.Request) bool) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WebSocketHandler{
		chatSvc: chatSvc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket route on r.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// TextMessage is the payload of an inbound "text" frame.
type TextMessage struct {
	Text string `json:"text"`
}

type inboundMessage struct {
	Type string      `json:"type"`
	Data TextMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serialises writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	h.logger.Info("websocket connected", zap.String("session", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(ctx, conn)

	h.sendResult(conn, sessionID, map[string]any{
		"type":    "connected",
		"session": session,
	})

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}
		raw.SetReadDeadline(time.Now().Add(pongWait))

		var msg inboundMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, "invalid message")
			continue
		}

		switch msg.Type {
		case "text":
			h.handleText(ctx, conn, sessionID, msg.Data.Text)
		default:
			h.sendError(conn, "unsupported message type")
		}
	}
}

// handleText pushes the locally appended messages right away. The outbound
// call runs in the background so frames sent meanwhile hit the busy check.
func (h *WebSocketHandler) handleText(ctx context.Context, conn *wsConn, sessionID, text string) {
	pending, err := h.chatSvc.Begin(ctx, sessionID, text)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	h.sendMessages(conn, sessionID, pending.Messages())
	if !pending.Waiting() {
		return
	}

	h.sendBusy(conn, sessionID, true)
	go func() {
		turn, err := pending.Complete(ctx)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.sendMessages(conn, sessionID, turn.Messages[len(pending.Messages()):])
		h.sendBusy(conn, sessionID, turn.Session.Busy)
	}()
}

func (h *WebSocketHandler) sendMessages(conn *wsConn, sessionID string, messages []chat.Message) {
	for _, m := range messages {
		h.sendResult(conn, sessionID, map[string]any{
			"type":    "message",
			"message": m,
		})
	}
}

func (h *WebSocketHandler) sendBusy(conn *wsConn, sessionID string, busy bool) {
	h.sendResult(conn, sessionID, map[string]any{
		"type": "busy",
		"busy": busy,
	})
}

func (h *WebSocketHandler) sendResult(conn *wsConn, sessionID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *wsConn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
