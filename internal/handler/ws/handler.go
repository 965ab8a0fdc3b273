package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
	chatService "github.com/zhouzirui/medic/backend/internal/service/chat"
	"github.com/zhouzirui/medic/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// Handler WebSocket 聊天处理器
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With("component", "websocket"),
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type turnPayload struct {
	Turn     chat.Turn   `json:"turn"`
	State    chat.State  `json:"state"`
	Messages []chat.Turn `json:"messages"`
}

type messagesPayload struct {
	State    chat.State  `json:"state"`
	Messages []chat.Turn `json:"messages"`
}

type errorPayload struct {
	utils.ErrorBody
	State    chat.State  `json:"state"`
	Messages []chat.Turn `json:"messages,omitempty"`
}

// client serializes writes; gorilla connections allow one concurrent writer.
type client struct {
	conn      *websocket.Conn
	sessionID string
	mu        sync.Mutex
	logger    *slog.Logger
}

func (c *client) send(msgType string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Warn("write failed", "type", msgType, "error", err)
	}
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conv, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondChatError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "session", sessionID, "error", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, sessionID: sessionID, logger: h.logger.With("session", sessionID)}
	c.logger.Info("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go pingLoop(ctx, conn)

	c.send("messages", messagesPayload{State: conv.Coordinator.State(), Messages: conv.Store.All()})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		h.handleMessage(ctx, c, conv, msg)
	}
}

// handleMessage runs one inbound frame to completion before the next is
// read, so a connection never has two submissions in flight.
func (h *Handler) handleMessage(ctx context.Context, c *client, conv *chatService.Conversation, msg inboundMessage) {
	switch msg.Type {
	case "submit":
		turn, err := conv.Coordinator.Submit(ctx, msg.Text)
		if err != nil {
			c.send("error", errorPayload{
				ErrorBody: utils.NewErrorBody(err),
				State:     conv.Coordinator.State(),
				Messages:  conv.Store.All(),
			})
			return
		}
		c.send("turn", turnPayload{Turn: turn, State: conv.Coordinator.State(), Messages: conv.Store.All()})
	case "reset":
		if err := conv.Coordinator.Reset(); err != nil {
			c.send("error", errorPayload{ErrorBody: utils.NewErrorBody(err), State: conv.Coordinator.State()})
			return
		}
		c.send("messages", messagesPayload{State: conv.Coordinator.State(), Messages: conv.Store.All()})
	case "history":
		c.send("messages", messagesPayload{State: conv.Coordinator.State(), Messages: conv.Store.All()})
	default:
		c.send("error", errorPayload{
			ErrorBody: utils.ErrorBody{Error: "unsupported message type", Kind: chat.KindValidation},
			State:     conv.Coordinator.State(),
		})
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

