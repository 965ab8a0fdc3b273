package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
	chatService "github.com/zhouzirui/medic/backend/internal/service/chat"
	"github.com/zhouzirui/medic/backend/pkg/utils"
)

// Handler delivers replies as Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	streaming bool
	logger    *slog.Logger
}

// New creates a stream handler. With streaming off the reply is sent as a
// single message event once it is complete.
func New(chatSvc *chatService.Service, streaming bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{chatSvc: chatSvc, streaming: streaming, logger: logger.With("component", "stream")}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string         `json:"event"`
	Content   string         `json:"content,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Turn      *chat.Turn     `json:"turn,omitempty"`
	Finished  bool           `json:"finished,omitempty"`
	Error     string         `json:"error,omitempty"`
	Kind      chat.ErrorKind `json:"kind,omitempty"`
}

// RegisterRoutes registers the SSE endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userMessage := r.URL.Query().Get("message")

	conv, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondChatError(w, err)
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, conv, userMessage); err != nil {
		h.logger.Warn("stream request failed", "session", sessionID, "kind", chat.KindOf(err), "error", err)
	}
}

// HandleStreamRequest submits userMessage and streams the reply. Validation
// and busy errors are answered with a plain JSON error before the stream
// opens; model failures arrive as an error event.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, conv *chatService.Conversation, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return fmt.Errorf("streaming unsupported")
	}

	sessionID := conv.Session.ID
	opened := false
	open := func() {
		if opened {
			return
		}
		opened = true
		utils.SetupSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		h.sendSSE(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})
	}

	var (
		turn chat.Turn
		err  error
	)
	if h.streaming {
		turn, err = conv.Coordinator.SubmitStream(ctx, userMessage, func(delta string) {
			open()
			h.sendSSE(w, flusher, StreamResponse{Event: "delta", SessionID: sessionID, Content: delta})
		})
	} else {
		turn, err = conv.Coordinator.Submit(ctx, userMessage)
	}

	if err != nil {
		kind := chat.KindOf(err)
		if !opened && (kind == chat.KindValidation || kind == chat.KindBusy) {
			utils.RespondChatError(w, err)
			return err
		}
		open()
		body := utils.NewErrorBody(err)
		h.sendSSE(w, flusher, StreamResponse{Event: "error", SessionID: sessionID, Error: body.Error, Kind: body.Kind})
		return err
	}

	open()
	h.sendSSE(w, flusher, StreamResponse{Event: "message", SessionID: sessionID, Content: turn.Content, Turn: &turn})
	h.sendSSE(w, flusher, StreamResponse{Event: "end", SessionID: sessionID, Finished: true})

	h.logger.Info("completed streamed reply", "session", sessionID, "length", len(turn.Content))
	return nil
}

// sendSSE sends a Server-Sent Event
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	if err := utils.SendSSEChunk(w, flusher, response); err != nil {
		h.logger.Warn("failed to send SSE event", "event", response.Event, "error", err)
	}
}
