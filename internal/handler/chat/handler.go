package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
	chatService "github.com/zhouzirui/medic/backend/internal/service/chat"
	"github.com/zhouzirui/medic/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// ConversationView is the JSON shape of a conversation.
type ConversationView struct {
	Session  chat.Session `json:"session"`
	State    chat.State   `json:"state"`
	Messages []chat.Turn  `json:"messages"`
}

// SubmitResponse is returned for every submission. On failure Error is
// set, Reply is nil and Messages still includes the user's turn.
type SubmitResponse struct {
	Reply    *chat.Turn     `json:"reply,omitempty"`
	State    chat.State     `json:"state"`
	Messages []chat.Turn    `json:"messages"`
	Error    string         `json:"error,omitempty"`
	Kind     chat.ErrorKind `json:"kind,omitempty"`
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleDeleteSession)
	r.Post("/sessions/{sessionID}/messages", h.handleSubmit)
	r.Post("/sessions/{sessionID}/reset", h.handleReset)
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondChatError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, viewOf(conv))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, viewOf(conv))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmit 提交一条用户消息并同步等待回复
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := conv.Coordinator.Submit(r.Context(), payload.Content)
	resp := SubmitResponse{
		State:    conv.Coordinator.State(),
		Messages: conv.Store.All(),
	}
	if err != nil {
		body := utils.NewErrorBody(err)
		resp.Error = body.Error
		resp.Kind = body.Kind
		utils.RespondJSON(w, utils.StatusFor(err), resp)
		return
	}

	resp.Reply = &turn
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := conv.Coordinator.Reset(); err != nil {
		utils.RespondChatError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, viewOf(conv))
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chatService.Conversation, bool) {
	conv, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondChatError(w, err)
		return nil, false
	}
	return conv, true
}

func viewOf(conv *chatService.Conversation) ConversationView {
	return ConversationView{
		Session:  conv.Session,
		State:    conv.Coordinator.State(),
		Messages: conv.Store.All(),
	}
}
