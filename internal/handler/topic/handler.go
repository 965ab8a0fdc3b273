package topic

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
	"github.com/zhouzirui/medic/backend/internal/model/topic"
	"github.com/zhouzirui/medic/backend/pkg/utils"
)

// Handler quick-topic 的HTTP处理器
type Handler struct {
	topics topic.Store
}

// New 创建topic处理器
func New(topics topic.Store) *Handler {
	return &Handler{topics: topics}
}

// RegisterRoutes 注册topic相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/topics", h.handleListTopics)
	r.Get("/topics/{topicID}", h.handleGetTopic)
}

func (h *Handler) handleListTopics(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.topics.List())
}

func (h *Handler) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	item, ok := h.topics.FindByID(chi.URLParam(r, "topicID"))
	if !ok {
		utils.RespondChatError(w, chat.NewError(chat.KindNotFound, "topic not found", nil))
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}
