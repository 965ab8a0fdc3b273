package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

// ErrorBody 是统一的错误响应结构。
type ErrorBody struct {
	Error string         `json:"error"`
	Kind  chat.ErrorKind `json:"kind,omitempty"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: message})
}

// RespondChatError maps err's kind to a status code and writes it.
func RespondChatError(w http.ResponseWriter, err error) {
	RespondJSON(w, StatusFor(err), NewErrorBody(err))
}

// NewErrorBody renders err for the client. Only the user-facing message of
// a typed error is exposed, never its cause.
func NewErrorBody(err error) ErrorBody {
	kind := chat.KindOf(err)
	message := "internal error"
	if chatErr, ok := asChatError(err); ok {
		message = chatErr.Message
	}
	return ErrorBody{Error: message, Kind: kind}
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(err error) int {
	switch chat.KindOf(err) {
	case chat.KindValidation:
		return http.StatusBadRequest
	case chat.KindNotFound:
		return http.StatusNotFound
	case chat.KindBusy:
		return http.StatusConflict
	case chat.KindNetwork, chat.KindEmptyResponse:
		return http.StatusBadGateway
	case chat.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
