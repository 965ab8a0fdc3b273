package utils

import (
	"errors"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

func asChatError(err error) (*chat.Error, bool) {
	var chatErr *chat.Error
	if errors.As(err, &chatErr) {
		return chatErr, true
	}
	return nil, false
}
