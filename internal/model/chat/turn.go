package chat

import (
	"strings"
	"time"
)

// Role 标识一条消息的发言方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message of a conversation. Turns are values; the store only
// ever hands out copies, so a Turn never changes after it is appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Urgency   string    `json:"urgency,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserTurn builds a user turn stamped with the current time.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, CreatedAt: time.Now().UTC()}
}

// AssistantTurn builds an assistant turn stamped with the current time.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content, CreatedAt: time.Now().UTC()}
}

// WellFormed 校验角色合法且内容非空。
func (t Turn) WellFormed() bool {
	return t.Role.Valid() && strings.TrimSpace(t.Content) != ""
}
