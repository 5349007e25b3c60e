package domain

import "time"

// ChatRole is a message author role in a generation exchange
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatSession groups the messages of one conversation against a brain
type ChatSession struct {
	ID        int64
	BrainID   int64
	UserID    int64
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one persisted turn of a chat session
type ChatMessage struct {
	ID        int64
	SessionID int64
	Role      ChatRole
	Content   string
	Sources   []Source
	CreatedAt time.Time
}

// ChatTurn is a (role, content) pair passed to the generation provider.
type ChatTurn struct {
	Role    ChatRole
	Content string
}
