package models

import (
	"time"

	"github.com/google/uuid"
)

// Message sender enums.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// MessageStatus tracks the lifecycle of an ai placeholder. User messages are
// written as completed.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusCompleted MessageStatus = "completed"
	MessageStatusFailed    MessageStatus = "failed"
)

// Terminal reports whether the placeholder has received its final content.
func (s MessageStatus) Terminal() bool {
	return s == MessageStatusCompleted || s == MessageStatusFailed
}

const (
	// PlaceholderContent is what an ai message holds until the worker resolves it.
	PlaceholderContent = "Thinking..."
	// ErrorContent is written when generation fails for good.
	ErrorContent = "Sorry, I encountered an error while processing your request. Please try again."
)

type Message struct {
	ID         uuid.UUID     `json:"id"`
	ChatroomID uuid.UUID     `json:"-"`
	Content    string        `json:"content"`
	Sender     string        `json:"sender"`
	Status     MessageStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"-"`
}
