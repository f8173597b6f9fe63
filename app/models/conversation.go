package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ROLE_MSG_USER      = "user"
	ROLE_MSG_ASSISTANT = "assistant"
)

// Conversation is a persisted chat thread owned by exactly one user.
// It is created lazily on the first turn the user asks to save.
type Conversation struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	PublicID  string         `gorm:"uniqueIndex;type:char(36);not null" json:"public_id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Title     string         `gorm:"type:varchar(255)" json:"title"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Message is a single turn inside a conversation, ordered by creation time.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	Role           string    `gorm:"type:varchar(20);not null" json:"role"`
	Content        string    `gorm:"type:longtext;not null" json:"content"`
	AttachmentMeta string    `gorm:"type:text" json:"attachment_meta,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// NewConversation builds an unsaved conversation with a fresh public id and a
// title derived from the opening message.
func NewConversation(userID uint, firstMessage string) *Conversation {
	return &Conversation{
		PublicID: uuid.NewString(),
		UserID:   userID,
		Title:    TitleFromMessage(firstMessage),
	}
}

// TitleFromMessage derives a short conversation title from the first words of
// a message.
func TitleFromMessage(content string) string {
	fields := strings.Fields(strings.TrimSpace(content))
	if len(fields) == 0 {
		return "New conversation"
	}
	if len(fields) > 8 {
		fields = fields[:8]
	}
	title := strings.Join(fields, " ")
	if len(title) > 120 {
		title = title[:120]
	}
	return title
}
