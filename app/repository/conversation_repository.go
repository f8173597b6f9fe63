package repository

import (
	"time"

	"github.com/nativeai/nativechat/app/models"
	"gorm.io/gorm"
)

// conversationRepository implements the ConversationRepository interface
type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository instance
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create persists a new conversation
func (r *conversationRepository) Create(conversation *models.Conversation) error {
	db, cancel := withTimeout(r.db)
	defer cancel()
	return db.Create(conversation).Error
}

// GetByPublicID retrieves a conversation by its public UUID
func (r *conversationRepository) GetByPublicID(publicID string) (*models.Conversation, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var conversation models.Conversation
	err := db.Where("public_id = ?", publicID).First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListByUserID returns the user's conversations, most recently updated first
func (r *conversationRepository) ListByUserID(userID uint, offset, limit int) ([]models.Conversation, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var conversations []models.Conversation
	query := db.Where("user_id = ?", userID).Order("updated_at DESC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&conversations).Error
	return conversations, err
}

// AppendMessage adds a message to a conversation
func (r *conversationRepository) AppendMessage(message *models.Message) error {
	db, cancel := withTimeout(r.db)
	defer cancel()
	return db.Create(message).Error
}

// GetMessages returns a conversation's messages in chronological order
func (r *conversationRepository) GetMessages(conversationID uint) ([]models.Message, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var messages []models.Message
	err := db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// Touch bumps the conversation's updated_at so it sorts to the top of the list
func (r *conversationRepository) Touch(conversationID uint) error {
	db, cancel := withTimeout(r.db)
	defer cancel()
	return db.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now()).Error
}

// Count returns the total number of conversations
func (r *conversationRepository) Count() (int64, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var count int64
	err := db.Model(&models.Conversation{}).Count(&count).Error
	return count, err
}

// CountMessages returns the total number of stored messages
func (r *conversationRepository) CountMessages() (int64, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var count int64
	err := db.Model(&models.Message{}).Count(&count).Error
	return count, err
}
