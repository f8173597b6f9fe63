package repository

import (
	"github.com/nativeai/nativechat/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetOrCreateBySubject(subject, email string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetPlan(userID uint) (string, error)
	SetPlan(userID uint, plan string) error
	TouchLastSeen(userID uint) error
	Count() (int64, error)
}

// UsageRepository defines the interface for token accounting operations.
// AddUsed and AddAllowance must be atomic increments; concurrent requests for
// the same user/period are serialized by the database.
type UsageRepository interface {
	GetUsed(userID uint, periodKey string) (int64, error)
	AddUsed(userID uint, periodKey string, tokens int64) error
	GetAllowance(userID uint, periodKey string) (int64, error)
	AddAllowance(userID uint, periodKey string, tokens int64) error
	TotalTokensUsed() (int64, error)
}

// ConversationRepository defines the interface for conversation and message
// persistence
type ConversationRepository interface {
	Create(conversation *models.Conversation) error
	GetByPublicID(publicID string) (*models.Conversation, error)
	ListByUserID(userID uint, offset, limit int) ([]models.Conversation, error)
	AppendMessage(message *models.Message) error
	GetMessages(conversationID uint) ([]models.Message, error)
	Touch(conversationID uint) error
	Count() (int64, error)
	CountMessages() (int64, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Usage        UsageRepository
	Conversation ConversationRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Usage:        NewUsageRepository(db),
		Conversation: NewConversationRepository(db),
	}
}
