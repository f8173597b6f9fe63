package repository

import (
	"time"

	"github.com/nativeai/nativechat/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetOrCreateBySubject(subject, email string) (*models.User, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	return models.GetOrCreateUserBySubject(db, subject, email)
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var user models.User
	err := db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetPlan(userID uint) (string, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var user models.User
	if err := db.Select("plan").First(&user, userID).Error; err != nil {
		return "", err
	}
	return models.NormalizePlan(user.Plan), nil
}

func (r *userRepository) SetPlan(userID uint, plan string) error {
	db, cancel := withTimeout(r.db)
	defer cancel()
	return db.Model(&models.User{}).Where("id = ?", userID).Update("plan", plan).Error
}

// TouchLastSeen refreshes the user's last activity timestamp
func (r *userRepository) TouchLastSeen(userID uint) error {
	db, cancel := withTimeout(r.db)
	defer cancel()
	return db.Model(&models.User{}).Where("id = ?", userID).Update("last_seen_at", time.Now()).Error
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var count int64
	err := db.Model(&models.User{}).Count(&count).Error
	return count, err
}
