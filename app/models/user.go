package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	PLAN_FREE = "free"
	PLAN_PRO  = "pro"
)

// User mirrors an identity-provider account locally. The record is created
// lazily on the first authenticated request; Subject is the provider's stable
// user id.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Subject    string         `gorm:"uniqueIndex;type:varchar(191);not null" json:"subject" validate:"required,min=1,max=191"`
	Email      string         `gorm:"index;type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	Plan       string         `gorm:"type:varchar(50);default:'free'" json:"plan" validate:"oneof=free pro"`
	LastSeenAt *time.Time     `gorm:"type:timestamp;default:null" json:"last_seen_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NormalizePlan maps arbitrary stored values onto a known plan, defaulting to free.
func NormalizePlan(plan string) string {
	switch plan {
	case PLAN_PRO:
		return PLAN_PRO
	default:
		return PLAN_FREE
	}
}

// GetOrCreateUserBySubject returns the local user row for an identity subject,
// creating it on first sight.
func GetOrCreateUserBySubject(db *gorm.DB, subject, email string) (*User, error) {
	var u User
	if err := db.Where("subject = ?", subject).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			u = User{Subject: subject, Email: email, Plan: PLAN_FREE}
			if err := u.Validate(); err != nil {
				return nil, err
			}
			if err := db.Create(&u).Error; err != nil {
				return nil, err
			}
			return &u, nil
		}
		return nil, err
	}
	// Keep the email current; the identity provider owns it.
	if email != "" && u.Email != email {
		u.Email = email
		if err := db.Model(&u).Update("email", email).Error; err != nil {
			return nil, err
		}
	}
	return &u, nil
}
