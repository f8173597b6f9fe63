package repository

import (
	"github.com/nativeai/nativechat/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// usageRepository implements the UsageRepository interface
type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage repository instance
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) GetUsed(userID uint, periodKey string) (int64, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var counter models.UsageCounter
	err := db.Where("user_id = ? AND period_key = ?", userID, periodKey).First(&counter).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return counter.TokensUsed, nil
}

// AddUsed increments the token counter for the period. The upsert keeps
// concurrent requests from losing increments.
func (r *usageRepository) AddUsed(userID uint, periodKey string, tokens int64) error {
	db, cancel := withTimeout(r.db)
	defer cancel()
	counter := models.UsageCounter{
		UserID:     userID,
		PeriodKey:  periodKey,
		TokensUsed: tokens,
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "period_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tokens_used": gorm.Expr("tokens_used + ?", tokens),
		}),
	}).Create(&counter).Error
}

func (r *usageRepository) GetAllowance(userID uint, periodKey string) (int64, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var allowance models.Allowance
	err := db.Where("user_id = ? AND period_key = ?", userID, periodKey).First(&allowance).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return allowance.BonusTokens, nil
}

// AddAllowance adds bonus tokens to the period, stacking with any
// previously granted amount.
func (r *usageRepository) AddAllowance(userID uint, periodKey string, tokens int64) error {
	db, cancel := withTimeout(r.db)
	defer cancel()
	allowance := models.Allowance{
		UserID:      userID,
		PeriodKey:   periodKey,
		BonusTokens: tokens,
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "period_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"bonus_tokens": gorm.Expr("bonus_tokens + ?", tokens),
		}),
	}).Create(&allowance).Error
}

// TotalTokensUsed sums token usage across all users and periods
func (r *usageRepository) TotalTokensUsed() (int64, error) {
	db, cancel := withTimeout(r.db)
	defer cancel()
	var total int64
	err := db.Model(&models.UsageCounter{}).
		Select("COALESCE(SUM(tokens_used), 0)").
		Scan(&total).Error
	return total, err
}
