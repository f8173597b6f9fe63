package models

import "time"

// UsageCounter tracks consumed tokens per user and accounting period. A new
// period key simply starts a new row at zero; counters only grow within a
// period.
type UsageCounter struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:ux_usage_counters_user_period,unique,priority:1" json:"user_id"`
	PeriodKey  string    `gorm:"type:varchar(10);not null;index:ux_usage_counters_user_period,unique,priority:2" json:"period_key"`
	TokensUsed int64     `gorm:"not null;default:0" json:"tokens_used"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Allowance stores purchased or granted extra tokens for a single period.
// The bonus raises the effective cap for that period only.
type Allowance struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index:ux_allowances_user_period,unique,priority:1" json:"user_id"`
	PeriodKey   string    `gorm:"type:varchar(10);not null;index:ux_allowances_user_period,unique,priority:2" json:"period_key"`
	BonusTokens int64     `gorm:"not null;default:0" json:"bonus_tokens"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
