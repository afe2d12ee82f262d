package models

import (
	"time"
)

// Streak tracks a user's consecutive days of activity.
// Version is bumped on every write and used as a compare-and-swap guard.
type Streak struct {
	ID              uint       `gorm:"primarykey" json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	UserID          uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentStreak   int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak   int        `gorm:"not null;default:0" json:"longest_streak"`
	TotalActiveDays int        `gorm:"not null;default:0" json:"total_active_days"`
	LastActiveDate  *time.Time `json:"last_active_date"` // nil until the first qualifying activity
	Version         uint       `gorm:"not null;default:0" json:"-"`
}
