package models

import (
	"time"
)

// Membership links a user to a club.
// At most one row per (user, club) may be active; the partial unique index
// idx_active_membership enforces that at the store. Inactive rows are kept
// as history and reactivated on rejoin.
type Membership struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_active_membership,where:is_active = true" json:"user_id"`
	ClubID    uint       `gorm:"not null;index;uniqueIndex:idx_active_membership,where:is_active = true" json:"club_id"`
	JoinDate  time.Time  `gorm:"not null" json:"join_date"`
	LeaveDate *time.Time `json:"leave_date,omitempty"`
	IsActive  bool       `gorm:"not null;index" json:"is_active"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Club Club `gorm:"foreignKey:ClubID" json:"club,omitempty"`
}
