package models

import (
	"time"
)

// Role represents a user's system-wide role
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User represents a registered student or administrator
type User struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Email         string    `gorm:"uniqueIndex;not null" json:"email"`
	StudentID     string    `gorm:"uniqueIndex;not null" json:"student_id"`
	PasswordHash  string    `json:"-"`
	Name          string    `gorm:"not null" json:"name"`
	Major         string    `json:"major"`
	Role          Role      `gorm:"type:varchar(20);default:'user'" json:"role"`
	EmailVerified bool      `gorm:"default:false" json:"email_verified"`

	// Relationships
	Memberships []Membership `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
	Streak      *Streak      `gorm:"foreignKey:UserID" json:"streak,omitempty"`
	Badges      []Badge      `gorm:"foreignKey:UserID" json:"badges,omitempty"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
