package models

import (
	"time"

	"gorm.io/gorm"
)

// Event represents a club event
type Event struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"not null" json:"description"`
	Date        time.Time      `gorm:"not null;index" json:"date"`
	Time        string         `gorm:"not null" json:"time"` // Free-form start time, e.g. "18:30"
	Location    string         `gorm:"not null" json:"location"`
	ClubID      uint           `gorm:"not null;index" json:"club_id"`

	// Relationships
	Club      Club   `gorm:"foreignKey:ClubID" json:"club,omitempty"`
	Attendees []User `gorm:"many2many:event_attendees;" json:"attendees,omitempty"`
}

// EventAttendeesTable is the join table backing Event.Attendees
const EventAttendeesTable = "event_attendees"
