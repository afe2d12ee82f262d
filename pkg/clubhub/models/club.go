package models

import (
	"time"

	"gorm.io/datatypes"
)

// Category is the closed set of club categories
type Category string

const (
	CategoryAcademic   Category = "academic"
	CategoryArts       Category = "arts"
	CategorySports     Category = "sports"
	CategoryTechnology Category = "technology"
	CategorySocial     Category = "social"
	CategoryVolunteer  Category = "volunteer"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryAcademic,
	CategoryArts,
	CategorySports,
	CategoryTechnology,
	CategorySocial,
	CategoryVolunteer,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Club represents a student club.
// Members is a denormalized copy of the active member IDs. The memberships
// table is authoritative; Members is rewritten on every join and leave.
type Club struct {
	ID          uint                      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	Name        string                    `gorm:"uniqueIndex;not null" json:"name"`
	Description string                    `gorm:"not null" json:"description"`
	Category    Category                  `gorm:"type:varchar(20);not null;index" json:"category"`
	CreatorID   uint                      `gorm:"not null;index" json:"creator_id"`
	Members     datatypes.JSONSlice[uint] `json:"members"`

	// Relationships
	Creator User    `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Events  []Event `gorm:"foreignKey:ClubID" json:"events,omitempty"`
}

// HasMember reports whether userID is in the denormalized member list
func (c *Club) HasMember(userID uint) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// AddMember appends userID to the member list if absent.
// Returns false when the list was left unchanged.
func (c *Club) AddMember(userID uint) bool {
	if c.HasMember(userID) {
		return false
	}
	c.Members = append(c.Members, userID)
	return true
}

// RemoveMember drops every occurrence of userID from the member list.
// Returns false when the list was left unchanged.
func (c *Club) RemoveMember(userID uint) bool {
	kept := make(datatypes.JSONSlice[uint], 0, len(c.Members))
	for _, id := range c.Members {
		if id != userID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(c.Members) {
		return false
	}
	c.Members = kept
	return true
}
