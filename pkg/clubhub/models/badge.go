package models

import (
	"time"
)

// BadgeType is the closed set of badges a user can earn
type BadgeType string

const (
	BadgeBronze     BadgeType = "bronze"
	BadgeSilver     BadgeType = "silver"
	BadgeGold       BadgeType = "gold"
	BadgeDiamond    BadgeType = "diamond"
	BadgeClubJoiner BadgeType = "club-joiner"
	BadgeEventGoer  BadgeType = "event-goer"
)

var badgeLabels = map[BadgeType]string{
	BadgeBronze:     "Bronze Badge",
	BadgeSilver:     "Silver Badge",
	BadgeGold:       "Gold Badge",
	BadgeDiamond:    "Diamond Badge",
	BadgeClubJoiner: "Club Joiner Badge",
	BadgeEventGoer:  "Event Goer Badge",
}

// Label returns the display name of the badge type.
// Unknown types render as their raw value.
func (t BadgeType) Label() string {
	if label, ok := badgeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Valid reports whether t is a known badge type
func (t BadgeType) Valid() bool {
	_, ok := badgeLabels[t]
	return ok
}

// Badge is an achievement granted to a user at most once per type
type Badge struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	Type       BadgeType `gorm:"type:varchar(20);not null;uniqueIndex:idx_user_badge" json:"type"`
	EarnedDate time.Time `gorm:"not null;index" json:"earned_date"`
}
