package activity

import (
	"context"
	"sort"
	"time"

	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"gorm.io/gorm"
)

// ItemType classifies a feed entry
type ItemType string

const (
	TypeJoinedClub  ItemType = "joined_club"
	TypeLeftClub    ItemType = "left_club"
	TypeJoinedEvent ItemType = "joined_event"
	TypeEarnedBadge ItemType = "earned_badge"
)

// PerSourceLimit caps how many entries each source contributes to a feed
const PerSourceLimit = 10

// Item is one entry of a user's activity feed
type Item struct {
	Type        ItemType  `json:"type"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// Aggregator builds activity feeds from memberships, attended events and badges
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

// transitionDate is the date a membership item shows: the leave date of an
// ended membership, the join date otherwise
const transitionDate = "CASE WHEN is_active = false AND leave_date IS NOT NULL THEN leave_date ELSE join_date END"

// ForUser returns the user's recent activity, newest first.
// Each source is capped on its own before merging, so the feed holds at
// most 3*PerSourceLimit items and is not a global top-N.
func (a *Aggregator) ForUser(ctx context.Context, userID uint) ([]Item, error) {
	db := a.db.WithContext(ctx)
	items := make([]Item, 0, 3*PerSourceLimit)

	var memberships []models.Membership
	if err := db.Preload("Club", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name")
	}).
		Where("user_id = ?", userID).
		Order(transitionDate + " DESC").
		Limit(PerSourceLimit).
		Find(&memberships).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	for _, m := range memberships {
		items = append(items, membershipItem(m))
	}

	var events []models.Event
	if err := db.Preload("Club", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name")
	}).
		Joins("JOIN "+models.EventAttendeesTable+" ON "+models.EventAttendeesTable+".event_id = events.id").
		Where(models.EventAttendeesTable+".user_id = ?", userID).
		Order("events.created_at DESC").
		Limit(PerSourceLimit).
		Find(&events).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	for _, e := range events {
		items = append(items, Item{
			Type:        TypeJoinedEvent,
			Description: "Attended " + e.Title + " by " + e.Club.Name,
			Date:        e.CreatedAt,
		})
	}

	var badges []models.Badge
	if err := db.Where("user_id = ?", userID).
		Order("earned_date DESC").
		Limit(PerSourceLimit).
		Find(&badges).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	for _, b := range badges {
		items = append(items, Item{
			Type:        TypeEarnedBadge,
			Description: "Earned " + b.Type.Label(),
			Date:        b.EarnedDate,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
	return items, nil
}

func membershipItem(m models.Membership) Item {
	if m.IsActive || m.LeaveDate == nil {
		return Item{Type: TypeJoinedClub, Description: "Joined " + m.Club.Name, Date: m.JoinDate}
	}
	return Item{Type: TypeLeftClub, Description: "Left " + m.Club.Name, Date: *m.LeaveDate}
}
