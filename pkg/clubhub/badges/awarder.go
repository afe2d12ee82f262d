package badges

import (
	"context"
	"errors"
	"time"

	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"gorm.io/gorm"
)

// Awarder grants badges at most once per (user, type).
// The existence check keeps the common path cheap; the unique index on
// badges is what actually decides a race between two writers.
type Awarder struct {
	db  *gorm.DB
	log logger.Logger
	now func() time.Time
}

func NewAwarder(db *gorm.DB, log logger.Logger) *Awarder {
	return &Awarder{db: db, log: log, now: time.Now}
}

// WithClock returns a copy of the awarder that stamps badges with now()
func (a *Awarder) WithClock(now func() time.Time) *Awarder {
	cp := *a
	cp.now = now
	return &cp
}

// Award grants a single badge. It returns a Conflict error when the user
// already holds it, including when a concurrent writer got there first.
func (a *Awarder) Award(ctx context.Context, userID uint, badgeType models.BadgeType) (*models.Badge, error) {
	if !badgeType.Valid() {
		return nil, errorx.New(errorx.BadRequest, "Unknown badge type")
	}

	var existing models.Badge
	err := a.db.WithContext(ctx).Where("user_id = ? AND type = ?", userID, badgeType).First(&existing).Error
	if err == nil {
		return nil, errorx.New(errorx.Conflict, "Badge already awarded")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.FromDB(err, "")
	}

	return a.insert(ctx, userID, badgeType)
}

func (a *Awarder) insert(ctx context.Context, userID uint, badgeType models.BadgeType) (*models.Badge, error) {
	badge := models.Badge{
		UserID:     userID,
		Type:       badgeType,
		EarnedDate: a.now(),
	}
	if err := a.db.WithContext(ctx).Create(&badge).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return &badge, nil
}

// grant awards every type the user does not hold yet and returns the new ones
func (a *Awarder) grant(ctx context.Context, userID uint, types []models.BadgeType) ([]models.Badge, error) {
	var awarded []models.Badge
	for _, t := range types {
		badge, err := a.Award(ctx, userID, t)
		if err != nil {
			if errors.Is(err, errorx.ErrConflict) {
				continue
			}
			return awarded, err
		}
		a.log.Infof("Awarded %s badge to user %d", t, userID)
		awarded = append(awarded, *badge)
	}
	return awarded, nil
}

// EvaluateStreak grants every streak badge the current streak qualifies for
func (a *Awarder) EvaluateStreak(ctx context.Context, userID uint, currentStreak int) ([]models.Badge, error) {
	return a.grant(ctx, userID, Qualifying(StreakRules, currentStreak))
}

// EvaluateClubJoiner grants club-joiner once the user has enough active memberships
func (a *Awarder) EvaluateClubJoiner(ctx context.Context, userID uint) ([]models.Badge, error) {
	var count int64
	if err := a.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return a.grant(ctx, userID, Qualifying([]Rule{ClubJoinerRule}, int(count)))
}

// EvaluateEventGoer grants event-goer once the user attends enough events
func (a *Awarder) EvaluateEventGoer(ctx context.Context, userID uint) ([]models.Badge, error) {
	count, err := CountAttendedEvents(ctx, a.db, userID)
	if err != nil {
		return nil, err
	}
	return a.grant(ctx, userID, Qualifying([]Rule{EventGoerRule}, int(count)))
}

// ListForUser returns the user's badges, newest first
func (a *Awarder) ListForUser(ctx context.Context, userID uint) ([]models.Badge, error) {
	var badges []models.Badge
	if err := a.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("earned_date DESC").Find(&badges).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return badges, nil
}

// CountAttendedEvents counts live events that list userID as an attendee
func CountAttendedEvents(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.Event{}).
		Joins("JOIN "+models.EventAttendeesTable+" ON "+models.EventAttendeesTable+".event_id = events.id").
		Where(models.EventAttendeesTable+".user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, errorx.FromDB(err, "")
	}
	return count, nil
}
