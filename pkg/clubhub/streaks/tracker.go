package streaks

import (
	"context"
	"errors"
	"time"

	"github.com/mikepea/clubhub/pkg/clubhub/badges"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"gorm.io/gorm"
)

// Step describes what a qualifying activity did to a streak
type Step int

const (
	// StepSameDay means the day was already counted
	StepSameDay Step = iota
	// StepFirst is the very first qualifying activity
	StepFirst
	// StepContinued extends the streak by one day
	StepContinued
	// StepReset starts over after a gap of two or more days
	StepReset
)

func (s Step) String() string {
	switch s {
	case StepSameDay:
		return "same-day"
	case StepFirst:
		return "first"
	case StepContinued:
		return "continued"
	case StepReset:
		return "reset"
	}
	return "unknown"
}

// maxAttempts bounds the compare-and-swap retries when concurrent
// activities for the same user race each other
const maxAttempts = 3

var errStale = errors.New("streak changed concurrently")

// DaysBetween counts whole calendar days between a and b in loc.
// Time of day is ignored, so 23:59 and 00:01 the next day are one day apart.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	// Dates are rebuilt in UTC so DST transitions do not skew the division
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(db.Sub(da).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// Advance applies one qualifying activity at now to s
func Advance(s models.Streak, now time.Time, loc *time.Location) (models.Streak, Step) {
	if s.LastActiveDate == nil {
		s.CurrentStreak = 1
		s.TotalActiveDays++
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
		s.LastActiveDate = &now
		return s, StepFirst
	}

	var step Step
	switch diff := DaysBetween(*s.LastActiveDate, now, loc); {
	case diff == 0:
		return s, StepSameDay
	case diff == 1:
		s.CurrentStreak++
		s.TotalActiveDays++
		step = StepContinued
	default:
		s.CurrentStreak = 1
		s.TotalActiveDays++
		step = StepReset
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastActiveDate = &now
	return s, step
}

// Result is the outcome of recording one activity
type Result struct {
	Streak  models.Streak
	Step    Step
	Awarded []models.Badge
}

// Tracker maintains one streak per user
type Tracker struct {
	db      *gorm.DB
	awarder *badges.Awarder
	log     logger.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewTracker(db *gorm.DB, awarder *badges.Awarder, log logger.Logger) *Tracker {
	return &Tracker{db: db, awarder: awarder, log: log, loc: time.Local, now: time.Now}
}

// WithClock returns a copy of the tracker that reads the time from now()
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	cp := *t
	cp.now = now
	return &cp
}

// WithLocation returns a copy of the tracker that draws day boundaries in loc
func (t *Tracker) WithLocation(loc *time.Location) *Tracker {
	cp := *t
	cp.loc = loc
	return &cp
}

// Init creates the zeroed streak row for a new user. An existing row is left alone.
func (t *Tracker) Init(ctx context.Context, tx *gorm.DB, userID uint) error {
	if tx == nil {
		tx = t.db
	}
	err := tx.WithContext(ctx).Create(&models.Streak{UserID: userID}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return errorx.FromDB(err, "")
	}
	return nil
}

// Get returns the user's streak, or a zero streak if none exists yet
func (t *Tracker) Get(ctx context.Context, userID uint) (*models.Streak, error) {
	var streak models.Streak
	err := t.db.WithContext(ctx).Where("user_id = ?", userID).First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Streak{UserID: userID}, nil
	}
	if err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return &streak, nil
}

// Record applies a qualifying activity (a login) for userID.
// Streak badges are evaluated only when the streak grows; a badge failure is
// logged and never undoes the streak update.
func (t *Tracker) Record(ctx context.Context, userID uint) (*Result, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := t.record(ctx, userID)
		if errors.Is(err, errStale) {
			t.log.Debugf("Streak of user %d changed concurrently, retrying", userID)
			continue
		}
		if err != nil {
			return nil, err
		}

		if result.Step == StepContinued && t.awarder != nil {
			awarded, err := t.awarder.EvaluateStreak(ctx, userID, result.Streak.CurrentStreak)
			if err != nil {
				t.log.Warnf("Cannot evaluate streak badges for user %d: %v", userID, err)
			}
			result.Awarded = awarded
		}
		return result, nil
	}
	return nil, errorx.New(errorx.Conflict, "Streak is being updated concurrently")
}

func (t *Tracker) record(ctx context.Context, userID uint) (*Result, error) {
	db := t.db.WithContext(ctx)

	current, err := t.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, step := Advance(*current, t.now(), t.loc)
	if step == StepSameDay {
		return &Result{Streak: *current, Step: step}, nil
	}

	res := db.Model(&models.Streak{}).
		Where("id = ? AND version = ?", current.ID, current.Version).
		Updates(map[string]interface{}{
			"current_streak":    next.CurrentStreak,
			"longest_streak":    next.LongestStreak,
			"total_active_days": next.TotalActiveDays,
			"last_active_date":  next.LastActiveDate,
			"version":           gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, errorx.FromDB(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return nil, errStale
	}
	next.Version++

	t.log.Debugf("Streak of user %d: %s, current=%d longest=%d total=%d",
		userID, step, next.CurrentStreak, next.LongestStreak, next.TotalActiveDays)
	return &Result{Streak: next, Step: step}, nil
}

// load fetches the streak row, creating it when the user has none yet
func (t *Tracker) load(ctx context.Context, userID uint) (*models.Streak, error) {
	db := t.db.WithContext(ctx)

	var streak models.Streak
	err := db.Where("user_id = ?", userID).First(&streak).Error
	if err == nil {
		return &streak, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorx.FromDB(err, "")
	}

	streak = models.Streak{UserID: userID}
	if err := db.Create(&streak).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the creation race; the winner's row is authoritative
			return nil, errStale
		}
		return nil, errorx.FromDB(err, "")
	}
	return &streak, nil
}
