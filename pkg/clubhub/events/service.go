package events

import (
	"context"
	"errors"
	"time"

	"github.com/mikepea/clubhub/pkg/clubhub/badges"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/memberships"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"github.com/mikepea/clubhub/pkg/clubhub/notify"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound    = errorx.New(errorx.NotFound, "Event not found")
	ErrClubNotFound     = errorx.New(errorx.NotFound, "Club not found")
	ErrAlreadyAttending = errorx.New(errorx.Conflict, "Already attending this event")
	ErrNotAttending     = errorx.New(errorx.InvalidOperation, "Not attending this event")
)

// Input carries the editable fields of an event. Zero fields are left
// unchanged on update.
type Input struct {
	Title       string
	Description string
	Date        time.Time
	Time        string
	Location    string
	ClubID      uint
}

// Service implements event CRUD and attendance
type Service struct {
	db          *gorm.DB
	memberships *memberships.Manager
	awarder     *badges.Awarder
	notifier    notify.Notifier
	log         logger.Logger
	loc         *time.Location
	now         func() time.Time
}

func NewService(db *gorm.DB, memberships *memberships.Manager, awarder *badges.Awarder, notifier notify.Notifier, log logger.Logger) *Service {
	return &Service{
		db:          db,
		memberships: memberships,
		awarder:     awarder,
		notifier:    notifier,
		log:         log,
		loc:         time.Local,
		now:         time.Now,
	}
}

// WithLocation returns a copy of the service that computes "today" in loc
func (s *Service) WithLocation(loc *time.Location) *Service {
	cp := *s
	cp.loc = loc
	return &cp
}

// WithClock returns a copy of the service that reads the time from now()
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Service) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Club", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name", "creator_id")
	})
}

// List returns every event, soonest first
func (s *Service) List(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.query(ctx).Order("date ASC").Find(&events).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return events, nil
}

// Upcoming returns events dated today or later
func (s *Service) Upcoming(ctx context.Context) ([]models.Event, error) {
	y, m, d := s.now().In(s.loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, s.loc)

	var events []models.Event
	if err := s.query(ctx).Where("date >= ?", today).Order("date ASC").Find(&events).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return events, nil
}

// ForClub returns the events of one club
func (s *Service) ForClub(ctx context.Context, clubID uint) ([]models.Event, error) {
	var events []models.Event
	if err := s.query(ctx).Where("club_id = ?", clubID).Order("date ASC").Find(&events).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return events, nil
}

// Get returns one event with its club and attendees
func (s *Service) Get(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := s.query(ctx).Preload("Attendees").First(&event, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return &event, nil
}

// CanManage reports whether userID may create or edit events of clubID:
// an active member, the club creator or an admin
func (s *Service) CanManage(ctx context.Context, userID, clubID uint, isAdmin bool) (bool, error) {
	var club models.Club
	err := s.db.WithContext(ctx).Select("id", "creator_id").First(&club, clubID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrClubNotFound
	}
	if err != nil {
		return false, errorx.FromDB(err, "")
	}
	if isAdmin || club.CreatorID == userID {
		return true, nil
	}
	return s.memberships.IsActiveMember(ctx, userID, clubID)
}

// Create stores a new event and tells every active member of the club
func (s *Service) Create(ctx context.Context, in Input) (*models.Event, error) {
	event := models.Event{
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		Location:    in.Location,
		ClubID:      in.ClubID,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	s.log.Infof("Created event %d (%s) for club %d", event.ID, event.Title, event.ClubID)

	created, err := s.Get(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, created)
	return created, nil
}

func (s *Service) announce(ctx context.Context, event *models.Event) {
	members, err := s.memberships.ActiveMembers(ctx, event.ClubID)
	if err != nil {
		s.log.Warnf("Cannot load members of club %d to announce event %d: %v", event.ClubID, event.ID, err)
		return
	}
	for _, member := range members {
		notify.Send(ctx, s.notifier, s.log, notify.New(notify.KindNewEvent, member.Email, map[string]any{
			"RecipientName": member.Name,
			"EventTitle":    event.Title,
			"ClubName":      event.Club.Name,
		}))
	}
}

// Update applies the non-zero fields of in. The club of an event never changes.
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != "" {
		updates["title"] = in.Title
	}
	if in.Description != "" {
		updates["description"] = in.Description
	}
	if !in.Date.IsZero() {
		updates["date"] = in.Date
	}
	if in.Time != "" {
		updates["time"] = in.Time
	}
	if in.Location != "" {
		updates["location"] = in.Location
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Event{ID: event.ID}).Updates(updates).Error; err != nil {
			return nil, errorx.FromDB(err, "")
		}
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes an event
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Event{}, id)
	if res.Error != nil {
		return errorx.FromDB(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return ErrEventNotFound
	}
	s.log.Infof("Deleted event %d", id)
	return nil
}

// Attend adds userID to the attendees and evaluates the event-goer badge
func (s *Service) Attend(ctx context.Context, eventID, userID uint) ([]models.Badge, error) {
	event, user, err := s.attendance(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if attending(event, userID) {
		return nil, ErrAlreadyAttending
	}

	if err := s.db.WithContext(ctx).Model(event).Association("Attendees").Append(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errorx.Wrap(errorx.Conflict, ErrAlreadyAttending.Message, err)
		}
		return nil, errorx.FromDB(err, "")
	}
	s.log.Infof("User %d is attending event %d", userID, eventID)

	if s.awarder == nil {
		return nil, nil
	}
	awarded, err := s.awarder.EvaluateEventGoer(ctx, userID)
	if err != nil {
		s.log.Warnf("Cannot evaluate event-goer badge for user %d: %v", userID, err)
	}
	return awarded, nil
}

// Unattend removes userID from the attendees
func (s *Service) Unattend(ctx context.Context, eventID, userID uint) error {
	event, user, err := s.attendance(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !attending(event, userID) {
		return ErrNotAttending
	}
	if err := s.db.WithContext(ctx).Model(event).Association("Attendees").Delete(user); err != nil {
		return errorx.FromDB(err, "")
	}
	return nil
}

func (s *Service) attendance(ctx context.Context, eventID, userID uint) (*models.Event, *models.User, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, nil, errorx.FromDB(err, "User not found")
	}
	return event, &user, nil
}

func attending(event *models.Event, userID uint) bool {
	for _, a := range event.Attendees {
		if a.ID == userID {
			return true
		}
	}
	return false
}
