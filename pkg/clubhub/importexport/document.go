package importexport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mikepea/clubhub/pkg/clubhub/clubs"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/events"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"gorm.io/gorm"
)

// Document is the portable form of clubs and their events
type Document struct {
	Clubs []ClubRecord `json:"clubs" toml:"clubs" binding:"required,dive"`
}

// ClubRecord is one club in a Document. CreatorEmail falls back to the
// importing user when empty or unknown.
type ClubRecord struct {
	Name         string        `json:"name" toml:"name" binding:"required"`
	Description  string        `json:"description" toml:"description"`
	Category     string        `json:"category" toml:"category" binding:"required"`
	CreatorEmail string        `json:"creator_email,omitempty" toml:"creator_email"`
	Events       []EventRecord `json:"events,omitempty" toml:"events"`
}

// EventRecord is one event of a ClubRecord
type EventRecord struct {
	Title       string `json:"title" toml:"title"`
	Description string `json:"description" toml:"description"`
	Date        string `json:"date" toml:"date"`
	Time        string `json:"time" toml:"time"`
	Location    string `json:"location" toml:"location"`
}

// Result reports what an import did
type Result struct {
	ClubsCreated  int      `json:"clubs_created"`
	ClubsExisting int      `json:"clubs_existing"`
	EventsCreated int      `json:"events_created"`
	Skipped       int      `json:"skipped"`
	Errors        []string `json:"errors,omitempty"`
}

func (r *Result) skip(format string, args ...interface{}) {
	r.Skipped++
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Loader moves Documents in and out of the store
type Loader struct {
	db    *gorm.DB
	clubs *clubs.Service
	log   logger.Logger
}

func NewLoader(db *gorm.DB, clubs *clubs.Service, log logger.Logger) *Loader {
	return &Loader{db: db, clubs: clubs, log: log}
}

// Load imports doc. Clubs are matched by name, events by club, title and
// date, so loading the same document twice creates nothing new.
// Imported events are not announced to members.
func (l *Loader) Load(ctx context.Context, doc Document, defaultCreatorID uint) (*Result, error) {
	result := &Result{}

	for i, rec := range doc.Clubs {
		club, created, err := l.club(ctx, rec, defaultCreatorID)
		if err != nil {
			result.skip("club %d (%s): %s", i, rec.Name, message(err))
			continue
		}
		if created {
			result.ClubsCreated++
		} else {
			result.ClubsExisting++
		}

		for j, ev := range rec.Events {
			ok, err := l.event(ctx, club.ID, ev)
			if err != nil {
				result.skip("club %d (%s) event %d: %s", i, rec.Name, j, message(err))
				continue
			}
			if ok {
				result.EventsCreated++
			}
		}
	}

	l.log.Infof("Import finished: %d clubs created, %d existing, %d events created, %d skipped",
		result.ClubsCreated, result.ClubsExisting, result.EventsCreated, result.Skipped)
	return result, nil
}

// LoadFile reads a Document from path and loads it. Files ending in .toml
// are read as TOML, anything else as JSON.
func (l *Loader) LoadFile(ctx context.Context, path string, defaultCreatorID uint) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return l.Load(ctx, doc, defaultCreatorID)
}

func (l *Loader) club(ctx context.Context, rec ClubRecord, defaultCreatorID uint) (*models.Club, bool, error) {
	var existing models.Club
	err := l.db.WithContext(ctx).Where("name = ?", rec.Name).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	creatorID := defaultCreatorID
	if rec.CreatorEmail != "" {
		var creator models.User
		if err := l.db.WithContext(ctx).Select("id").Where("email = ?", rec.CreatorEmail).First(&creator).Error; err == nil {
			creatorID = creator.ID
		} else {
			l.log.Warnf("Unknown creator %s for club %s, using user %d", rec.CreatorEmail, rec.Name, defaultCreatorID)
		}
	}

	club, err := l.clubs.Create(ctx, creatorID, clubs.Input{
		Name:        rec.Name,
		Description: rec.Description,
		Category:    models.Category(rec.Category),
	})
	if err != nil {
		return nil, false, err
	}
	return club, true, nil
}

func (l *Loader) event(ctx context.Context, clubID uint, rec EventRecord) (bool, error) {
	if rec.Title == "" {
		return false, errors.New("missing title")
	}
	date, ok := events.ParseDate(rec.Date)
	if !ok {
		return false, errors.New("invalid date")
	}

	var count int64
	if err := l.db.WithContext(ctx).Model(&models.Event{}).
		Where("club_id = ? AND title = ? AND date = ?", clubID, rec.Title, date).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	event := models.Event{
		Title:       rec.Title,
		Description: rec.Description,
		Date:        date,
		Time:        rec.Time,
		Location:    rec.Location,
		ClubID:      clubID,
	}
	if err := l.db.WithContext(ctx).Create(&event).Error; err != nil {
		return false, err
	}
	return true, nil
}

// Export returns every club with its events, ordered by name
func (l *Loader) Export(ctx context.Context) (*Document, error) {
	var list []models.Club
	if err := l.db.WithContext(ctx).Preload("Creator").Order("name ASC").Find(&list).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}

	var all []models.Event
	if err := l.db.WithContext(ctx).Order("date ASC").Find(&all).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	byClub := make(map[uint][]EventRecord)
	for _, e := range all {
		byClub[e.ClubID] = append(byClub[e.ClubID], EventRecord{
			Title:       e.Title,
			Description: e.Description,
			Date:        e.Date.Format(time.RFC3339),
			Time:        e.Time,
			Location:    e.Location,
		})
	}

	doc := &Document{Clubs: make([]ClubRecord, len(list))}
	for i, club := range list {
		doc.Clubs[i] = ClubRecord{
			Name:         club.Name,
			Description:  club.Description,
			Category:     string(club.Category),
			CreatorEmail: club.Creator.Email,
			Events:       byClub[club.ID],
		}
	}
	return doc, nil
}

func message(err error) string {
	var e errorx.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
