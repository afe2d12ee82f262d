package clubs

import (
	"context"
	"errors"
	"time"

	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/memberships"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"gorm.io/gorm"
)

var (
	ErrClubNotFound = errorx.New(errorx.NotFound, "Club not found")
	ErrNameTaken    = errorx.New(errorx.Conflict, "Club name already taken")
	ErrBadCategory  = errorx.New(errorx.BadRequest, "Unknown club category")
)

// Input carries the editable fields of a club. Empty fields are left
// unchanged on update.
type Input struct {
	Name        string
	Description string
	Category    models.Category
}

// Filter narrows a club listing
type Filter struct {
	Category models.Category
	Search   string
}

// Service implements club CRUD for both the public and the admin API
type Service struct {
	db          *gorm.DB
	memberships *memberships.Manager
	log         logger.Logger
}

func NewService(db *gorm.DB, memberships *memberships.Manager, log logger.Logger) *Service {
	return &Service{db: db, memberships: memberships, log: log}
}

// List returns clubs with their creator, ordered by name
func (s *Service) List(ctx context.Context, f Filter) ([]models.Club, error) {
	q := s.db.WithContext(ctx).Preload("Creator").Order("name ASC")
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		q = q.Where("name LIKE ?", "%"+f.Search+"%")
	}

	var clubs []models.Club
	if err := q.Find(&clubs).Error; err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return clubs, nil
}

// Get returns one club with its creator
func (s *Service) Get(ctx context.Context, id uint) (*models.Club, error) {
	var club models.Club
	err := s.db.WithContext(ctx).Preload("Creator").First(&club, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClubNotFound
	}
	if err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return &club, nil
}

// Create stores a new club. The creator becomes its first active member.
func (s *Service) Create(ctx context.Context, creatorID uint, in Input) (*models.Club, error) {
	if !in.Category.Valid() {
		return nil, ErrBadCategory
	}

	club := models.Club{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		CreatorID:   creatorID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&club).Error; err != nil {
			return err
		}
		return memberships.AddCreator(tx, &club, time.Now())
	})
	if err != nil {
		return nil, writeError(err)
	}

	s.log.Infof("User %d created club %d (%s)", creatorID, club.ID, club.Name)
	return s.Get(ctx, club.ID)
}

// Update applies the non-empty fields of in
func (s *Service) Update(ctx context.Context, id uint, in Input) (*models.Club, error) {
	club, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != "" {
		updates["name"] = in.Name
	}
	if in.Description != "" {
		updates["description"] = in.Description
	}
	if in.Category != "" {
		if !in.Category.Valid() {
			return nil, ErrBadCategory
		}
		updates["category"] = in.Category
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(club).Updates(updates).Error; err != nil {
			return nil, writeError(err)
		}
	}
	return s.Get(ctx, id)
}

// Delete removes a club. Its memberships and events are removed afterwards;
// failures there are logged and do not fail the delete.
func (s *Service) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Club{}, id)
	if res.Error != nil {
		return errorx.FromDB(res.Error, "")
	}
	if res.RowsAffected == 0 {
		return ErrClubNotFound
	}

	if err := s.memberships.PurgeClub(ctx, id); err != nil {
		s.log.Errorf("Cannot remove memberships of deleted club %d: %v", id, err)
	}
	if err := s.db.WithContext(ctx).Where("club_id = ?", id).Delete(&models.Event{}).Error; err != nil {
		s.log.Errorf("Cannot remove events of deleted club %d: %v", id, err)
	}

	s.log.Infof("Deleted club %d", id)
	return nil
}

// CanManage reports whether userID may edit the club: its creator or an admin
func CanManage(club *models.Club, userID uint, isAdmin bool) bool {
	return isAdmin || club.CreatorID == userID
}

func writeError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errorx.Wrap(errorx.Conflict, ErrNameTaken.Message, err)
	}
	var e errorx.Error
	if errors.As(err, &e) {
		return e
	}
	return errorx.FromDB(err, "")
}
