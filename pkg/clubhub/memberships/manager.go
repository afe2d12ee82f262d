package memberships

import (
	"context"
	"errors"
	"time"

	"github.com/mikepea/clubhub/pkg/clubhub/badges"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"github.com/mikepea/clubhub/pkg/clubhub/notify"
	"gorm.io/gorm"
)

var (
	errClubNotFound  = errorx.New(errorx.NotFound, "Club not found")
	errUserNotFound  = errorx.New(errorx.NotFound, "User not found")
	errAlreadyMember = errorx.New(errorx.Conflict, "Already a member of this club")
	errCreatorLeave  = errorx.New(errorx.Forbidden, "Club creator cannot leave the club")
	errNotMember     = errorx.New(errorx.InvalidOperation, "Not an active member of this club")
)

// Manager owns membership transitions and keeps the club member list in step
type Manager struct {
	db       *gorm.DB
	awarder  *badges.Awarder
	notifier notify.Notifier
	log      logger.Logger
	now      func() time.Time
}

func NewManager(db *gorm.DB, awarder *badges.Awarder, notifier notify.Notifier, log logger.Logger) *Manager {
	return &Manager{db: db, awarder: awarder, notifier: notifier, log: log, now: time.Now}
}

// WithClock returns a copy of the manager that reads the time from now()
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

// JoinResult is the outcome of a successful join
type JoinResult struct {
	Membership  models.Membership
	Reactivated bool
	Awarded     []models.Badge
}

// Join makes userID an active member of clubID. A previous inactive
// membership is reactivated in place instead of adding a new row.
func (m *Manager) Join(ctx context.Context, userID, clubID uint) (*JoinResult, error) {
	var (
		user   models.User
		club   models.Club
		result JoinResult
	)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadClub(tx, clubID, &club); err != nil {
			return err
		}
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errUserNotFound
			}
			return errorx.FromDB(err, "")
		}

		var active int64
		if err := tx.Model(&models.Membership{}).
			Where("user_id = ? AND club_id = ? AND is_active = ?", userID, clubID, true).
			Count(&active).Error; err != nil {
			return errorx.FromDB(err, "")
		}
		if active > 0 {
			return errAlreadyMember
		}

		now := m.now()
		var previous models.Membership
		err := tx.Where("user_id = ? AND club_id = ? AND is_active = ?", userID, clubID, false).
			Order("updated_at DESC").First(&previous).Error
		switch {
		case err == nil:
			if err := tx.Model(&previous).Updates(map[string]interface{}{
				"is_active":  true,
				"join_date":  now,
				"leave_date": nil,
			}).Error; err != nil {
				return membershipWriteError(err)
			}
			previous.IsActive = true
			previous.JoinDate = now
			previous.LeaveDate = nil
			result.Membership = previous
			result.Reactivated = true
		case errors.Is(err, gorm.ErrRecordNotFound):
			membership := models.Membership{UserID: userID, ClubID: clubID, JoinDate: now, IsActive: true}
			if err := tx.Create(&membership).Error; err != nil {
				return membershipWriteError(err)
			}
			result.Membership = membership
		default:
			return errorx.FromDB(err, "")
		}

		if club.AddMember(userID) {
			if err := tx.Model(&club).Update("members", club.Members).Error; err != nil {
				return errorx.FromDB(err, "")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Infof("User %d joined club %d (reactivated=%t)", userID, clubID, result.Reactivated)

	notify.Send(ctx, m.notifier, m.log, notify.New(notify.KindMembershipJoined, club.Creator.Email, map[string]any{
		"RecipientName": club.Creator.Name,
		"MemberName":    user.Name,
		"ClubName":      club.Name,
	}))

	if m.awarder != nil {
		awarded, err := m.awarder.EvaluateClubJoiner(ctx, userID)
		if err != nil {
			m.log.Warnf("Cannot evaluate club-joiner badge for user %d: %v", userID, err)
		}
		result.Awarded = awarded
	}

	result.Membership.Club = club
	return &result, nil
}

// Leave ends userID's active membership of clubID. The creator can never leave.
func (m *Manager) Leave(ctx context.Context, userID, clubID uint) (*models.Membership, error) {
	var (
		club       models.Club
		user       models.User
		membership models.Membership
	)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadClub(tx, clubID, &club); err != nil {
			return err
		}
		if club.CreatorID == userID {
			return errCreatorLeave
		}

		err := tx.Where("user_id = ? AND club_id = ? AND is_active = ?", userID, clubID, true).First(&membership).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNotMember
		}
		if err != nil {
			return errorx.FromDB(err, "")
		}

		now := m.now()
		if err := tx.Model(&membership).Updates(map[string]interface{}{
			"is_active":  false,
			"leave_date": now,
		}).Error; err != nil {
			return errorx.FromDB(err, "")
		}
		membership.IsActive = false
		membership.LeaveDate = &now

		if club.RemoveMember(userID) {
			if err := tx.Model(&club).Update("members", club.Members).Error; err != nil {
				return errorx.FromDB(err, "")
			}
		}

		if err := tx.First(&user, userID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.FromDB(err, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Infof("User %d left club %d", userID, clubID)

	notify.Send(ctx, m.notifier, m.log, notify.New(notify.KindMembershipLeft, club.Creator.Email, map[string]any{
		"RecipientName": club.Creator.Name,
		"MemberName":    user.Name,
		"ClubName":      club.Name,
	}))

	return &membership, nil
}

// ListActiveForUser returns the user's active memberships with a short club projection
func (m *Manager) ListActiveForUser(ctx context.Context, userID uint) ([]models.Membership, error) {
	var memberships []models.Membership
	err := m.db.WithContext(ctx).
		Preload("Club", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "description", "category", "creator_id")
		}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("join_date DESC").
		Find(&memberships).Error
	if err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return memberships, nil
}

// ActiveMembers returns the users holding an active membership of clubID
func (m *Manager) ActiveMembers(ctx context.Context, clubID uint) ([]models.User, error) {
	var users []models.User
	err := m.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.user_id = users.id").
		Where("memberships.club_id = ? AND memberships.is_active = ?", clubID, true).
		Order("memberships.join_date ASC").
		Find(&users).Error
	if err != nil {
		return nil, errorx.FromDB(err, "")
	}
	return users, nil
}

// IsActiveMember reports whether userID currently belongs to clubID
func (m *Manager) IsActiveMember(ctx context.Context, userID, clubID uint) (bool, error) {
	var count int64
	err := m.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND club_id = ? AND is_active = ?", userID, clubID, true).
		Count(&count).Error
	if err != nil {
		return false, errorx.FromDB(err, "")
	}
	return count > 0, nil
}

// AddCreator records the creator of a freshly created club as its first member.
// It runs inside the caller's transaction.
func AddCreator(tx *gorm.DB, club *models.Club, now time.Time) error {
	membership := models.Membership{UserID: club.CreatorID, ClubID: club.ID, JoinDate: now, IsActive: true}
	if err := tx.Create(&membership).Error; err != nil {
		return membershipWriteError(err)
	}
	if club.AddMember(club.CreatorID) {
		return tx.Model(club).Update("members", club.Members).Error
	}
	return nil
}

// PurgeClub deletes every membership of a deleted club
func (m *Manager) PurgeClub(ctx context.Context, clubID uint) error {
	res := m.db.WithContext(ctx).Where("club_id = ?", clubID).Delete(&models.Membership{})
	if res.Error != nil {
		return errorx.FromDB(res.Error, "")
	}
	m.log.Infof("Removed %d memberships of deleted club %d", res.RowsAffected, clubID)
	return nil
}

// PurgeUser deletes every membership of a deleted user and drops them from
// the member list of each club they belonged to
func (m *Manager) PurgeUser(ctx context.Context, userID uint) error {
	db := m.db.WithContext(ctx)

	var clubIDs []uint
	if err := db.Model(&models.Membership{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("club_id", &clubIDs).Error; err != nil {
		return errorx.FromDB(err, "")
	}

	res := db.Where("user_id = ?", userID).Delete(&models.Membership{})
	if res.Error != nil {
		return errorx.FromDB(res.Error, "")
	}

	var failed error
	for _, clubID := range clubIDs {
		var club models.Club
		if err := db.First(&club, clubID).Error; err != nil {
			failed = errors.Join(failed, err)
			continue
		}
		if club.RemoveMember(userID) {
			if err := db.Model(&club).Update("members", club.Members).Error; err != nil {
				failed = errors.Join(failed, err)
			}
		}
	}
	if failed != nil {
		return errorx.Wrap(errorx.Internal, "Cannot update club member lists", failed)
	}

	m.log.Infof("Removed %d memberships of deleted user %d", res.RowsAffected, userID)
	return nil
}

func loadClub(tx *gorm.DB, clubID uint, club *models.Club) error {
	err := tx.Preload("Creator").First(club, clubID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errClubNotFound
	}
	return errorx.FromDB(err, "")
}

// membershipWriteError reports a lost race on the active-membership index as
// an ordinary duplicate join
func membershipWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errorx.Wrap(errorx.Conflict, errAlreadyMember.Message, err)
	}
	return errorx.FromDB(err, "")
}
