package activity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mikepea/clubhub/pkg/clubhub/database"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	user := models.User{Email: email, StudentID: email, Name: "Test User"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestClub(t *testing.T, db *gorm.DB, name string, creator models.User) models.Club {
	club := models.Club{Name: name, Description: "d", Category: models.CategorySports, CreatorID: creator.ID}
	require.NoError(t, db.Create(&club).Error)
	return club
}

var base = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func TestForUserMergesNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "feed@example.com")
	club := createTestClub(t, db, "Tennis", user)

	require.NoError(t, db.Create(&models.Membership{
		UserID: user.ID, ClubID: club.ID, JoinDate: base, IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&models.Badge{
		UserID: user.ID, Type: models.BadgeBronze, EarnedDate: base.Add(48 * time.Hour),
	}).Error)

	items, err := NewAggregator(db).ForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, TypeEarnedBadge, items[0].Type)
	require.Equal(t, "Earned Bronze Badge", items[0].Description)
	require.Equal(t, TypeJoinedClub, items[1].Type)
	require.Equal(t, "Joined Tennis", items[1].Description)
}

func TestForUserDescribesLeftClubsAndEvents(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "feed@example.com")
	club := createTestClub(t, db, "Karate", user)

	left := base.Add(time.Hour)
	require.NoError(t, db.Create(&models.Membership{
		UserID: user.ID, ClubID: club.ID, JoinDate: base, LeaveDate: &left, IsActive: false,
	}).Error)

	event := models.Event{Title: "Grading", Description: "d", Date: base, Time: "10:00", Location: "Dojo", ClubID: club.ID}
	require.NoError(t, db.Create(&event).Error)
	require.NoError(t, db.Model(&event).Association("Attendees").Append(&user))

	items, err := NewAggregator(db).ForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	descriptions := []string{items[0].Description, items[1].Description}
	require.Contains(t, descriptions, "Left Karate")
	require.Contains(t, descriptions, "Attended Grading by Karate")
}

func TestForUserCapsEachSource(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "busy@example.com")

	for i := 0; i < 12; i++ {
		club := createTestClub(t, db, fmt.Sprintf("Club %d", i), user)
		require.NoError(t, db.Create(&models.Membership{
			UserID: user.ID, ClubID: club.ID, JoinDate: base.Add(time.Duration(i) * time.Hour), IsActive: true,
		}).Error)
	}
	for _, bt := range []models.BadgeType{models.BadgeBronze, models.BadgeSilver} {
		require.NoError(t, db.Create(&models.Badge{UserID: user.ID, Type: bt, EarnedDate: base.Add(-time.Hour)}).Error)
	}

	items, err := NewAggregator(db).ForUser(context.Background(), user.ID)
	require.NoError(t, err)
	// 10 memberships plus both badges, even though the badges are the oldest entries
	require.Len(t, items, PerSourceLimit+2)

	for i := 1; i < len(items); i++ {
		require.False(t, items[i].Date.After(items[i-1].Date), "feed must be sorted newest first")
	}
}

func TestForUserEmpty(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "quiet@example.com")

	items, err := NewAggregator(db).ForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestForUserPicksMostRecentTransitionsByShownDate(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "mover@example.com")

	var oldest models.Membership
	for i := 0; i < 11; i++ {
		club := createTestClub(t, db, fmt.Sprintf("Club %d", i), user)
		m := models.Membership{
			UserID: user.ID, ClubID: club.ID, JoinDate: base.Add(time.Duration(i) * 24 * time.Hour), IsActive: true,
		}
		require.NoError(t, db.Create(&m).Error)
		if i == 0 {
			oldest = m
		}
	}
	// touched last, but its join date is still the oldest
	require.NoError(t, db.Model(&oldest).Update("updated_at", base.Add(365*24*time.Hour)).Error)

	// a membership that ended recently counts by its leave date
	left := base.Add(30 * 24 * time.Hour)
	club := createTestClub(t, db, "Archery", user)
	require.NoError(t, db.Create(&models.Membership{
		UserID: user.ID, ClubID: club.ID, JoinDate: base.Add(-24 * time.Hour), LeaveDate: &left, IsActive: false,
	}).Error)

	items, err := NewAggregator(db).ForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, items, PerSourceLimit)

	require.Equal(t, "Left Archery", items[0].Description)
	require.True(t, items[0].Date.Equal(left))
	for _, item := range items {
		require.NotEqual(t, "Joined Club 0", item.Description)
		require.NotEqual(t, "Joined Club 1", item.Description)
	}
}
