package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/auth"
	"github.com/mikepea/clubhub/pkg/clubhub/badges"
	"github.com/mikepea/clubhub/pkg/clubhub/clubs"
	"github.com/mikepea/clubhub/pkg/clubhub/database"
	"github.com/mikepea/clubhub/pkg/clubhub/events"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/memberships"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"github.com/mikepea/clubhub/pkg/clubhub/notify"
	"github.com/mikepea/clubhub/pkg/clubhub/streaks"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newHandler(db *gorm.DB) *Handler {
	awarder := badges.NewAwarder(db, logger.Nop())
	manager := memberships.NewManager(db, awarder, &notify.Recorder{}, logger.Nop())
	return NewHandler(
		db,
		clubs.NewService(db, manager, logger.Nop()),
		events.NewService(db, manager, awarder, &notify.Recorder{}, logger.Nop()),
		manager,
		streaks.NewTracker(db, awarder, logger.Nop()),
		logger.Nop(),
	)
}

// setupTestRouter mounts the admin routes behind a stub that acts as admin
func setupTestRouter(h *Handler, admin *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rg := r.Group("/admin", func(c *gin.Context) {
		c.Set(auth.ContextKeyUserID, admin.ID)
		c.Set(auth.ContextKeyRole, string(models.RoleAdmin))
		c.Next()
	})
	h.RegisterRoutes(rg)
	return r
}

func createTestUser(t *testing.T, db *gorm.DB, email, name string, role models.Role) *models.User {
	hashedPassword, _ := auth.HashPassword("password123")
	user := &models.User{
		Email:        email,
		StudentID:    "S-" + email,
		Name:         name,
		PasswordHash: hashedPassword,
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin@test.com", "Admin User", models.RoleAdmin)
	createTestUser(t, db, "user1@test.com", "User One", models.RoleUser)
	createTestUser(t, db, "user2@test.com", "User Two", models.RoleUser)
	r := setupTestRouter(newHandler(db), admin)

	w := do(r, "GET", "/admin/users", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var users []UserResponse
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(users) != 3 {
		t.Errorf("Expected 3 users, got %d", len(users))
	}

	w = do(r, "GET", "/admin/users?role=admin", nil)
	json.Unmarshal(w.Body.Bytes(), &users)
	if len(users) != 1 {
		t.Errorf("Expected 1 admin, got %d", len(users))
	}
}

func TestListUsersWithSearch(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin@test.com", "Admin User", models.RoleAdmin)
	createTestUser(t, db, "john@test.com", "John Doe", models.RoleUser)
	createTestUser(t, db, "jane@test.com", "Jane Doe", models.RoleUser)
	r := setupTestRouter(newHandler(db), admin)

	w := do(r, "GET", "/admin/users?q=john", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var users []UserResponse
	json.Unmarshal(w.Body.Bytes(), &users)
	if len(users) != 1 {
		t.Errorf("Expected 1 user matching search, got %d", len(users))
	}
}

func TestGetUser(t *testing.T) {
	db := setupTestDB(t)
	h := newHandler(db)
	admin := createTestUser(t, db, "admin@test.com", "Admin", models.RoleAdmin)
	user := createTestUser(t, db, "user@test.com", "Test User", models.RoleUser)
	r := setupTestRouter(h, admin)

	club, err := h.clubs.Create(context.Background(), user.ID, clubs.Input{
		Name: "Chess", Description: "Chess club", Category: models.CategoryAcademic,
	})
	if err != nil {
		t.Fatalf("Failed to create club: %v", err)
	}

	w := do(r, "GET", fmt.Sprintf("/admin/users/%d", user.ID), nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp UserResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Email != user.Email {
		t.Errorf("Expected email %s, got %s", user.Email, resp.Email)
	}
	if resp.ClubCount != 1 {
		t.Errorf("Expected membership of club %d to count, got %d clubs", club.ID, resp.ClubCount)
	}

	w = do(r, "GET", "/admin/users/999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCreateUser(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin@test.com", "Admin", models.RoleAdmin)
	r := setupTestRouter(newHandler(db), admin)

	body := CreateUserRequest{
		Name:      "New Student",
		Email:     "new@test.com",
		Password:  "password123",
		StudentID: "S9000",
		Major:     "Biology",
	}
	w := do(r, "POST", "/admin/users", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp UserResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Role != string(models.RoleUser) {
		t.Errorf("Expected default role user, got %s", resp.Role)
	}

	var created models.User
	db.First(&created, resp.ID)
	if !auth.CheckPassword("password123", created.PasswordHash) {
		t.Error("Expected password to be stored as a bcrypt hash")
	}

	var streak models.Streak
	if err := db.Where("user_id = ?", resp.ID).First(&streak).Error; err != nil {
		t.Errorf("Expected a streak row for the new user: %v", err)
	}

	w = do(r, "POST", "/admin/users", body)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate user, got %d", w.Code)
	}
}

func TestUpdateUser(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin@test.com", "Admin", models.RoleAdmin)
	user := createTestUser(t, db, "user@test.com", "Test User", models.RoleUser)
	r := setupTestRouter(newHandler(db), admin)

	newName := "Updated Name"
	newRole := "admin"
	w := do(r, "PUT", fmt.Sprintf("/admin/users/%d", user.ID), UpdateUserRequest{
		Name: &newName,
		Role: &newRole,
	})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp UserResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Name != newName {
		t.Errorf("Expected name %s, got %s", newName, resp.Name)
	}
	if resp.Role != newRole {
		t.Errorf("Expected role %s, got %s", newRole, resp.Role)
	}

	badRole := "owner"
	w = do(r, "PUT", fmt.Sprintf("/admin/users/%d", user.ID), UpdateUserRequest{Role: &badRole})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid role, got %d", w.Code)
	}

	taken := admin.Email
	w = do(r, "PUT", fmt.Sprintf("/admin/users/%d", user.ID), UpdateUserRequest{Email: &taken})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for taken email, got %d", w.Code)
	}
}

func TestUpdateUserCannotDemoteSelf(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin@test.com", "Admin", models.RoleAdmin)
	r := setupTestRouter(newHandler(db), admin)

	newRole := "user"
	w := do(r, "PUT", fmt.Sprintf("/admin/users/%d", admin.ID), UpdateUserRequest{Role: &newRole})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	db := setupTestDB(t)
	h := newHandler(db)
	ctx := context.Background()
	admin := createTestUser(t, db, "admin@test.com", "Admin", models.RoleAdmin)
	user := createTestUser(t, db, "user@test.com", "Test User", models.RoleUser)
	r := setupTestRouter(h, admin)

	club, err := h.clubs.Create(ctx, admin.ID, clubs.Input{
		Name: "Drama", Description: "Stage", Category: models.CategoryArts,
	})
	if err != nil {
		t.Fatalf("Failed to create club: %v", err)
	}
	if _, err := h.memberships.Join(ctx, user.ID, club.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := h.tracker.Record(ctx, user.ID); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	db.Create(&models.Badge{UserID: user.ID, Type: models.BadgeBronze, EarnedDate: time.Now()})

	w := do(r, "DELETE", fmt.Sprintf("/admin/users/%d", user.ID), nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&models.User{}).Where("id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected user to be deleted, but still exists")
	}
	db.Model(&models.Membership{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected memberships to be deleted, got %d", count)
	}
	db.Model(&models.Badge{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected badges to be deleted, got %d", count)
	}
	db.Model(&models.Streak{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected streak to be deleted, got %d", count)
	}

	var reloaded models.Club
	db.First(&reloaded, club.ID)
	if reloaded.HasMember(user.ID) {
		t.Error("Expected deleted user to be dropped from the club member list")
	}

	w = do(r, "DELETE", fmt.Sprintf("/admin/users/%d", user.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on second delete, got %d", w.Code)
	}
}

func TestDeleteUserCannotDeleteSelf(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin@test.com", "Admin", models.RoleAdmin)
	r := setupTestRouter(newHandler(db), admin)

	w := do(r, "DELETE", fmt.Sprintf("/admin/users/%d", admin.ID), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestManageClubsAndEvents(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin@test.com", "Admin", models.RoleAdmin)
	owner := createTestUser(t, db, "owner@test.com", "Owner", models.RoleUser)
	r := setupTestRouter(newHandler(db), admin)

	req := CreateClubRequest{CreatorID: owner.ID}
	req.Name = "Hiking"
	req.Description = "Trails"
	req.Category = "sports"
	w := do(r, "POST", "/admin/clubs", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var club clubs.ClubResponse
	json.Unmarshal(w.Body.Bytes(), &club)
	if club.CreatorID != owner.ID {
		t.Errorf("Expected creator %d, got %d", owner.ID, club.CreatorID)
	}

	w = do(r, "PUT", fmt.Sprintf("/admin/clubs/%d", club.ID), clubs.UpdateClubRequest{Name: "Hill Walking"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = do(r, "POST", "/admin/events", events.CreateEventRequest{
		Title: "Ridge walk", Description: "Long one", Date: "2030-05-01",
		Time: "08:00", Location: "Car park", ClubID: club.ID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var event events.EventResponse
	json.Unmarshal(w.Body.Bytes(), &event)
	if event.ClubName != "Hill Walking" {
		t.Errorf("Expected club name Hill Walking, got %s", event.ClubName)
	}

	w = do(r, "POST", "/admin/events", events.CreateEventRequest{
		Title: "Nowhere", Description: "x", Date: "2030-05-01",
		Time: "08:00", Location: "x", ClubID: 999,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown club, got %d", w.Code)
	}

	w = do(r, "PUT", fmt.Sprintf("/admin/events/%d", event.ID), events.UpdateEventRequest{Location: "Summit"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var list []events.EventResponse
	w = do(r, "GET", "/admin/events", nil)
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Location != "Summit" {
		t.Errorf("Expected one updated event, got %+v", list)
	}

	if w := do(r, "DELETE", fmt.Sprintf("/admin/events/%d", event.ID), nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 deleting event, got %d", w.Code)
	}
	if w := do(r, "DELETE", fmt.Sprintf("/admin/clubs/%d", club.ID), nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200 deleting club, got %d", w.Code)
	}

	var clubList []clubs.ClubResponse
	w = do(r, "GET", "/admin/clubs", nil)
	json.Unmarshal(w.Body.Bytes(), &clubList)
	if len(clubList) != 0 {
		t.Errorf("Expected no clubs left, got %d", len(clubList))
	}
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	h := newHandler(db)
	ctx := context.Background()
	admin := createTestUser(t, db, "admin@test.com", "Admin", models.RoleAdmin)
	user := createTestUser(t, db, "user@test.com", "User", models.RoleUser)
	createTestUser(t, db, "user2@test.com", "User Two", models.RoleUser)
	r := setupTestRouter(h, admin)

	club, err := h.clubs.Create(ctx, admin.ID, clubs.Input{
		Name: "Chess", Description: "Chess", Category: models.CategoryAcademic,
	})
	if err != nil {
		t.Fatalf("Failed to create club: %v", err)
	}
	if _, err := h.memberships.Join(ctx, user.ID, club.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	db.Create(&models.Event{Title: "Blitz", Date: time.Now(), ClubID: club.ID})

	w := do(r, "GET", "/admin/stats", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats StatsResponse
	json.Unmarshal(w.Body.Bytes(), &stats)

	if stats.TotalStudents != 2 {
		t.Errorf("Expected 2 students, got %d", stats.TotalStudents)
	}
	if stats.AdminUsers != 1 {
		t.Errorf("Expected 1 admin user, got %d", stats.AdminUsers)
	}
	if stats.TotalClubs != 1 {
		t.Errorf("Expected 1 club, got %d", stats.TotalClubs)
	}
	if stats.TotalEvents != 1 {
		t.Errorf("Expected 1 event, got %d", stats.TotalEvents)
	}
	// creator plus one member
	if stats.ActiveMemberships != 2 {
		t.Errorf("Expected 2 active memberships, got %d", stats.ActiveMemberships)
	}
}
