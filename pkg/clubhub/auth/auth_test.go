package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/badges"
	"github.com/mikepea/clubhub/pkg/clubhub/database"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"github.com/mikepea/clubhub/pkg/clubhub/notify"
	"github.com/mikepea/clubhub/pkg/clubhub/streaks"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

func setupTestRouter(db *gorm.DB) (*gin.Engine, *notify.Recorder) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	recorder := &notify.Recorder{}
	tracker := streaks.NewTracker(db, badges.NewAwarder(db, logger.Nop()), logger.Nop())
	handler := NewHandler(db, tracker, recorder, logger.Nop(), "http://clubs.test/")
	handler.RegisterRoutes(r.Group("/auth"))
	return r, recorder
}

func register(router *gin.Engine, body RegisterRequest) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/auth/register", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Name:      "Test User",
		Email:     "test@example.com",
		Password:  "password123",
		StudentID: "S1001",
		Major:     "Physics",
	}
}

func TestPasswordHashing(t *testing.T) {
	password := "testpassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == password {
		t.Error("Hash should not equal plain password")
	}

	if !CheckPassword(password, hash) {
		t.Error("CheckPassword should return true for correct password")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Error("CheckPassword should return false for incorrect password")
	}
}

func TestJWTToken(t *testing.T) {
	token, err := GenerateToken(1, "test@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.UserID != 1 {
		t.Errorf("Expected UserID 1, got %d", claims.UserID)
	}

	if claims.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", claims.Email)
	}

	if claims.Role != "user" {
		t.Errorf("Expected role user, got %s", claims.Role)
	}
}

func TestInvalidToken(t *testing.T) {
	_, err := ValidateToken("invalid-token")
	if err == nil {
		t.Error("Expected error for invalid token")
	}
}

func TestVerificationTokenIsNotASessionToken(t *testing.T) {
	token, err := GenerateVerificationToken(7, "verify@example.com")
	if err != nil {
		t.Fatalf("GenerateVerificationToken failed: %v", err)
	}

	if _, err := ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for verification token, got %v", err)
	}

	claims, err := ValidateVerificationToken(token)
	if err != nil {
		t.Fatalf("ValidateVerificationToken failed: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("Expected UserID 7, got %d", claims.UserID)
	}

	session, _ := GenerateToken(7, "verify@example.com", "user")
	if _, err := ValidateVerificationToken(session); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for session token, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	router, recorder := setupTestRouter(db)

	resp := register(router, validRegistration())

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Token == "" {
		t.Error("Expected token in response")
	}
	if response.User.StudentID != "S1001" {
		t.Errorf("Expected student ID S1001, got %s", response.User.StudentID)
	}
	if response.User.Role != "user" {
		t.Errorf("Expected role user, got %s", response.User.Role)
	}

	// A zeroed streak is created with the user
	var streak models.Streak
	if err := db.Where("user_id = ?", response.User.ID).First(&streak).Error; err != nil {
		t.Fatalf("Expected streak to exist: %v", err)
	}
	if streak.CurrentStreak != 0 || streak.LastActiveDate != nil {
		t.Errorf("Expected zeroed streak, got %+v", streak)
	}

	// A verification link is mailed out
	sent := recorder.OfKind(notify.KindVerification)
	if len(sent) != 1 {
		t.Fatalf("Expected 1 verification notification, got %d", len(sent))
	}
	url, _ := sent[0].Data["VerificationURL"].(string)
	if !strings.HasPrefix(url, "http://clubs.test/api/auth/verify/") {
		t.Errorf("Unexpected verification URL %q", url)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)

	register(router, validRegistration())

	body := validRegistration()
	body.StudentID = "S2002"
	resp := register(router, body)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", resp.Code)
	}
}

func TestRegisterDuplicateStudentID(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)

	register(router, validRegistration())

	body := validRegistration()
	body.Email = "other@example.com"
	resp := register(router, body)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", resp.Code)
	}
}

func TestRegisterMissingStudentID(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)

	body := validRegistration()
	body.StudentID = ""
	resp := register(router, body)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)

	register(router, validRegistration())

	loginBody := LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	}
	jsonBody, _ := json.Marshal(loginBody)
	req, _ := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response LoginResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Token == "" {
		t.Error("Expected token in response")
	}

	// First login starts the streak
	if response.Streak.CurrentStreak != 1 {
		t.Errorf("Expected current streak 1, got %d", response.Streak.CurrentStreak)
	}
	if response.Streak.TotalActiveDays != 1 {
		t.Errorf("Expected 1 active day, got %d", response.Streak.TotalActiveDays)
	}

	// Logging in again the same day changes nothing
	req, _ = http.NewRequest("POST", "/auth/login", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Streak.TotalActiveDays != 1 {
		t.Errorf("Expected 1 active day after second login, got %d", response.Streak.TotalActiveDays)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)

	register(router, validRegistration())

	loginBody := LoginRequest{
		Email:    "test@example.com",
		Password: "wrongpassword",
	}
	jsonBody, _ := json.Marshal(loginBody)
	req, _ := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestVerifyEmail(t *testing.T) {
	db := setupTestDB(t)
	router, recorder := setupTestRouter(db)

	register(router, validRegistration())
	url, _ := recorder.OfKind(notify.KindVerification)[0].Data["VerificationURL"].(string)
	path := strings.TrimPrefix(url, "http://clubs.test/api")

	req, _ := http.NewRequest("GET", path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var user models.User
	db.Where("email = ?", "test@example.com").First(&user)
	if !user.EmailVerified {
		t.Error("Expected email to be verified")
	}
}

func TestVerifyEmailInvalidToken(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/auth/verify/not-a-token", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestMe(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)

	resp := register(router, validRegistration())

	var authResponse AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &authResponse)

	req, _ := http.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+authResponse.Token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var userResponse UserResponse
	json.Unmarshal(resp.Body.Bytes(), &userResponse)

	if userResponse.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", userResponse.Email)
	}
}

func TestMeWithoutAuth(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/auth/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AuthMiddleware(), RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	userToken, _ := GenerateToken(1, "user@example.com", string(models.RoleUser))
	adminToken, _ := GenerateToken(2, "admin@example.com", string(models.RoleAdmin))

	for token, want := range map[string]int{userToken: http.StatusForbidden, adminToken: http.StatusOK} {
		req, _ := http.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Errorf("Expected status %d, got %d", want, resp.Code)
		}
	}
}
