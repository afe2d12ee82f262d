package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"github.com/mikepea/clubhub/pkg/clubhub/notify"
	"github.com/mikepea/clubhub/pkg/clubhub/streaks"
	"gorm.io/gorm"
)

// Handler handles authentication requests
type Handler struct {
	db       *gorm.DB
	tracker  *streaks.Tracker
	notifier notify.Notifier
	log      logger.Logger
	baseURL  string
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, tracker *streaks.Tracker, notifier notify.Notifier, log logger.Logger, baseURL string) *Handler {
	return &Handler{
		db:       db,
		tracker:  tracker,
		notifier: notifier,
		log:      log,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	StudentID string `json:"student_id" binding:"required"`
	Major     string `json:"major"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// LoginResponse adds the streak state to the authentication response
type LoginResponse struct {
	AuthResponse
	Streak        StreakResponse `json:"streak"`
	AwardedBadges []models.Badge `json:"awarded_badges,omitempty"`
}

// StreakResponse represents a streak in API responses
type StreakResponse struct {
	CurrentStreak   int `json:"current_streak"`
	LongestStreak   int `json:"longest_streak"`
	TotalActiveDays int `json:"total_active_days"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID            uint   `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	StudentID     string `json:"student_id"`
	Major         string `json:"major"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
}

// NewUserResponse projects a user for API responses
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		StudentID:     user.StudentID,
		Major:         user.Major,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a student account, start its streak and send a verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Email or student ID already registered"
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	// Check for existing email or student ID
	var existingUser models.User
	if err := h.db.WithContext(ctx).Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err := h.db.WithContext(ctx).Where("student_id = ?", req.StudentID).First(&existingUser).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Student ID already registered"})
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		Email:        req.Email,
		StudentID:    req.StudentID,
		PasswordHash: hashedPassword,
		Name:         req.Name,
		Major:        req.Major,
		Role:         models.RoleUser,
	}

	// Create the user and a zeroed streak together
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return h.tracker.Init(ctx, tx, user.ID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email or student ID already registered"})
			return
		}
		h.log.Errorf("Cannot create user %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.sendVerification(c, user)

	token, err := GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Token: token,
		User:  NewUserResponse(user),
	})
}

func (h *Handler) sendVerification(c *gin.Context, user models.User) {
	token, err := GenerateVerificationToken(user.ID, user.Email)
	if err != nil {
		h.log.Warnf("Cannot create verification token for user %d: %v", user.ID, err)
		return
	}
	notify.Send(c.Request.Context(), h.notifier, h.log, notify.New(notify.KindVerification, user.Email, map[string]any{
		"RecipientName":   user.Name,
		"VerificationURL": h.baseURL + "/api/auth/verify/" + token,
	}))
}

// Login handles user login
// @Summary Login
// @Description Authenticate with email and password. Counts towards the daily streak.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	response := LoginResponse{
		AuthResponse: AuthResponse{Token: token, User: NewUserResponse(user)},
	}

	// The streak is a side effect; a failure here never blocks the login
	result, err := h.tracker.Record(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Warnf("Cannot record streak activity for user %d: %v", user.ID, err)
	} else {
		response.Streak = StreakResponse{
			CurrentStreak:   result.Streak.CurrentStreak,
			LongestStreak:   result.Streak.LongestStreak,
			TotalActiveDays: result.Streak.TotalActiveDays,
		}
		response.AwardedBadges = result.Awarded
	}

	c.JSON(http.StatusOK, response)
}

// Verify confirms an email address from a verification link
// @Summary Verify email
// @Description Mark the email address in the token as verified
// @Tags auth
// @Produce json
// @Param token path string true "Verification token"
// @Success 200 {object} map[string]string "Email verified"
// @Failure 400 {object} map[string]string "Invalid or expired token"
// @Router /auth/verify/{token} [get]
func (h *Handler) Verify(c *gin.Context) {
	claims, err := ValidateVerificationToken(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification token"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ? AND email = ?", claims.UserID, claims.Email).
		Update("email_verified", true)
	if res.Error != nil {
		errorx.Respond(c, errorx.FromDB(res.Error, ""))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

// Me returns the current authenticated user
// @Summary Get current user
// @Description Get the authenticated user's account
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, exists := GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, NewUserResponse(user))
}

// Logout handles user logout (client-side token invalidation)
// @Summary Logout
// @Description Logout the current user (client-side token invalidation)
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string "Logged out successfully"
// @Router /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// RegisterRoutes registers auth routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/logout", h.Logout)
	rg.GET("/verify/:token", h.Verify)
	rg.GET("/me", AuthMiddleware(), h.Me)
}
