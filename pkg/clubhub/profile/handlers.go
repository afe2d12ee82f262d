package profile

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/activity"
	"github.com/mikepea/clubhub/pkg/clubhub/auth"
	"github.com/mikepea/clubhub/pkg/clubhub/badges"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/memberships"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"github.com/mikepea/clubhub/pkg/clubhub/streaks"
	"gorm.io/gorm"
)

// Handler serves the current user's profile
type Handler struct {
	db          *gorm.DB
	memberships *memberships.Manager
	tracker     *streaks.Tracker
	awarder     *badges.Awarder
	activity    *activity.Aggregator
}

// NewHandler creates a new profile handler
func NewHandler(db *gorm.DB, memberships *memberships.Manager, tracker *streaks.Tracker, awarder *badges.Awarder, activity *activity.Aggregator) *Handler {
	return &Handler{
		db:          db,
		memberships: memberships,
		tracker:     tracker,
		awarder:     awarder,
		activity:    activity,
	}
}

// UpdateProfileRequest represents the request to update a profile.
// Empty fields are left unchanged.
type UpdateProfileRequest struct {
	Name      string `json:"name" binding:"omitempty,max=100"`
	Email     string `json:"email" binding:"omitempty,email"`
	StudentID string `json:"student_id"`
	Major     string `json:"major"`
}

// ClubSummary is a club the user belongs to
type ClubSummary struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Category models.Category `json:"category"`
}

// EventSummary is an event the user attends
type EventSummary struct {
	ID    uint      `json:"id"`
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
}

// ProfileResponse is the full profile of the current user
type ProfileResponse struct {
	auth.UserResponse
	CreatedAt     time.Time       `json:"created_at"`
	Clubs         []ClubSummary   `json:"clubs"`
	Events        []EventSummary  `json:"events"`
	CurrentStreak int             `json:"current_streak"`
	Badges        []models.Badge  `json:"badges"`
	Activity      []activity.Item `json:"activity"`
}

// StreakResponse represents the user's streak
type StreakResponse struct {
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	TotalActiveDays int        `json:"total_active_days"`
	LastActiveDate  *time.Time `json:"last_active_date"`
}

func (h *Handler) currentUser(c *gin.Context) (*models.User, bool) {
	userID, _ := auth.GetUserID(c)
	var user models.User
	err := h.db.WithContext(c.Request.Context()).First(&user, userID).Error
	if err != nil {
		errorx.Respond(c, errorx.FromDB(err, "User not found"))
		return nil, false
	}
	return &user, true
}

// Get returns the current user's profile
// @Summary Get profile
// @Description Get the current user's profile with clubs, events, streak, badges and activity
// @Tags profile
// @Produce json
// @Success 200 {object} ProfileResponse
// @Security BearerAuth
// @Router /profile [get]
func (h *Handler) Get(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	active, err := h.memberships.ListActiveForUser(ctx, user.ID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	clubs := make([]ClubSummary, len(active))
	for i, m := range active {
		clubs[i] = ClubSummary{ID: m.Club.ID, Name: m.Club.Name, Category: m.Club.Category}
	}

	var attended []models.Event
	if err := h.db.WithContext(ctx).
		Joins("JOIN "+models.EventAttendeesTable+" ON "+models.EventAttendeesTable+".event_id = events.id").
		Where(models.EventAttendeesTable+".user_id = ?", user.ID).
		Order("events.date DESC").
		Find(&attended).Error; err != nil {
		errorx.Respond(c, errorx.FromDB(err, ""))
		return
	}
	events := make([]EventSummary, len(attended))
	for i, e := range attended {
		events[i] = EventSummary{ID: e.ID, Title: e.Title, Date: e.Date}
	}

	streak, err := h.tracker.Get(ctx, user.ID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	held, err := h.awarder.ListForUser(ctx, user.ID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	feed, err := h.activity.ForUser(ctx, user.ID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		UserResponse:  auth.NewUserResponse(*user),
		CreatedAt:     user.CreatedAt,
		Clubs:         clubs,
		Events:        events,
		CurrentStreak: streak.CurrentStreak,
		Badges:        held,
		Activity:      feed,
	})
}

// Update changes the current user's profile fields
// @Summary Update profile
// @Description Update name, email, student ID or major
// @Tags profile
// @Accept json
// @Produce json
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} auth.UserResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Email or student ID already in use"
// @Security BearerAuth
// @Router /profile/update [put]
func (h *Handler) Update(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" && req.Email != user.Email {
		updates["email"] = req.Email
		updates["email_verified"] = false
	}
	if req.StudentID != "" {
		updates["student_id"] = req.StudentID
	}
	if req.Major != "" {
		updates["major"] = req.Major
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(c.Request.Context()).Model(user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email or student ID already in use"})
				return
			}
			errorx.Respond(c, errorx.FromDB(err, ""))
			return
		}
	}

	user, ok = h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, auth.NewUserResponse(*user))
}

// Activity returns the current user's activity feed
// @Summary Get activity feed
// @Description Recent club joins and leaves, attended events and earned badges, newest first
// @Tags profile
// @Produce json
// @Success 200 {array} activity.Item
// @Security BearerAuth
// @Router /profile/activity [get]
func (h *Handler) Activity(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	feed, err := h.activity.ForUser(c.Request.Context(), userID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// Streak returns the current user's streak
// @Summary Get streak
// @Description Get the current user's daily activity streak
// @Tags profile
// @Produce json
// @Success 200 {object} StreakResponse
// @Security BearerAuth
// @Router /profile/streak [get]
func (h *Handler) Streak(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	streak, err := h.tracker.Get(c.Request.Context(), userID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, StreakResponse{
		CurrentStreak:   streak.CurrentStreak,
		LongestStreak:   streak.LongestStreak,
		TotalActiveDays: streak.TotalActiveDays,
		LastActiveDate:  streak.LastActiveDate,
	})
}

// RegisterRoutes registers profile routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("/update", h.Update)
	rg.GET("/activity", h.Activity)
	rg.GET("/streak", h.Streak)
}
