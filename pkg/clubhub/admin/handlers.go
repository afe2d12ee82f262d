package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/auth"
	"github.com/mikepea/clubhub/pkg/clubhub/clubs"
	"github.com/mikepea/clubhub/pkg/clubhub/events"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/memberships"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"github.com/mikepea/clubhub/pkg/clubhub/streaks"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db          *gorm.DB
	clubs       *clubs.Service
	events      *events.Service
	memberships *memberships.Manager
	tracker     *streaks.Tracker
	log         logger.Logger
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB, clubs *clubs.Service, events *events.Service, memberships *memberships.Manager, tracker *streaks.Tracker, log logger.Logger) *Handler {
	return &Handler{
		db:          db,
		clubs:       clubs,
		events:      events,
		memberships: memberships,
		tracker:     tracker,
		log:         log,
	}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID            uint   `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	StudentID     string `json:"student_id"`
	Major         string `json:"major"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
	ClubCount     int64  `json:"club_count"`
}

// CreateUserRequest represents the request to create a user
type CreateUserRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	StudentID string `json:"student_id" binding:"required"`
	Major     string `json:"major"`
	Role      string `json:"role" binding:"omitempty,oneof=user admin"`
}

// UpdateUserRequest represents the request to update a user
type UpdateUserRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email" binding:"omitempty,email"`
	StudentID *string `json:"student_id"`
	Major     *string `json:"major"`
	Role      *string `json:"role"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalStudents     int64 `json:"total_students"`
	TotalClubs        int64 `json:"total_clubs"`
	TotalEvents       int64 `json:"total_events"`
	ActiveMemberships int64 `json:"active_memberships"`
	AdminUsers        int64 `json:"admin_users"`
	BadgesAwarded     int64 `json:"badges_awarded"`
}

func userID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) toResponse(ctx context.Context, user models.User) UserResponse {
	var clubCount int64
	h.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND is_active = ?", user.ID, true).
		Count(&clubCount)

	return UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		StudentID:     user.StudentID,
		Major:         user.Major,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format("2006-01-02T15:04:05Z"),
		ClubCount:     clubCount,
	}
}

// ListUsers returns all users (admin only)
// @Summary List users
// @Description List all users, optionally filtered by search term or role
// @Tags admin
// @Produce json
// @Param q query string false "Search by email, name or student ID"
// @Param role query string false "Role filter"
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User

	query := h.db.WithContext(c.Request.Context()).Order("created_at DESC")

	if search := c.Query("q"); search != "" {
		like := "%" + search + "%"
		query = query.Where("email LIKE ? OR name LIKE ? OR student_id LIKE ?", like, like, like)
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = h.toResponse(c.Request.Context(), user)
	}
	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID (admin only)
// @Summary Get a user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, h.toResponse(c.Request.Context(), user))
}

// CreateUser creates a user with a known password (admin only)
// @Summary Create a user
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateUserRequest true "User details"
// @Success 201 {object} UserResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Email or student ID already in use"
// @Security BearerAuth
// @Router /admin/users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Email:        req.Email,
		StudentID:    req.StudentID,
		PasswordHash: hash,
		Name:         req.Name,
		Major:        req.Major,
		Role:         models.RoleUser,
	}
	if req.Role != "" {
		user.Role = models.Role(req.Role)
	}

	ctx := c.Request.Context()
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return h.tracker.Init(ctx, tx, user.ID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email or student ID already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.log.Infof("Admin created user %d (%s)", user.ID, user.Email)
	c.JSON(http.StatusCreated, h.toResponse(ctx, user))
}

// UpdateUser updates a user's profile or role (admin only)
// @Summary Update a user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 409 {object} map[string]string "Email or student ID already in use"
// @Security BearerAuth
// @Router /admin/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var user models.User
	if err := h.db.WithContext(ctx).First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Prevent admin from demoting themselves
	currentUserID, _ := auth.GetUserID(c)
	if id == currentUserID && req.Role != nil && *req.Role != string(models.RoleAdmin) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot demote yourself"})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.StudentID != nil {
		updates["student_id"] = *req.StudentID
	}
	if req.Major != nil {
		updates["major"] = *req.Major
	}
	if req.Role != nil {
		if *req.Role != string(models.RoleAdmin) && *req.Role != string(models.RoleUser) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		updates["role"] = *req.Role
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"error": "Email or student ID already in use"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}

	h.db.WithContext(ctx).First(&user, id)
	c.JSON(http.StatusOK, h.toResponse(ctx, user))
}

// DeleteUser removes a user (admin only). Memberships, badges, streak and
// attendance go with it; those follow-up deletes are logged on failure.
// @Summary Delete a user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string "User deleted"
// @Failure 400 {object} map[string]string "Cannot delete yourself"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	currentUserID, _ := auth.GetUserID(c)
	if id == currentUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete yourself"})
		return
	}

	ctx := c.Request.Context()
	res := h.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.memberships.PurgeUser(ctx, id); err != nil {
		h.log.Errorf("Cannot remove memberships of deleted user %d: %v", id, err)
	}
	db := h.db.WithContext(ctx)
	if err := db.Where("user_id = ?", id).Delete(&models.Badge{}).Error; err != nil {
		h.log.Errorf("Cannot remove badges of deleted user %d: %v", id, err)
	}
	if err := db.Where("user_id = ?", id).Delete(&models.Streak{}).Error; err != nil {
		h.log.Errorf("Cannot remove streak of deleted user %d: %v", id, err)
	}
	if err := db.Exec("DELETE FROM "+models.EventAttendeesTable+" WHERE user_id = ?", id).Error; err != nil {
		h.log.Errorf("Cannot remove attendance of deleted user %d: %v", id, err)
	}

	h.log.Infof("Admin deleted user %d", id)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// GetStats returns system-wide statistics (admin only)
// @Summary Get statistics
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse
	db := h.db.WithContext(c.Request.Context())

	db.Model(&models.User{}).Where("role = ?", models.RoleUser).Count(&stats.TotalStudents)
	db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&stats.AdminUsers)
	db.Model(&models.Club{}).Count(&stats.TotalClubs)
	db.Model(&models.Event{}).Count(&stats.TotalEvents)
	db.Model(&models.Membership{}).Where("is_active = ?", true).Count(&stats.ActiveMemberships)
	db.Model(&models.Badge{}).Count(&stats.BadgesAwarded)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)

	rg.GET("/users", h.ListUsers)
	rg.POST("/users", h.CreateUser)
	rg.GET("/users/:id", h.GetUser)
	rg.PUT("/users/:id", h.UpdateUser)
	rg.DELETE("/users/:id", h.DeleteUser)

	rg.GET("/clubs", h.ListClubs)
	rg.POST("/clubs", h.CreateClub)
	rg.PUT("/clubs/:id", h.UpdateClub)
	rg.DELETE("/clubs/:id", h.DeleteClub)

	rg.GET("/events", h.ListEvents)
	rg.POST("/events", h.CreateEvent)
	rg.PUT("/events/:id", h.UpdateEvent)
	rg.DELETE("/events/:id", h.DeleteEvent)
}
