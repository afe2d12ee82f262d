package clubs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/auth"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/memberships"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
)

// Handler handles club-related requests
type Handler struct {
	service     *Service
	memberships *memberships.Manager
}

// NewHandler creates a new clubs handler
func NewHandler(service *Service, memberships *memberships.Manager) *Handler {
	return &Handler{service: service, memberships: memberships}
}

// CreateClubRequest represents the request to create a club
type CreateClubRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"required,max=1000"`
	Category    string `json:"category" binding:"required,oneof=academic arts sports technology social volunteer"`
}

// UpdateClubRequest represents the request to update a club
type UpdateClubRequest struct {
	Name        string `json:"name" binding:"omitempty,max=100"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Category    string `json:"category" binding:"omitempty,oneof=academic arts sports technology social volunteer"`
}

// ClubResponse represents a club in API responses
type ClubResponse struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    models.Category `json:"category"`
	CreatorID   uint            `json:"creator_id"`
	CreatorName string          `json:"creator_name"`
	MemberCount int             `json:"member_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToResponse projects a club for API responses
func ToResponse(club models.Club) ClubResponse {
	return ClubResponse{
		ID:          club.ID,
		Name:        club.Name,
		Description: club.Description,
		Category:    club.Category,
		CreatorID:   club.CreatorID,
		CreatorName: club.Creator.Name,
		MemberCount: len(club.Members),
		CreatedAt:   club.CreatedAt,
	}
}

func clubID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return 0, false
	}
	return uint(id), true
}

// List returns all clubs
// @Summary List clubs
// @Description Get all clubs, optionally filtered by category or name
// @Tags clubs
// @Produce json
// @Param category query string false "Category filter"
// @Param search query string false "Name substring"
// @Success 200 {array} ClubResponse
// @Router /clubs [get]
func (h *Handler) List(c *gin.Context) {
	clubs, err := h.service.List(c.Request.Context(), Filter{
		Category: models.Category(c.Query("category")),
		Search:   c.Query("search"),
	})
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	response := make([]ClubResponse, len(clubs))
	for i, club := range clubs {
		response[i] = ToResponse(club)
	}
	c.JSON(http.StatusOK, response)
}

// Get returns a specific club
// @Summary Get a club
// @Description Get details of a specific club
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {object} ClubResponse
// @Failure 404 {object} map[string]string "Club not found"
// @Router /clubs/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := clubID(c)
	if !ok {
		return
	}

	club, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ToResponse(*club))
}

// Create creates a new club with the current user as creator and first member
// @Summary Create a club
// @Description Create a new club. The creator becomes its first member.
// @Tags clubs
// @Accept json
// @Produce json
// @Param request body CreateClubRequest true "Club details"
// @Success 201 {object} ClubResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Club name already taken"
// @Security BearerAuth
// @Router /clubs [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := h.service.Create(c.Request.Context(), userID, Input{
		Name:        req.Name,
		Description: req.Description,
		Category:    models.Category(req.Category),
	})
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, ToResponse(*club))
}

// Update updates a club (creator or admin only)
// @Summary Update a club
// @Description Update a club (requires being its creator or an admin)
// @Tags clubs
// @Accept json
// @Produce json
// @Param id path int true "Club ID"
// @Param request body UpdateClubRequest true "Updated club details"
// @Success 200 {object} ClubResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Not authorized"
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /clubs/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	id, ok := clubID(c)
	if !ok {
		return
	}
	if !h.authorize(c, id, "Not authorized to update this club") {
		return
	}

	var req UpdateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := h.service.Update(c.Request.Context(), id, Input{
		Name:        req.Name,
		Description: req.Description,
		Category:    models.Category(req.Category),
	})
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ToResponse(*club))
}

// Delete deletes a club (creator or admin only)
// @Summary Delete a club
// @Description Delete a club and its memberships (requires being its creator or an admin)
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {object} map[string]string "Club deleted"
// @Failure 403 {object} map[string]string "Not authorized"
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /clubs/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := clubID(c)
	if !ok {
		return
	}
	if !h.authorize(c, id, "Not authorized to delete this club") {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Club deleted"})
}

// authorize loads the club and checks the caller may manage it.
// It writes the error response and returns false otherwise.
func (h *Handler) authorize(c *gin.Context, id uint, message string) bool {
	userID, _ := auth.GetUserID(c)
	club, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		errorx.Respond(c, err)
		return false
	}
	if !CanManage(club, userID, auth.IsAdmin(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": message})
		return false
	}
	return true
}

// RegisterPublicRoutes registers the read-only club routes
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/members", h.ListMembers)
}

// RegisterRoutes registers club routes that need an authenticated user
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
