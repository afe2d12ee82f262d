package memberships

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/auth"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
)

// Handler exposes membership transitions over HTTP
type Handler struct {
	manager *Manager
}

// NewHandler creates a new memberships handler
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// ClubSummary is the club projection embedded in membership responses
type ClubSummary struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    models.Category `json:"category"`
}

// MembershipResponse represents a membership in API responses
type MembershipResponse struct {
	ID        uint        `json:"id"`
	Club      ClubSummary `json:"club"`
	JoinDate  time.Time   `json:"join_date"`
	LeaveDate *time.Time  `json:"leave_date,omitempty"`
	IsActive  bool        `json:"is_active"`
}

// JoinResponse is returned by a successful join
type JoinResponse struct {
	Message       string             `json:"message"`
	Membership    MembershipResponse `json:"membership"`
	AwardedBadges []models.Badge     `json:"awarded_badges,omitempty"`
}

func toResponse(m models.Membership) MembershipResponse {
	return MembershipResponse{
		ID: m.ID,
		Club: ClubSummary{
			ID:          m.Club.ID,
			Name:        m.Club.Name,
			Description: m.Club.Description,
			Category:    m.Club.Category,
		},
		JoinDate:  m.JoinDate,
		LeaveDate: m.LeaveDate,
		IsActive:  m.IsActive,
	}
}

func clubIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("clubId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return 0, false
	}
	return uint(id), true
}

// Join adds the current user to a club
// @Summary Join a club
// @Description Join a club, reactivating a previous membership if there is one
// @Tags memberships
// @Produce json
// @Param clubId path int true "Club ID"
// @Success 201 {object} JoinResponse "New membership"
// @Success 200 {object} JoinResponse "Reactivated membership"
// @Failure 404 {object} map[string]string "Club not found"
// @Failure 409 {object} map[string]string "Already a member"
// @Security BearerAuth
// @Router /memberships/join/{clubId} [post]
func (h *Handler) Join(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}

	result, err := h.manager.Join(c.Request.Context(), userID, clubID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	status := http.StatusCreated
	message := "Successfully joined club"
	if result.Reactivated {
		status = http.StatusOK
		message = "Successfully rejoined club"
	}
	c.JSON(status, JoinResponse{
		Message:       message,
		Membership:    toResponse(result.Membership),
		AwardedBadges: result.Awarded,
	})
}

// Leave removes the current user from a club
// @Summary Leave a club
// @Description Leave a club. The club creator cannot leave.
// @Tags memberships
// @Produce json
// @Param clubId path int true "Club ID"
// @Success 200 {object} map[string]string "Left club"
// @Failure 400 {object} map[string]string "Not a member"
// @Failure 403 {object} map[string]string "Creator cannot leave"
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /memberships/leave/{clubId} [post]
func (h *Handler) Leave(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	clubID, ok := clubIDParam(c)
	if !ok {
		return
	}

	if _, err := h.manager.Leave(c.Request.Context(), userID, clubID); err != nil {
		errorx.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully left club"})
}

// ListForUser returns the current user's active memberships
// @Summary List my memberships
// @Description Get the clubs the current user is an active member of
// @Tags memberships
// @Produce json
// @Success 200 {array} MembershipResponse
// @Security BearerAuth
// @Router /memberships/user [get]
func (h *Handler) ListForUser(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	memberships, err := h.manager.ListActiveForUser(c.Request.Context(), userID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	response := make([]MembershipResponse, len(memberships))
	for i, m := range memberships {
		response[i] = toResponse(m)
	}
	c.JSON(http.StatusOK, response)
}

// RegisterRoutes registers membership routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/memberships/join/:clubId", h.Join)
	rg.POST("/memberships/leave/:clubId", h.Leave)
	rg.GET("/memberships/user", h.ListForUser)
}
