package events

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/auth"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
)

// dateLayouts are accepted for event dates, most specific first
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// Handler handles event-related requests
type Handler struct {
	service *Service
}

// NewHandler creates a new events handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateEventRequest represents the request to create an event
type CreateEventRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"required"`
	Date        string `json:"date" binding:"required"`
	Time        string `json:"time" binding:"required"`
	Location    string `json:"location" binding:"required"`
	ClubID      uint   `json:"club_id" binding:"required"`
}

// UpdateEventRequest represents the request to update an event
type UpdateEventRequest struct {
	Title       string `json:"title" binding:"omitempty,max=200"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
}

// EventResponse represents an event in API responses
type EventResponse struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Date          time.Time `json:"date"`
	Time          string    `json:"time"`
	Location      string    `json:"location"`
	ClubID        uint      `json:"club_id"`
	ClubName      string    `json:"club_name"`
	AttendeeCount int       `json:"attendee_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// AttendResponse is returned when a user signs up for an event
type AttendResponse struct {
	Message       string         `json:"message"`
	AwardedBadges []models.Badge `json:"awarded_badges,omitempty"`
}

// ToResponse projects an event for API responses
func ToResponse(event models.Event) EventResponse {
	return EventResponse{
		ID:            event.ID,
		Title:         event.Title,
		Description:   event.Description,
		Date:          event.Date,
		Time:          event.Time,
		Location:      event.Location,
		ClubID:        event.ClubID,
		ClubName:      event.Club.Name,
		AttendeeCount: len(event.Attendees),
		CreatedAt:     event.CreatedAt,
	}
}

func toResponses(events []models.Event) []EventResponse {
	response := make([]EventResponse, len(events))
	for i, e := range events {
		response[i] = ToResponse(e)
	}
	return response
}

// ParseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func idParam(c *gin.Context, name, message string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return 0, false
	}
	return uint(id), true
}

// List returns all events
// @Summary List events
// @Description Get all events, soonest first
// @Tags events
// @Produce json
// @Success 200 {array} EventResponse
// @Router /events [get]
func (h *Handler) List(c *gin.Context) {
	events, err := h.service.List(c.Request.Context())
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(events))
}

// Upcoming returns events from today onwards
// @Summary List upcoming events
// @Description Get events dated today or later
// @Tags events
// @Produce json
// @Success 200 {array} EventResponse
// @Security BearerAuth
// @Router /events/upcoming [get]
func (h *Handler) Upcoming(c *gin.Context) {
	events, err := h.service.Upcoming(c.Request.Context())
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(events))
}

// ListByClub returns the events of one club
// @Summary List club events
// @Description Get all events of a club
// @Tags events
// @Produce json
// @Param clubId path int true "Club ID"
// @Success 200 {array} EventResponse
// @Router /events/club/{clubId} [get]
func (h *Handler) ListByClub(c *gin.Context) {
	clubID, ok := idParam(c, "clubId", "Invalid club ID")
	if !ok {
		return
	}
	events, err := h.service.ForClub(c.Request.Context(), clubID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponses(events))
}

// Get returns a specific event
// @Summary Get an event
// @Description Get details of a specific event
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} map[string]string "Event not found"
// @Router /events/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := idParam(c, "id", "Invalid event ID")
	if !ok {
		return
	}
	event, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ToResponse(*event))
}

// Create creates a new event
// @Summary Create an event
// @Description Create an event for a club. Requires club membership, being the creator, or admin.
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "Event details"
// @Success 201 {object} EventResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Not authorized"
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /events [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, ok := ParseDate(req.Date)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD or RFC 3339"})
		return
	}

	allowed, err := h.service.CanManage(c.Request.Context(), userID, req.ClubID, auth.IsAdmin(c))
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to create events for this club"})
		return
	}

	event, err := h.service.Create(c.Request.Context(), Input{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Time:        req.Time,
		Location:    req.Location,
		ClubID:      req.ClubID,
	})
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, ToResponse(*event))
}

// Update updates an event
// @Summary Update an event
// @Description Update an event. Requires club membership, being the creator, or admin.
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param request body UpdateEventRequest true "Updated event details"
// @Success 200 {object} EventResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Not authorized"
// @Failure 404 {object} map[string]string "Event not found"
// @Security BearerAuth
// @Router /events/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	id, ok := idParam(c, "id", "Invalid event ID")
	if !ok {
		return
	}
	if !h.authorize(c, id, "Not authorized to update this event") {
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := Input{
		Title:       req.Title,
		Description: req.Description,
		Time:        req.Time,
		Location:    req.Location,
	}
	if req.Date != "" {
		date, ok := ParseDate(req.Date)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD or RFC 3339"})
			return
		}
		in.Date = date
	}

	event, err := h.service.Update(c.Request.Context(), id, in)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, ToResponse(*event))
}

// Delete deletes an event
// @Summary Delete an event
// @Description Delete an event. Requires club membership, being the creator, or admin.
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} map[string]string "Event deleted"
// @Failure 403 {object} map[string]string "Not authorized"
// @Failure 404 {object} map[string]string "Event not found"
// @Security BearerAuth
// @Router /events/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id", "Invalid event ID")
	if !ok {
		return
	}
	if !h.authorize(c, id, "Not authorized to delete this event") {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

// Attend signs the current user up for an event
// @Summary Attend an event
// @Description Add the current user to the event's attendees
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} AttendResponse
// @Failure 404 {object} map[string]string "Event not found"
// @Failure 409 {object} map[string]string "Already attending"
// @Security BearerAuth
// @Router /events/{id}/attend [post]
func (h *Handler) Attend(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := idParam(c, "id", "Invalid event ID")
	if !ok {
		return
	}

	awarded, err := h.service.Attend(c.Request.Context(), id, userID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, AttendResponse{Message: "Attending event", AwardedBadges: awarded})
}

// Unattend withdraws the current user from an event
// @Summary Stop attending an event
// @Description Remove the current user from the event's attendees
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} map[string]string "No longer attending"
// @Failure 400 {object} map[string]string "Not attending"
// @Failure 404 {object} map[string]string "Event not found"
// @Security BearerAuth
// @Router /events/{id}/attend [delete]
func (h *Handler) Unattend(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := idParam(c, "id", "Invalid event ID")
	if !ok {
		return
	}

	if err := h.service.Unattend(c.Request.Context(), id, userID); err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "No longer attending event"})
}

func (h *Handler) authorize(c *gin.Context, id uint, message string) bool {
	userID, _ := auth.GetUserID(c)
	event, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		errorx.Respond(c, err)
		return false
	}
	allowed, err := h.service.CanManage(c.Request.Context(), userID, event.ClubID, auth.IsAdmin(c))
	if err != nil {
		errorx.Respond(c, err)
		return false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": message})
		return false
	}
	return true
}

// RegisterPublicRoutes registers the read-only event routes
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/club/:clubId", h.ListByClub)
	rg.GET("/:id", h.Get)
}

// RegisterRoutes registers event routes that need an authenticated user
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/upcoming", h.Upcoming)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/attend", h.Attend)
	rg.DELETE("/:id/attend", h.Unattend)
}
