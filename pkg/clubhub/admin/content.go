package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/auth"
	"github.com/mikepea/clubhub/pkg/clubhub/clubs"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
	"github.com/mikepea/clubhub/pkg/clubhub/events"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
)

// CreateClubRequest creates a club on behalf of any user.
// CreatorID defaults to the calling admin.
type CreateClubRequest struct {
	clubs.CreateClubRequest
	CreatorID uint `json:"creator_id"`
}

func idParam(c *gin.Context, message string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": message})
		return 0, false
	}
	return uint(id), true
}

// ListClubs returns every club
// @Summary List clubs (admin)
// @Tags admin
// @Produce json
// @Success 200 {array} clubs.ClubResponse
// @Security BearerAuth
// @Router /admin/clubs [get]
func (h *Handler) ListClubs(c *gin.Context) {
	list, err := h.clubs.List(c.Request.Context(), clubs.Filter{})
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	response := make([]clubs.ClubResponse, len(list))
	for i, club := range list {
		response[i] = clubs.ToResponse(club)
	}
	c.JSON(http.StatusOK, response)
}

// CreateClub creates a club for a given creator
// @Summary Create a club (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateClubRequest true "Club details"
// @Success 201 {object} clubs.ClubResponse
// @Failure 404 {object} map[string]string "Creator not found"
// @Failure 409 {object} map[string]string "Club name already taken"
// @Security BearerAuth
// @Router /admin/clubs [post]
func (h *Handler) CreateClub(c *gin.Context) {
	var req CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creatorID := req.CreatorID
	if creatorID == 0 {
		creatorID, _ = auth.GetUserID(c)
	}
	var creator models.User
	if err := h.db.WithContext(c.Request.Context()).Select("id").First(&creator, creatorID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Creator not found"})
		return
	}

	club, err := h.clubs.Create(c.Request.Context(), creatorID, clubs.Input{
		Name:        req.Name,
		Description: req.Description,
		Category:    models.Category(req.Category),
	})
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, clubs.ToResponse(*club))
}

// UpdateClub updates any club
// @Summary Update a club (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Club ID"
// @Param request body clubs.UpdateClubRequest true "Updated club details"
// @Success 200 {object} clubs.ClubResponse
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /admin/clubs/{id} [put]
func (h *Handler) UpdateClub(c *gin.Context) {
	id, ok := idParam(c, "Invalid club ID")
	if !ok {
		return
	}

	var req clubs.UpdateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	club, err := h.clubs.Update(c.Request.Context(), id, clubs.Input{
		Name:        req.Name,
		Description: req.Description,
		Category:    models.Category(req.Category),
	})
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, clubs.ToResponse(*club))
}

// DeleteClub deletes any club with its memberships and events
// @Summary Delete a club (admin)
// @Tags admin
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {object} map[string]string "Club deleted"
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /admin/clubs/{id} [delete]
func (h *Handler) DeleteClub(c *gin.Context) {
	id, ok := idParam(c, "Invalid club ID")
	if !ok {
		return
	}
	if err := h.clubs.Delete(c.Request.Context(), id); err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Club deleted"})
}

// ListEvents returns every event
// @Summary List events (admin)
// @Tags admin
// @Produce json
// @Success 200 {array} events.EventResponse
// @Security BearerAuth
// @Router /admin/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	list, err := h.events.List(c.Request.Context())
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	response := make([]events.EventResponse, len(list))
	for i, event := range list {
		response[i] = events.ToResponse(event)
	}
	c.JSON(http.StatusOK, response)
}

// CreateEvent creates an event for any club
// @Summary Create an event (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param request body events.CreateEventRequest true "Event details"
// @Success 201 {object} events.EventResponse
// @Failure 404 {object} map[string]string "Club not found"
// @Security BearerAuth
// @Router /admin/events [post]
func (h *Handler) CreateEvent(c *gin.Context) {
	var req events.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, ok := events.ParseDate(req.Date)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD or RFC 3339"})
		return
	}
	if _, err := h.clubs.Get(c.Request.Context(), req.ClubID); err != nil {
		errorx.Respond(c, err)
		return
	}

	event, err := h.events.Create(c.Request.Context(), events.Input{
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
	c.JSON(http.StatusCreated, events.ToResponse(*event))
}

// UpdateEvent updates any event
// @Summary Update an event (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Event ID"
// @Param request body events.UpdateEventRequest true "Updated event details"
// @Success 200 {object} events.EventResponse
// @Failure 404 {object} map[string]string "Event not found"
// @Security BearerAuth
// @Router /admin/events/{id} [put]
func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := idParam(c, "Invalid event ID")
	if !ok {
		return
	}

	var req events.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := events.Input{
		Title:       req.Title,
		Description: req.Description,
		Time:        req.Time,
		Location:    req.Location,
	}
	if req.Date != "" {
		date, ok := events.ParseDate(req.Date)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD or RFC 3339"})
			return
		}
		in.Date = date
	}

	event, err := h.events.Update(c.Request.Context(), id, in)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, events.ToResponse(*event))
}

// DeleteEvent deletes any event
// @Summary Delete an event (admin)
// @Tags admin
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} map[string]string "Event deleted"
// @Failure 404 {object} map[string]string "Event not found"
// @Security BearerAuth
// @Router /admin/events/{id} [delete]
func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := idParam(c, "Invalid event ID")
	if !ok {
		return
	}
	if err := h.events.Delete(c.Request.Context(), id); err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}
