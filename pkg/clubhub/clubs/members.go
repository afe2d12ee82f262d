package clubs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
)

// MemberResponse represents a club member in API responses
type MemberResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	StudentID string `json:"student_id"`
	Major     string `json:"major"`
}

// ListMembers returns the active members of a club
// @Summary List club members
// @Description Get the active members of a club
// @Tags clubs
// @Produce json
// @Param id path int true "Club ID"
// @Success 200 {array} MemberResponse
// @Failure 404 {object} map[string]string "Club not found"
// @Router /clubs/{id}/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	id, ok := clubID(c)
	if !ok {
		return
	}

	if _, err := h.service.Get(c.Request.Context(), id); err != nil {
		errorx.Respond(c, err)
		return
	}

	users, err := h.memberships.ActiveMembers(c.Request.Context(), id)
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	members := make([]MemberResponse, len(users))
	for i, u := range users {
		members[i] = MemberResponse{
			ID:        u.ID,
			Name:      u.Name,
			StudentID: u.StudentID,
			Major:     u.Major,
		}
	}
	c.JSON(http.StatusOK, members)
}
