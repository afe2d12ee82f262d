package importexport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/auth"
	"github.com/mikepea/clubhub/pkg/clubhub/errorx"
)

// Handler handles import/export requests
type Handler struct {
	loader *Loader
}

// NewHandler creates a new import/export handler
func NewHandler(loader *Loader) *Handler {
	return &Handler{loader: loader}
}

// Import loads clubs and events from a JSON document
// @Summary Import clubs and events
// @Description Create clubs and their events from a JSON document. Existing clubs are matched by name.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body Document true "Clubs and events"
// @Success 200 {object} Result
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /admin/import [post]
func (h *Handler) Import(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var doc Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.loader.Load(c.Request.Context(), doc, userID)
	if err != nil {
		errorx.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Export writes every club and its events as a JSON document
// @Summary Export clubs and events
// @Tags admin
// @Produce json
// @Param download query bool false "Send as an attachment"
// @Success 200 {object} Document
// @Security BearerAuth
// @Router /admin/export [get]
func (h *Handler) Export(c *gin.Context) {
	doc, err := h.loader.Export(c.Request.Context())
	if err != nil {
		errorx.Respond(c, err)
		return
	}

	if c.Query("download") == "true" {
		c.Header("Content-Disposition", "attachment; filename=clubhub-export.json")
	}
	c.JSON(http.StatusOK, doc)
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.Import)
	rg.GET("/export", h.Export)
}
