package categories

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"gorm.io/gorm"
)

// Handler handles category requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new categories handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	Name      models.Category `json:"name"`
	ClubCount int64           `json:"club_count"`
}

// List returns every category with the number of clubs in it
// @Summary List categories
// @Description Get all club categories with club counts
// @Tags categories
// @Produce json
// @Success 200 {array} CategoryResponse
// @Router /categories [get]
func (h *Handler) List(c *gin.Context) {
	type row struct {
		Category models.Category
		Count    int64
	}
	var rows []row
	if err := h.db.WithContext(c.Request.Context()).Model(&models.Club{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	counts := make(map[models.Category]int64, len(rows))
	for _, r := range rows {
		counts[r.Category] = r.Count
	}

	// Every category is listed, including empty ones, in display order
	categories := make([]CategoryResponse, len(models.Categories))
	for i, cat := range models.Categories {
		categories[i] = CategoryResponse{Name: cat, ClubCount: counts[cat]}
	}

	c.JSON(http.StatusOK, categories)
}

// RegisterRoutes registers category routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/categories", h.List)
}
