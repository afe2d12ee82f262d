package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/activity"
	"github.com/mikepea/clubhub/pkg/clubhub/admin"
	"github.com/mikepea/clubhub/pkg/clubhub/auth"
	"github.com/mikepea/clubhub/pkg/clubhub/badges"
	"github.com/mikepea/clubhub/pkg/clubhub/categories"
	"github.com/mikepea/clubhub/pkg/clubhub/clubs"
	"github.com/mikepea/clubhub/pkg/clubhub/events"
	"github.com/mikepea/clubhub/pkg/clubhub/importexport"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/memberships"
	"github.com/mikepea/clubhub/pkg/clubhub/middleware"
	"github.com/mikepea/clubhub/pkg/clubhub/notify"
	"github.com/mikepea/clubhub/pkg/clubhub/profile"
	"github.com/mikepea/clubhub/pkg/clubhub/streaks"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/mikepea/clubhub/api/swagger"
)

// Deps are the external resources the API is built on
type Deps struct {
	DB          *gorm.DB
	Notifier    notify.Notifier
	Log         logger.Logger
	Location    *time.Location
	BaseURL     string
	CORSOrigins []string
}

// Services are the domain components shared by the HTTP API and the CLI
type Services struct {
	Awarder     *badges.Awarder
	Tracker     *streaks.Tracker
	Memberships *memberships.Manager
	Clubs       *clubs.Service
	Events      *events.Service
	Activity    *activity.Aggregator
	Loader      *importexport.Loader
}

// NewServices builds every domain component over deps
func NewServices(deps Deps) *Services {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}

	awarder := badges.NewAwarder(deps.DB, deps.Log)
	manager := memberships.NewManager(deps.DB, awarder, deps.Notifier, deps.Log)
	clubService := clubs.NewService(deps.DB, manager, deps.Log)

	return &Services{
		Awarder:     awarder,
		Tracker:     streaks.NewTracker(deps.DB, awarder, deps.Log).WithLocation(loc),
		Memberships: manager,
		Clubs:       clubService,
		Events:      events.NewService(deps.DB, manager, awarder, deps.Notifier, deps.Log).WithLocation(loc),
		Activity:    activity.NewAggregator(deps.DB),
		Loader:      importexport.NewLoader(deps.DB, clubService, deps.Log),
	}
}

// NewRouter wires every API route
func NewRouter(deps Deps) *gin.Engine {
	svc := NewServices(deps)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(deps.Log))
	if len(deps.CORSOrigins) > 0 {
		r.Use(middleware.CORS(deps.CORSOrigins))
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "clubhub",
			})
		})

		// Auth routes (public except /me)
		authHandler := auth.NewHandler(deps.DB, svc.Tracker, deps.Notifier, deps.Log, deps.BaseURL)
		authHandler.RegisterRoutes(api.Group("/auth"))

		protected := api.Group("", auth.AuthMiddleware())

		clubsHandler := clubs.NewHandler(svc.Clubs, svc.Memberships)
		clubsHandler.RegisterPublicRoutes(api.Group("/clubs"))
		clubsHandler.RegisterRoutes(protected.Group("/clubs"))

		eventsHandler := events.NewHandler(svc.Events)
		eventsHandler.RegisterPublicRoutes(api.Group("/events"))
		eventsHandler.RegisterRoutes(protected.Group("/events"))

		memberships.NewHandler(svc.Memberships).RegisterRoutes(protected)

		categories.NewHandler(deps.DB).RegisterRoutes(api)

		profileHandler := profile.NewHandler(deps.DB, svc.Memberships, svc.Tracker, svc.Awarder, svc.Activity)
		profileHandler.RegisterRoutes(protected.Group("/profile"))

		// Admin routes (admin role required)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())
		admin.NewHandler(deps.DB, svc.Clubs, svc.Events, svc.Memberships, svc.Tracker, deps.Log).RegisterRoutes(adminGroup)
		importexport.NewHandler(svc.Loader).RegisterRoutes(adminGroup)
	}

	return r
}
