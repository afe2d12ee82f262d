package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/clubhub/pkg/clubhub/auth"
	"github.com/mikepea/clubhub/pkg/clubhub/config"
	"github.com/mikepea/clubhub/pkg/clubhub/database"
	"github.com/mikepea/clubhub/pkg/clubhub/logger"
	"github.com/mikepea/clubhub/pkg/clubhub/models"
	"github.com/mikepea/clubhub/pkg/clubhub/notify"
	"github.com/mikepea/clubhub/pkg/clubhub/server"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

// @title ClubHub API
// @version 1.0
// @description College club management: memberships, events, streaks and badges.

// @contact.name ClubHub Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

const (
	defaultAdminEmail    = "admin@clubhub.local"
	defaultAdminPassword = "changeme"
)

func main() {
	app := cli.NewApp()
	app.Name = "clubhub-server"
	app.Usage = "College club management API"
	app.Flags = config.Flags()
	app.Action = serve
	app.Commands = []*cli.Command{
		{
			Action: serve,
			Name:   "serve",
			Usage:  "Start the HTTP API (default)",
		},
		{
			Action: migrate,
			Name:   "migrate",
			Usage:  "Create or update the database schema and exit",
		},
		{
			Action:    seed,
			Name:      "seed",
			Usage:     "Load clubs and events from a JSON or TOML document",
			ArgsUsage: "<file>",
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// env is everything a command needs once config is loaded
type env struct {
	cfg *config.Config
	log logger.Logger
	db  *gorm.DB
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.FromContext(c)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	l := logger.NewLogger(level)

	auth.Configure(cfg.JWTSecret, cfg.TokenDuration)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	l.Infof("Database migrations completed")

	return &env{cfg: cfg, log: l, db: db}, nil
}

func (a *env) close() {
	if err := database.Close(a.db); err != nil {
		a.log.Warnf("Cannot close database: %v", err)
	}
}

func migrate(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	a.close()
	return nil
}

func seed(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: clubhub-server seed <file>", 2)
	}

	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	adminUser, err := ensureAdminExists(a.db, a.log)
	if err != nil {
		return fmt.Errorf("failed to ensure admin user exists: %w", err)
	}

	svc := server.NewServices(server.Deps{
		DB:       a.db,
		Notifier: notify.NewLogNotifier(a.log),
		Log:      a.log,
	})
	result, err := svc.Loader.LoadFile(c.Context, c.Args().First(), adminUser.ID)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		a.log.Warnf("Skipped %s", msg)
	}
	return nil
}

func serve(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := ensureAdminExists(a.db, a.log); err != nil {
		return fmt.Errorf("failed to ensure admin user exists: %w", err)
	}

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}

	var next notify.Notifier = notify.NewLogNotifier(a.log)
	if a.cfg.SMTP.Enabled() {
		next = notify.NewSMTPNotifier(a.cfg.SMTP)
		a.log.Infof("Sending notifications through %s", a.cfg.SMTP.Addr())
	}
	dispatcher := notify.NewDispatcher(next, a.cfg.NotifyQueueSize, a.log)
	defer dispatcher.Close()

	if level, _ := logger.ParseLevel(a.cfg.LogLevel); level > logger.DEBUG {
		gin.SetMode(gin.ReleaseMode)
	}

	router := server.NewRouter(server.Deps{
		DB:          a.db,
		Notifier:    dispatcher,
		Log:         a.log,
		Location:    loc,
		BaseURL:     a.cfg.BaseURL,
		CORSOrigins: a.cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + a.cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("Starting ClubHub server on :%s", a.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ensureAdminExists creates a default admin user if no admin exists in the
// database and returns the first admin.
func ensureAdminExists(db *gorm.DB, l logger.Logger) (*models.User, error) {
	var existing models.User
	err := db.Where("role = ?", models.RoleAdmin).Order("id ASC").First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := auth.HashPassword(defaultAdminPassword)
	if err != nil {
		return nil, err
	}

	adminUser := models.User{
		Email:         defaultAdminEmail,
		StudentID:     "ADMIN",
		Name:          "Admin",
		PasswordHash:  hashedPassword,
		Role:          models.RoleAdmin,
		EmailVerified: true,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&adminUser).Error; err != nil {
			return err
		}
		return tx.Create(&models.Streak{UserID: adminUser.ID}).Error
	})
	if err != nil {
		return nil, err
	}

	l.Warnf("Created default admin user %s with password %q. Change it after first login.", defaultAdminEmail, defaultAdminPassword)
	return &adminUser, nil
}
