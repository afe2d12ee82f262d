package config

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// Config holds everything the server needs at startup
type Config struct {
	DBPath   string
	Port     string
	BaseURL  string
	LogLevel string
	Timezone string

	CORSOrigins []string

	JWTSecret     string
	TokenDuration time.Duration

	NotifyQueueSize int
	SMTP            SMTPConfig
}

// SMTPConfig configures outgoing email. An empty Host means notifications
// are only logged.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether an SMTP relay was configured
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

// Addr returns host:port of the relay
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Flags returns the CLI flags backing Config. Every flag can also be set
// through its environment variable.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "db-path", Value: "clubhub.db", EnvVars: []string{"CLUBHUB_DB_PATH"}, Usage: "SQLite database path"},
		&cli.StringFlag{Name: "port", Value: "8080", EnvVars: []string{"PORT"}, Usage: "HTTP listen port"},
		&cli.StringFlag{Name: "base-url", Value: "http://localhost:8080", EnvVars: []string{"CLUBHUB_BASE_URL"}, Usage: "public URL used in emailed links"},
		&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"CLUBHUB_LOG_LEVEL"}, Usage: "debug, info, warn, error or silence"},
		&cli.StringFlag{Name: "timezone", Value: "Local", EnvVars: []string{"CLUBHUB_TIMEZONE"}, Usage: "IANA zone used for streak day boundaries"},
		&cli.StringSliceFlag{Name: "cors-origin", Value: cli.NewStringSlice("http://localhost:3000"), EnvVars: []string{"CLUBHUB_CORS_ORIGINS"}, Usage: "origins allowed to call the API from a browser"},
		&cli.StringFlag{Name: "jwt-secret", Value: "clubhub-dev-secret-change-in-production", EnvVars: []string{"JWT_SECRET"}, Usage: "HMAC key for session tokens"},
		&cli.DurationFlag{Name: "token-duration", Value: 24 * time.Hour, EnvVars: []string{"JWT_EXPIRE"}, Usage: "session token lifetime"},
		&cli.IntFlag{Name: "notify-queue", Value: 256, EnvVars: []string{"CLUBHUB_NOTIFY_QUEUE"}, Usage: "pending notification buffer"},
		&cli.StringFlag{Name: "smtp-host", EnvVars: []string{"SMTP_HOST"}, Usage: "SMTP relay host; empty logs notifications instead"},
		&cli.IntFlag{Name: "smtp-port", Value: 587, EnvVars: []string{"SMTP_PORT"}},
		&cli.StringFlag{Name: "smtp-user", EnvVars: []string{"SMTP_USER"}},
		&cli.StringFlag{Name: "smtp-pass", EnvVars: []string{"SMTP_PASS"}},
		&cli.StringFlag{Name: "smtp-from", Value: "College Club Management <no-reply@clubhub.local>", EnvVars: []string{"SMTP_FROM"}},
	}
}

// FromContext reads Config out of the parsed CLI flags
func FromContext(c *cli.Context) (*Config, error) {
	cfg := &Config{
		DBPath:          c.String("db-path"),
		Port:            c.String("port"),
		BaseURL:         c.String("base-url"),
		LogLevel:        c.String("log-level"),
		Timezone:        c.String("timezone"),
		CORSOrigins:     c.StringSlice("cors-origin"),
		JWTSecret:       c.String("jwt-secret"),
		TokenDuration:   c.Duration("token-duration"),
		NotifyQueueSize: c.Int("notify-queue"),
		SMTP: SMTPConfig{
			Host:     c.String("smtp-host"),
			Port:     c.Int("smtp-port"),
			Username: c.String("smtp-user"),
			Password: c.String("smtp-pass"),
			From:     c.String("smtp-from"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by flag parsing
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db-path must not be empty")
	}
	if c.NotifyQueueSize <= 0 {
		return fmt.Errorf("notify-queue must be positive, got %d", c.NotifyQueueSize)
	}
	if c.TokenDuration <= 0 {
		return fmt.Errorf("token-duration must be positive, got %s", c.TokenDuration)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
