package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		GoogleBooks
		Auth
		Tasks
		CoverSweep
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	GoogleBooks struct {
		BaseURL string
		APIKey  string // optional; appended to requests when set
		Timeout time.Duration
	}

	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // set to false for local dev without HTTPS
	}

	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}

	// CoverSweep controls the periodic re-resolution of catalog books
	// that are still missing a cover image.
	CoverSweep struct {
		Enabled  bool
		Schedule string // cron format: "0 3 * * *" = daily at 03:00
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Google Books defaults
	v.SetDefault("google_books_base_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("google_books_api_key", "")
	v.SetDefault("google_books_timeout", "10s")

	// Auth defaults
	v.SetDefault("auth_session_secret", "") // auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Cover sweep defaults
	v.SetDefault("cover_sweep_enabled", false)
	v.SetDefault("cover_sweep_schedule", "0 3 * * *")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		GoogleBooks: GoogleBooks{
			BaseURL: v.GetString("GOOGLE_BOOKS_BASE_URL"),
			APIKey:  v.GetString("GOOGLE_BOOKS_API_KEY"),
			Timeout: v.GetDuration("GOOGLE_BOOKS_TIMEOUT"),
		},
		Auth: Auth{
			SessionSecret:   v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		CoverSweep: CoverSweep{
			Enabled:  v.GetBool("COVER_SWEEP_ENABLED"),
			Schedule: v.GetString("COVER_SWEEP_SCHEDULE"),
		},
	}
}
