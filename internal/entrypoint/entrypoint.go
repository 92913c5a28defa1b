package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/database"
	http_controllers "github.com/shelfmark/shelfmark/internal/http"
	"github.com/shelfmark/shelfmark/internal/metadata"
	"github.com/shelfmark/shelfmark/internal/scheduler"
	"github.com/shelfmark/shelfmark/internal/shelf"
	"github.com/shelfmark/shelfmark/internal/stats"
	"github.com/shelfmark/shelfmark/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then drains it
// within the configured shutdown timeout. onShutdown runs before the
// server itself shuts down so background workers stop taking work
// first.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutting down, waiting up to %v", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires configuration, storage, services, background workers, and
// the router together and serves until interrupted.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelfmark v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Domain services
	bookResolver := catalog.NewResolver(db.DB)
	shelfService := shelf.NewService(db.DB, bookResolver)
	statsService := stats.NewService(db.DB, db)

	googleBooks := metadata.NewGoogleBooksClient(cfg.GoogleBooks)
	metadataResolver := metadata.NewResolver(bookResolver, googleBooks)

	// Task queue and cover sweep
	var taskClient *tasks.Client
	var coverSweep *scheduler.CoverSweepScheduler
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.DefaultConfig()
		taskCfg.Workers = cfg.Tasks.Workers
		if cfg.Tasks.ReleaseAfter > 0 {
			taskCfg.ReleaseAfter = cfg.Tasks.ReleaseAfter
		}
		if cfg.Tasks.CleanupInterval > 0 {
			taskCfg.CleanupInterval = cfg.Tasks.CleanupInterval
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewBackfillCoversQueue(bookResolver, googleBooks),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		if cfg.CoverSweep.Enabled {
			coverSweep = scheduler.NewCoverSweepScheduler(taskClient, cfg.CoverSweep.Schedule)
			if err := coverSweep.Start(); err != nil {
				log.Fatalf("Failed to start cover sweep scheduler: %v", err)
			}
		}
	}

	// Sessions and CSRF
	sqlDB, err := db.SQLDB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	var csrfSecret []byte
	if cfg.Auth.SessionSecret != "" {
		csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
		if err != nil {
			csrfSecret = []byte(cfg.Auth.SessionSecret)
		}
	} else {
		secret, err := auth.GenerateSessionSecret()
		if err != nil {
			log.Fatalf("Failed to generate CSRF secret: %v", err)
		}
		csrfSecret, _ = hex.DecodeString(secret)
		log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist across restarts)")
	}

	authController := auth.NewController(db, sessionManager, cfg.Auth)

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		SessionManager: sessionManager,
		AuthController: authController,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		ShelfWriter:    shelfService,
		ShelfReader:    shelfService,
		ShelfEditor:    shelfService,
		Metadata:       metadataResolver,
		Dashboard:      statsService,
		Formats:        db,
		Loans:          db,
		Version:        version,
	})

	onShutdown := func(ctx context.Context) {
		if coverSweep != nil {
			coverSweep.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
