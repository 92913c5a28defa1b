package http

import (
	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/database"
)

// RouterConfig carries every dependency the router wires into
// controllers. Optional collaborators may be nil; their routes are
// simply not registered.
type RouterConfig struct {
	Database       *database.Database
	SessionManager *auth.SessionManager
	AuthController *auth.Controller
	CSRFSecret     []byte
	SecureCookies  bool

	ShelfWriter ShelfWriter
	ShelfReader ShelfReader
	ShelfEditor ShelfEditor
	Metadata    BookLookup
	Dashboard   DashboardSource
	Formats     FormatStore
	Loans       LoanStore

	Version string
}

// NewRouter builds the gin engine with sessions, CSRF, and all API
// routes. CSRF runs before session load so the session context
// survives CSRF's request replacement.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(auth.SecurityHeadersMiddleware())

	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/api/health", health.Status)

	if cfg.AuthController != nil {
		router.POST("/api/auth/register", cfg.AuthController.Register)
		router.POST("/api/auth/login", cfg.AuthController.Login)
		router.POST("/api/auth/logout", cfg.AuthController.Logout)
		router.GET("/api/auth/me", cfg.AuthController.Me)
	}

	api := router.Group("/api", auth.RequireUser(cfg.SessionManager))

	books := NewBooksController(cfg.ShelfWriter, cfg.ShelfReader)
	api.POST("/books", books.Create)
	api.GET("/books", books.List)
	api.GET("/books/:id", books.Get)

	library := NewLibraryController(cfg.ShelfReader, cfg.ShelfEditor)
	api.GET("/library", library.List)
	api.PATCH("/library/:id", library.Update)
	api.DELETE("/library/:id", library.Delete)

	if cfg.Metadata != nil {
		metadata := NewMetadataController(cfg.Metadata)
		api.GET("/google-books", metadata.Lookup)
	}

	dashboard := NewDashboardController(cfg.Dashboard)
	api.GET("/dashboard", dashboard.Get)

	formats := NewFormatsController(cfg.Formats)
	api.GET("/formats", formats.List)

	if cfg.Loans != nil {
		loans := NewLoansController(cfg.Loans, cfg.ShelfReader)
		api.POST("/loans", loans.Create)
		api.POST("/loans/:id/return", loans.Return)
	}

	return router
}
