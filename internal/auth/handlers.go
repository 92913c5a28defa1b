package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// UserStore is the user persistence the controller needs.
type UserStore interface {
	CreateUser(username, passwordHash string) (*entities.User, error)
	GetUserByUsername(username string) (*entities.User, error)
}

// Controller handles registration, login, session info, and logout.
type Controller struct {
	store    UserStore
	sessions *SessionManager
	cfg      config.Auth
}

func NewController(store UserStore, sessions *SessionManager, cfg config.Auth) *Controller {
	return &Controller{
		store:    store,
		sessions: sessions,
		cfg:      cfg,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Register handles POST /api/auth/register. A new user is logged in
// immediately.
func (ctrl *Controller) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	username := strings.TrimSpace(req.Username)
	if len(username) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be at least 3 characters"})
		return
	}

	hash, err := HashPassword(req.Password, ctrl.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrPasswordTooLong) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	if _, err := ctrl.store.GetUserByUsername(username); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
		return
	}

	user, err := ctrl.store.CreateUser(username, hash)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	if err := ctrl.sessions.CreateSession(c.Request, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": userResponse{ID: user.ID, Username: user.Username}})
}

// Login handles POST /api/auth/login. The failure message is
// deliberately generic.
func (ctrl *Controller) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	user, err := ctrl.store.GetUserByUsername(username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
		return
	}

	if err := CheckPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
		return
	}

	if err := ctrl.sessions.CreateSession(c.Request, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": userResponse{ID: user.ID, Username: user.Username}})
}

// Me handles GET /api/auth/me. The response carries the CSRF token so
// a fresh client can fetch it before its first mutation.
func (ctrl *Controller) Me(c *gin.Context) {
	userID := ctrl.sessions.GetUserID(c.Request)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userResponse{
			ID:       userID,
			Username: ctrl.sessions.GetUsername(c.Request),
		},
		"csrfToken": GetCSRFToken(c),
	})
}

// Logout handles POST /api/auth/logout.
func (ctrl *Controller) Logout(c *gin.Context) {
	if err := ctrl.sessions.DestroySession(c.Request); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
