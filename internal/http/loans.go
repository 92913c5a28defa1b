package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// LoanStore records who borrowed which shelf entry.
type LoanStore interface {
	CreateLoan(loan *entities.Loan) error
	ReturnLoan(id, userID uint) error
}

// LoansController tracks lent-out books. Open loans feed the
// dashboard counter.
type LoansController struct {
	store LoanStore
	shelf ShelfReader
}

func NewLoansController(store LoanStore, shelf ShelfReader) *LoansController {
	return &LoansController{store: store, shelf: shelf}
}

type createLoanRequest struct {
	ShelfEntryID uint   `json:"shelfEntryId"`
	LoanedTo     string `json:"loanedTo"`
}

// Create handles POST /api/loans. The entry must be on the acting
// user's shelf.
func (ctrl *LoansController) Create(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if strings.TrimSpace(req.LoanedTo) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "loanedTo is required", Field: "loanedTo"})
		return
	}

	userID := auth.UserID(c)
	if _, err := ctrl.shelf.GetByID(userID, req.ShelfEntryID); err != nil {
		respondError(c, err)
		return
	}

	loan := &entities.Loan{
		UserID:       userID,
		ShelfEntryID: req.ShelfEntryID,
		LoanedTo:     strings.TrimSpace(req.LoanedTo),
		LoanedAt:     time.Now().UTC(),
	}
	if err := ctrl.store.CreateLoan(loan); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "loanId": loan.ID})
}

// Return handles POST /api/loans/:id/return. Already-returned loans
// report 404 rather than silently re-stamping.
func (ctrl *LoansController) Return(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := ctrl.store.ReturnLoan(id, auth.UserID(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "loan not found"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
