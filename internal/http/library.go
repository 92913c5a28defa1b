package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/shelf"
)

// ShelfEditor is the mutation surface the library controller needs.
type ShelfEditor interface {
	Update(userID, entryID uint, in shelf.UpdateInput) error
	Delete(userID, entryID uint) error
}

// LibraryController serves the filtered reading-history view and the
// per-entry update and delete operations.
type LibraryController struct {
	reader ShelfReader
	editor ShelfEditor
}

func NewLibraryController(reader ShelfReader, editor ShelfEditor) *LibraryController {
	return &LibraryController{reader: reader, editor: editor}
}

// List handles GET /api/library. Filters combine conjunctively; an
// absent status defaults to finished so the page shows reading
// history rather than the whole shelf.
func (ctrl *LibraryController) List(c *gin.Context) {
	filter := shelf.Filter{
		Status: entities.StatusFinished,
		Author: c.Query("author"),
		Format: c.Query("format"),
		Query:  c.Query("q"),
	}

	if status := c.Query("status"); status != "" {
		if status == "all" {
			filter.Status = ""
		} else {
			filter.Status = entities.Status(status)
		}
	}

	if yearParam := c.Query("year"); yearParam != "" {
		year, err := strconv.Atoi(yearParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "year must be numeric", Field: "year"})
			return
		}
		filter.Year = &year
	}

	entries, err := ctrl.reader.List(auth.UserID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "books": entries})
}

type updateEntryRequest struct {
	Status       *string    `json:"status"`
	Rating       *int       `json:"rating"`
	Notes        *string    `json:"notes"`
	PricePaid    *float64   `json:"pricePaid"`
	Format       *string    `json:"format"`
	FinishedYear *int       `json:"finishedYear"`
	StartedAt    *time.Time `json:"startedAt"`
	LastReadAt   *time.Time `json:"lastReadAt"`
}

// Update handles PATCH /api/library/:id. Only supplied fields change.
func (ctrl *LibraryController) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	in := shelf.UpdateInput{
		Rating:       req.Rating,
		Notes:        req.Notes,
		PricePaid:    req.PricePaid,
		Format:       req.Format,
		FinishedYear: req.FinishedYear,
		StartedAt:    req.StartedAt,
		LastReadAt:   req.LastReadAt,
	}
	if req.Status != nil {
		status := entities.Status(*req.Status)
		in.Status = &status
	}

	if err := ctrl.editor.Update(auth.UserID(c), id, in); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete handles DELETE /api/library/:id. The catalog book stays; only
// the user's entry goes.
func (ctrl *LibraryController) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := ctrl.editor.Delete(auth.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
