package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/shelf"
)

// ShelfWriter is the shelf lifecycle surface the books controller
// needs for adds.
type ShelfWriter interface {
	Create(userID uint, in shelf.CreateInput) (*shelf.CreateResult, error)
}

// ShelfReader is the listing surface shared by the books and library
// controllers.
type ShelfReader interface {
	List(userID uint, f shelf.Filter) ([]shelf.Entry, error)
	GetByID(userID, entryID uint) (*shelf.Entry, error)
	Overview(userID uint) ([]shelf.Entry, error)
}

// BooksController handles add-to-shelf and the my-books listing.
type BooksController struct {
	writer ShelfWriter
	reader ShelfReader
}

func NewBooksController(writer ShelfWriter, reader ShelfReader) *BooksController {
	return &BooksController{writer: writer, reader: reader}
}

type addBookRequest struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Authors  []string `json:"authors"`
	Genres   []string `json:"genres"`
	ISBN     string   `json:"isbn"`
	CoverURL string   `json:"coverUrl"`
	Price    *float64 `json:"price"`
	Format   string   `json:"format"`
	Notes    string   `json:"notes"`
	Status   string   `json:"status"`
	Rating   *int     `json:"rating"`
	ReadYear *int     `json:"readYear"`
}

// Create handles POST /api/books: resolve-or-create the catalog book
// and put it on the acting user's shelf.
func (ctrl *BooksController) Create(c *gin.Context) {
	var req addBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := ctrl.writer.Create(auth.UserID(c), shelf.CreateInput{
		Title:    req.Title,
		Author:   req.Author,
		Authors:  req.Authors,
		Genres:   req.Genres,
		ISBN:     req.ISBN,
		CoverURL: req.CoverURL,
		Price:    req.Price,
		Format:   req.Format,
		Notes:    req.Notes,
		Status:   entities.Status(req.Status),
		Rating:   req.Rating,
		ReadYear: req.ReadYear,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":           true,
		"bookId":       result.BookID,
		"shelfEntryId": result.ShelfEntryID,
	})
}

// List handles GET /api/books: every entry on the user's shelf,
// newest catalog addition first.
func (ctrl *BooksController) List(c *gin.Context) {
	entries, err := ctrl.reader.Overview(auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "books": entries})
}

// Get handles GET /api/books/:id for a single shelf entry.
func (ctrl *BooksController) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	entry, err := ctrl.reader.GetByID(auth.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "book": entry})
}
