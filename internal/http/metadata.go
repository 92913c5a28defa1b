package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/metadata"
)

// BookLookup resolves an ISBN to a book description, local catalog
// first.
type BookLookup interface {
	Lookup(ctx context.Context, isbn string) (*metadata.Description, error)
}

// MetadataController serves the add-form ISBN lookup.
type MetadataController struct {
	lookup BookLookup
}

func NewMetadataController(lookup BookLookup) *MetadataController {
	return &MetadataController{lookup: lookup}
}

// Lookup handles GET /api/google-books?isbn=. The response carries a
// source field so the form can tell a shelf hit from an external one.
func (ctrl *MetadataController) Lookup(c *gin.Context) {
	description, err := ctrl.lookup.Lookup(c.Request.Context(), c.Query("isbn"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "book": description})
}
