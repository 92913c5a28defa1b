package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// FormatStore lists the fixed format vocabulary.
type FormatStore interface {
	GetAllFormats() ([]entities.Format, error)
}

// FormatsController serves the format vocabulary for the add form's
// dropdown.
type FormatsController struct {
	store FormatStore
}

func NewFormatsController(store FormatStore) *FormatsController {
	return &FormatsController{store: store}
}

type formatResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// List handles GET /api/formats.
func (ctrl *FormatsController) List(c *gin.Context) {
	formats, err := ctrl.store.GetAllFormats()
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]formatResponse, 0, len(formats))
	for _, f := range formats {
		out = append(out, formatResponse{Name: f.Name, DisplayName: f.DisplayName})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "formats": out})
}
