package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shelfmark/shelfmark/internal/apperrors"
)

// ErrorResponse is the standard error payload for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondError maps the application error taxonomy onto HTTP status
// codes. Storage and unrecognized errors are logged server-side and
// returned as an opaque 500.
func respondError(c *gin.Context, err error) {
	var validation *apperrors.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validation.Error(), Field: validation.Field})
		return
	}

	var notFound *apperrors.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFound.Error()})
		return
	}

	var conflict *apperrors.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: conflict.Error()})
		return
	}

	if errors.Is(err, apperrors.ErrRateLimited) {
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "external metadata source rate limited, try again later"})
		return
	}

	var upstream *apperrors.UpstreamError
	if errors.As(err, &upstream) {
		log.Printf("Upstream error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "external metadata source unavailable"})
		return
	}

	log.Printf("Internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// pathID parses the :id path parameter. A non-numeric id responds 400
// and returns false.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return uint(id), true
}
