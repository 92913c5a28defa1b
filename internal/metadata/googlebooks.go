package metadata

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/shelfmark/shelfmark/internal/apperrors"
	"github.com/shelfmark/shelfmark/internal/config"
)

// GoogleBooksClient fetches book descriptions from the Google Books
// volumes API. The API key is optional and only attached when set.
type GoogleBooksClient struct {
	client *resty.Client
	apiKey string
}

func NewGoogleBooksClient(cfg config.GoogleBooks) *GoogleBooksClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "Shelfmark/1.0 (https://github.com/shelfmark/shelfmark)")

	return &GoogleBooksClient{
		client: client,
		apiKey: cfg.APIKey,
	}
}

// FetchByISBN returns the first matching volume for an already
// normalized ISBN. HTTP 429 surfaces as ErrRateLimited; any other
// failure as UpstreamError; an empty result set as NotFoundError.
func (c *GoogleBooksClient) FetchByISBN(ctx context.Context, isbn string) (*Description, error) {
	var result volumesResponse

	request := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", "isbn:"+isbn).
		SetQueryParam("maxResults", "1").
		SetResult(&result)
	if c.apiKey != "" {
		request.SetQueryParam("key", c.apiKey)
	}

	response, err := request.Get("/volumes")
	if err != nil {
		return nil, apperrors.Upstream(fmt.Errorf("fetch volume: %w", err))
	}
	if response.StatusCode() == http.StatusTooManyRequests {
		return nil, apperrors.ErrRateLimited
	}
	if response.IsError() {
		return nil, apperrors.Upstream(fmt.Errorf("unexpected status: %d", response.StatusCode()))
	}

	if len(result.Items) == 0 {
		return nil, apperrors.NotFound("book")
	}

	return mapVolume(&result.Items[0], isbn), nil
}

// mapVolume flattens a Google volume into the normalized shape.
// ISBN-13 is preferred over ISBN-10, then the queried ISBN.
func mapVolume(item *volumeItem, fallbackISBN string) *Description {
	info := item.VolumeInfo

	isbn := fallbackISBN
	if id := findIdentifier(info.IndustryIdentifiers, "ISBN_13"); id != "" {
		isbn = id
	} else if id := findIdentifier(info.IndustryIdentifiers, "ISBN_10"); id != "" {
		isbn = id
	}

	categories := make([]string, 0, len(info.Categories))
	for _, category := range info.Categories {
		if trimmed := strings.TrimSpace(category); trimmed != "" {
			categories = append(categories, trimmed)
		}
	}

	coverURL := info.ImageLinks.Thumbnail
	if coverURL == "" {
		coverURL = info.ImageLinks.SmallThumbnail
	}

	description := &Description{
		Title:      info.Title,
		Author:     strings.Join(info.Authors, ", "),
		Authors:    info.Authors,
		Categories: categories,
		ISBN:       isbn,
		CoverURL:   coverURL,
	}
	if info.Description != "" {
		text := info.Description
		description.Text = &text
	}
	// publishedDate is "YYYY" or "YYYY-MM-DD"; the year prefix is all
	// we keep.
	if len(info.PublishedDate) >= 4 {
		if year, err := strconv.Atoi(info.PublishedDate[:4]); err == nil {
			description.PublishedYear = &year
		}
	}

	return description
}

func findIdentifier(identifiers []industryIdentifier, kind string) string {
	for _, id := range identifiers {
		if id.Type == kind {
			return id.Identifier
		}
	}
	return ""
}

// Google Books API response types (internal)

type volumesResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	Categories          []string             `json:"categories"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	IndustryIdentifiers []industryIdentifier `json:"industryIdentifiers"`
	ImageLinks          imageLinks           `json:"imageLinks"`
}

type industryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type imageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
}
