// Package metadata resolves an ISBN into a normalized book
// description. The local catalog is consulted first; the external
// source is only called on a local miss, which keeps results
// deterministic for already-cataloged titles and external traffic low.
package metadata

import (
	"context"
	"strings"

	"github.com/shelfmark/shelfmark/internal/apperrors"
	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// Source tags for a resolved description.
const (
	SourceLocal    = "local"
	SourceExternal = "external"
)

// Description is the normalized shape both lookup paths produce.
type Description struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Authors       []string `json:"authors"`
	Categories    []string `json:"categories"`
	PublishedYear *int     `json:"publishedYear"`
	ISBN          string   `json:"isbn"`
	Text          *string  `json:"description"`
	CoverURL      string   `json:"coverUrl,omitempty"`
	DefaultPrice  *float64 `json:"defaultPrice,omitempty"`
	Source        string   `json:"source"`
}

// LocalCatalog is the catalog lookup the resolver tries first.
type LocalCatalog interface {
	FindByISBN(isbn string) (*entities.Book, error)
}

// Provider fetches a description from the external metadata source.
type Provider interface {
	FetchByISBN(ctx context.Context, isbn string) (*Description, error)
}

// Resolver is the local-first metadata resolution pipeline.
type Resolver struct {
	local    LocalCatalog
	provider Provider
}

func NewResolver(local LocalCatalog, provider Provider) *Resolver {
	return &Resolver{local: local, provider: provider}
}

// Lookup resolves an ISBN to a Description. A local hit returns
// immediately without touching the external source. RateLimited and
// UpstreamError pass through untouched so the caller can distinguish
// a retryable throttle from a permanent miss.
func (r *Resolver) Lookup(ctx context.Context, isbn string) (*Description, error) {
	clean := catalog.NormalizeISBN(isbn)
	if clean == "" {
		return nil, apperrors.Validation("isbn", "must contain digits")
	}

	book, err := r.local.FindByISBN(clean)
	if err == nil {
		return fromBook(book, clean), nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	description, err := r.provider.FetchByISBN(ctx, clean)
	if err != nil {
		return nil, err
	}
	description.Source = SourceExternal
	return description, nil
}

// fromBook assembles the normalized shape from a catalog row and its
// linked authors and genres. Published year and description text are
// not kept locally and stay null.
func fromBook(book *entities.Book, fallbackISBN string) *Description {
	authors := make([]string, 0, len(book.Authors))
	for _, author := range book.Authors {
		authors = append(authors, author.Name)
	}
	categories := make([]string, 0, len(book.Genres))
	for _, genre := range book.Genres {
		categories = append(categories, genre.Name)
	}

	description := &Description{
		Title:        book.Title,
		Author:       strings.Join(authors, ", "),
		Authors:      authors,
		Categories:   categories,
		ISBN:         fallbackISBN,
		DefaultPrice: book.DefaultPrice,
		Source:       SourceLocal,
	}
	if book.ISBN13 != nil {
		description.ISBN = *book.ISBN13
	}
	if book.CoverURL != nil {
		description.CoverURL = *book.CoverURL
	}
	return description
}
