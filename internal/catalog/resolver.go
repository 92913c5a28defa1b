// Package catalog resolves incoming book descriptions into canonical
// catalog rows and links them to normalized author and genre entities.
//
// Books, authors, and genres are shared across users; resolution is
// find-or-create, dedup preferring the normalized ISBN-13 and falling
// back to normalized title plus primary author. Every write path is
// expected to run inside the caller's transaction, with the unique
// indexes on isbn13, author name, and genre name as the final backstop
// against concurrent inserts.
package catalog

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/apperrors"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// BookInput is an incoming book description, typically assembled from
// an add-to-shelf request or an external metadata result.
type BookInput struct {
	ISBN           string
	Title          string
	CoverURL       string
	SuggestedPrice *float64
}

// Resolver find-or-creates canonical Book, Author, and Genre rows.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveBook returns the canonical Book for the given description,
// creating it on first sighting. primaryAuthor strengthens the title
// fallback so two distinct books sharing a title do not collapse into
// one row; it plays no part when an ISBN matches.
//
// When an existing book is found, a missing cover is backfilled from
// the input; a cover already present is never overwritten.
func (r *Resolver) ResolveBook(tx *gorm.DB, in BookInput, primaryAuthor string) (*entities.Book, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.Validation("title", "must not be blank")
	}

	isbn := NormalizeISBN(in.ISBN)

	if isbn != "" {
		var book entities.Book
		err := tx.Where("isbn13 = ?", isbn).First(&book).Error
		if err == nil {
			return r.backfillCover(tx, &book, in.CoverURL)
		}
		if err != gorm.ErrRecordNotFound {
			return nil, apperrors.Storage("lookup book by isbn", err)
		}
	} else {
		book, err := r.findByTitle(tx, title, primaryAuthor)
		if err != nil {
			return nil, err
		}
		if book != nil {
			return r.backfillCover(tx, book, in.CoverURL)
		}
	}

	book := entities.Book{
		Title:        title,
		TitleKey:     TitleKey(title),
		DefaultPrice: in.SuggestedPrice,
	}
	if isbn != "" {
		book.ISBN13 = &isbn
	}
	if cover := secureCoverURL(strings.TrimSpace(in.CoverURL)); cover != "" {
		book.CoverURL = &cover
	}

	if err := tx.Create(&book).Error; err != nil {
		// A concurrent request may have inserted the same ISBN between
		// our lookup and this create; the unique index wins, we reuse
		// the row it protected.
		if isbn != "" {
			var existing entities.Book
			if lookupErr := tx.Where("isbn13 = ?", isbn).First(&existing).Error; lookupErr == nil {
				return &existing, nil
			}
		}
		return nil, apperrors.Storage("create book", err)
	}

	return &book, nil
}

// findByTitle is the ISBN-less fallback: normalized title, narrowed by
// the primary author's name when one is supplied.
func (r *Resolver) findByTitle(tx *gorm.DB, title, primaryAuthor string) (*entities.Book, error) {
	query := tx.Model(&entities.Book{}).Where("books.title_key = ?", TitleKey(title))

	author := strings.TrimSpace(primaryAuthor)
	if author != "" {
		query = query.
			Joins("JOIN book_authors ON book_authors.book_id = books.id").
			Joins("JOIN authors ON authors.id = book_authors.author_id").
			Where("LOWER(authors.name) = LOWER(?)", author)
	}

	var book entities.Book
	err := query.First(&book).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("lookup book by title", err)
	}
	return &book, nil
}

func (r *Resolver) backfillCover(tx *gorm.DB, book *entities.Book, coverURL string) (*entities.Book, error) {
	cover := secureCoverURL(strings.TrimSpace(coverURL))
	if cover == "" || book.CoverURL != nil {
		return book, nil
	}

	if err := tx.Model(book).Update("cover_url", cover).Error; err != nil {
		return nil, apperrors.Storage("backfill cover", err)
	}
	book.CoverURL = &cover
	return book, nil
}

// FindByISBN looks up a catalog book by normalized ISBN with its
// authors and genres preloaded. Returns NotFoundError on a miss; the
// metadata pipeline uses that to decide whether to go external.
func (r *Resolver) FindByISBN(isbn string) (*entities.Book, error) {
	clean := NormalizeISBN(isbn)
	if clean == "" {
		return nil, apperrors.Validation("isbn", "must contain digits")
	}

	var book entities.Book
	err := r.db.Preload("Authors", func(db *gorm.DB) *gorm.DB {
		return db.Order("authors.name ASC")
	}).Preload("Genres", func(db *gorm.DB) *gorm.DB {
		return db.Order("genres.name ASC")
	}).Where("isbn13 = ?", clean).First(&book).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("book")
	}
	if err != nil {
		return nil, apperrors.Storage("lookup book by isbn", err)
	}
	return &book, nil
}

// BooksMissingCovers returns catalog books with an ISBN but no cover,
// candidates for the background cover backfill.
func (r *Resolver) BooksMissingCovers(limit int) ([]entities.Book, error) {
	var books []entities.Book
	query := r.db.Where("cover_url IS NULL AND isbn13 IS NOT NULL").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&books).Error; err != nil {
		return nil, apperrors.Storage("list books missing covers", err)
	}
	return books, nil
}

// SetCoverIfMissing fills a book's cover without overwriting one that
// appeared in the meantime.
func (r *Resolver) SetCoverIfMissing(bookID uint, coverURL string) error {
	cover := secureCoverURL(strings.TrimSpace(coverURL))
	if cover == "" {
		return nil
	}
	err := r.db.Model(&entities.Book{}).
		Where("id = ? AND cover_url IS NULL", bookID).
		Update("cover_url", cover).Error
	if err != nil {
		return apperrors.Storage(fmt.Sprintf("set cover for book %d", bookID), err)
	}
	return nil
}

// DB exposes the resolver's handle so owners of multi-step writes can
// open a transaction spanning resolution and linking.
func (r *Resolver) DB() *gorm.DB {
	return r.db
}
