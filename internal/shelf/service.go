// Package shelf owns the per-user tracking record and its status
// lifecycle. Creation runs the whole catalog-resolve, taxonomy-link,
// entry-insert sequence in one transaction so concurrent adds cannot
// interleave between lookup and insert.
package shelf

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/apperrors"
	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// Service implements the shelf entry lifecycle. Every operation takes
// the acting user explicitly; nothing reads ambient session state.
type Service struct {
	db       *gorm.DB
	resolver *catalog.Resolver
}

func NewService(db *gorm.DB, resolver *catalog.Resolver) *Service {
	return &Service{db: db, resolver: resolver}
}

// CreateInput is an add-to-shelf request. Author is the free-text
// comma-separated alternative to Authors; when both are set the list
// wins. Price doubles as the book's suggested price on first sighting
// and the price paid on this entry, mirroring the add form.
type CreateInput struct {
	Title    string
	Author   string
	Authors  []string
	Genres   []string
	ISBN     string
	CoverURL string
	Price    *float64
	Format   string
	Notes    string
	Status   entities.Status
	Rating   *int
	ReadYear *int
}

// CreateResult identifies the catalog row and the new shelf entry.
type CreateResult struct {
	BookID       uint `json:"bookId"`
	ShelfEntryID uint `json:"shelfEntryId"`
}

// Create resolves the book, links authors and genres, and inserts the
// user's shelf entry, all in one transaction. Fails with
// ConflictError when the book is already on the user's shelf.
func (s *Service) Create(userID uint, in CreateInput) (*CreateResult, error) {
	authors := in.Authors
	if len(authors) == 0 {
		authors = catalog.SplitAuthors(in.Author)
	}
	if len(authors) == 0 {
		return nil, apperrors.Validation("author", "must not be blank")
	}

	if !in.Status.Valid() {
		return nil, apperrors.Validation("status", "must be unread or finished")
	}
	if err := validateRating(in.Rating); err != nil {
		return nil, err
	}
	if err := validateYear(in.ReadYear); err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}

	var result CreateResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		format, err := resolveFormat(tx, in.Format)
		if err != nil {
			return err
		}

		book, err := s.resolver.ResolveBook(tx, catalog.BookInput{
			ISBN:           in.ISBN,
			Title:          in.Title,
			CoverURL:       in.CoverURL,
			SuggestedPrice: in.Price,
		}, authors[0])
		if err != nil {
			return err
		}

		if err := s.resolver.LinkAuthors(tx, book.ID, authors); err != nil {
			return err
		}
		if err := s.resolver.LinkGenres(tx, book.ID, in.Genres); err != nil {
			return err
		}

		var existing entities.ShelfEntry
		err = tx.Where("user_id = ? AND book_id = ?", userID, book.ID).First(&existing).Error
		if err == nil {
			return apperrors.Conflict("book is already on your shelf")
		}
		if err != gorm.ErrRecordNotFound {
			return apperrors.Storage("lookup shelf entry", err)
		}

		entry := entities.ShelfEntry{
			UserID:     userID,
			BookID:     book.ID,
			FormatID:   format.ID,
			Status:     in.Status,
			Notes:      trimToNull(in.Notes),
			PricePaid:  in.Price,
			FinishedAt: deriveFinishedAt(in.Status, in.ReadYear),
		}
		// Rating only carries meaning on a finished book.
		if in.Status == entities.StatusFinished {
			entry.Rating = in.Rating
		}

		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("book is already on your shelf")
			}
			return apperrors.Storage("create shelf entry", err)
		}

		result = CreateResult{BookID: book.ID, ShelfEntryID: entry.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// UpdateInput is a partial update: nil fields keep their prior values.
type UpdateInput struct {
	Status       *entities.Status
	Rating       *int
	Notes        *string
	PricePaid    *float64
	Format       *string
	FinishedYear *int
	StartedAt    *time.Time
	LastReadAt   *time.Time
}

// Update applies the supplied fields to the user's entry. Moving to
// finished stamps finished_at (from FinishedYear, or now when unset);
// moving to unread clears finished_at and rating.
func (s *Service) Update(userID, entryID uint, in UpdateInput) error {
	if in.Status != nil && !in.Status.Valid() {
		return apperrors.Validation("status", "must be unread or finished")
	}
	if err := validateRating(in.Rating); err != nil {
		return err
	}
	if err := validateYear(in.FinishedYear); err != nil {
		return err
	}
	if err := validatePrice(in.PricePaid); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var entry entities.ShelfEntry
		err := tx.Where("id = ? AND user_id = ?", entryID, userID).First(&entry).Error
		if err == gorm.ErrRecordNotFound {
			return apperrors.NotFound("shelf entry")
		}
		if err != nil {
			return apperrors.Storage("lookup shelf entry", err)
		}

		if in.Format != nil {
			format, err := resolveFormat(tx, *in.Format)
			if err != nil {
				return err
			}
			entry.FormatID = format.ID
		}
		if in.Rating != nil {
			entry.Rating = in.Rating
		}
		if in.Notes != nil {
			entry.Notes = trimToNull(*in.Notes)
		}
		if in.PricePaid != nil {
			entry.PricePaid = in.PricePaid
		}
		if in.StartedAt != nil {
			entry.StartedAt = in.StartedAt
		}
		if in.LastReadAt != nil {
			entry.LastReadAt = in.LastReadAt
		}
		if in.Status != nil {
			entry.Status = *in.Status
		}

		switch entry.Status {
		case entities.StatusFinished:
			if in.FinishedYear != nil {
				finishedAt := startOfYear(*in.FinishedYear)
				entry.FinishedAt = &finishedAt
			} else if entry.FinishedAt == nil {
				now := time.Now().UTC()
				entry.FinishedAt = &now
			}
		case entities.StatusUnread:
			if in.FinishedYear != nil {
				return apperrors.Validation("finishedYear", "entry is not finished")
			}
			// Back on the to-read pile: derived fields reset.
			entry.FinishedAt = nil
			entry.Rating = nil
		}

		if err := tx.Save(&entry).Error; err != nil {
			return apperrors.Storage("update shelf entry", err)
		}
		return nil
	})
}

// Delete removes only the entry row; the book, its authors, and its
// genres stay in the shared catalog.
func (s *Service) Delete(userID, entryID uint) error {
	result := s.db.Where("id = ? AND user_id = ?", entryID, userID).Delete(&entities.ShelfEntry{})
	if result.Error != nil {
		return apperrors.Storage("delete shelf entry", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("shelf entry")
	}
	return nil
}

func validateRating(rating *int) error {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return apperrors.Validation("rating", "must be between 1 and 5")
	}
	return nil
}

func validateYear(year *int) error {
	if year != nil && (*year < 1000 || *year > 9999) {
		return apperrors.Validation("year", "must be a plausible 4-digit year")
	}
	return nil
}

func validatePrice(price *float64) error {
	if price != nil && *price < 0 {
		return apperrors.Validation("price", "must not be negative")
	}
	return nil
}

// resolveFormat maps a format name to its vocabulary row. Unknown or
// blank names are rejected; there is no silent default format.
func resolveFormat(tx *gorm.DB, name string) (*entities.Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, apperrors.Validation("format", "must not be blank")
	}
	var format entities.Format
	err := tx.Where("name = ?", name).First(&format).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.Validation("format", "unknown format: "+name)
	}
	if err != nil {
		return nil, apperrors.Storage("lookup format", err)
	}
	return &format, nil
}

func deriveFinishedAt(status entities.Status, readYear *int) *time.Time {
	if status != entities.StatusFinished {
		return nil
	}
	if readYear != nil {
		finishedAt := startOfYear(*readYear)
		return &finishedAt
	}
	now := time.Now().UTC()
	return &now
}

func startOfYear(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func trimToNull(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
