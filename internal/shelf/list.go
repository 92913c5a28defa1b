package shelf

import (
	"time"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/apperrors"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// Filter restricts a shelf listing. All set fields apply together.
// Status empty means all statuses.
type Filter struct {
	Status entities.Status
	Year   *int   // finish year
	Author string // exact author name, case-insensitive
	Format string // format name
	Query  string // free-text match against title or author
}

// Entry is the read-only listing projection: entry fields plus the
// book basics, format name, and sorted author/genre names.
type Entry struct {
	ShelfEntryID uint            `json:"userBookId"`
	Status       entities.Status `json:"status"`
	Rating       *int            `json:"rating"`
	Notes        *string         `json:"notes"`
	PricePaid    *float64        `json:"pricePaid"`
	StartedAt    *time.Time      `json:"startedAt"`
	FinishedAt   *time.Time      `json:"finishedAt"`
	FinishedYear *int            `json:"finishedYear"`
	Book         BookInfo        `json:"book"`
	Format       string          `json:"format"`
	Authors      []string        `json:"authors"`
	Genres       []string        `json:"genres"`
}

type BookInfo struct {
	ID           uint     `json:"id"`
	Title        string   `json:"title"`
	ISBN13       *string  `json:"isbn13"`
	CoverURL     *string  `json:"coverUrl"`
	DefaultPrice *float64 `json:"defaultPrice"`
}

// List returns the user's entries matching the filter, most recently
// finished first, newest entry breaking ties.
func (s *Service) List(userID uint, f Filter) ([]Entry, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.Validation("status", "must be unread or finished")
	}

	query := s.db.Model(&entities.ShelfEntry{}).
		Joins("JOIN books ON books.id = user_books.book_id").
		Joins("JOIN formats ON formats.id = user_books.format_id").
		Where("user_books.user_id = ?", userID)

	if f.Status != "" {
		query = query.Where("user_books.status = ?", f.Status)
	}
	if f.Year != nil {
		query = query.Where("CAST(strftime('%Y', user_books.finished_at) AS INTEGER) = ?", *f.Year)
	}
	if f.Format != "" {
		query = query.Where("formats.name = ?", f.Format)
	}
	if f.Author != "" {
		query = query.Where(
			`EXISTS (SELECT 1 FROM book_authors ba
			         JOIN authors a ON a.id = ba.author_id
			         WHERE ba.book_id = books.id AND LOWER(a.name) = LOWER(?))`,
			f.Author)
	}
	if f.Query != "" {
		pattern := "%" + f.Query + "%"
		query = query.Where(
			`(LOWER(books.title) LIKE LOWER(?) OR EXISTS
			  (SELECT 1 FROM book_authors ba
			   JOIN authors a ON a.id = ba.author_id
			   WHERE ba.book_id = books.id AND LOWER(a.name) LIKE LOWER(?)))`,
			pattern, pattern)
	}

	var entries []entities.ShelfEntry
	err := query.
		Preload("Book").
		Preload("Book.Authors", sortedByName("authors")).
		Preload("Book.Genres", sortedByName("genres")).
		Preload("Format").
		Order("user_books.finished_at DESC, user_books.id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Storage("list shelf entries", err)
	}

	projections := make([]Entry, 0, len(entries))
	for i := range entries {
		projections = append(projections, project(&entries[i]))
	}
	return projections, nil
}

// GetByID returns one entry projection, owner-scoped.
func (s *Service) GetByID(userID, entryID uint) (*Entry, error) {
	var entry entities.ShelfEntry
	err := s.db.
		Preload("Book").
		Preload("Book.Authors", sortedByName("authors")).
		Preload("Book.Genres", sortedByName("genres")).
		Preload("Format").
		Where("id = ? AND user_id = ?", entryID, userID).
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("shelf entry")
	}
	if err != nil {
		return nil, apperrors.Storage("lookup shelf entry", err)
	}
	projection := project(&entry)
	return &projection, nil
}

// Overview lists everything on the user's shelf ordered by when the
// book first entered the catalog, newest first.
func (s *Service) Overview(userID uint) ([]Entry, error) {
	var entries []entities.ShelfEntry
	err := s.db.Model(&entities.ShelfEntry{}).
		Joins("JOIN books ON books.id = user_books.book_id").
		Where("user_books.user_id = ?", userID).
		Preload("Book").
		Preload("Book.Authors", sortedByName("authors")).
		Preload("Book.Genres", sortedByName("genres")).
		Preload("Format").
		Order("books.created_at DESC, user_books.id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Storage("list shelf overview", err)
	}

	projections := make([]Entry, 0, len(entries))
	for i := range entries {
		projections = append(projections, project(&entries[i]))
	}
	return projections, nil
}

func sortedByName(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(table + ".name ASC")
	}
}

func project(entry *entities.ShelfEntry) Entry {
	projection := Entry{
		ShelfEntryID: entry.ID,
		Status:       entry.Status,
		Rating:       entry.Rating,
		Notes:        entry.Notes,
		PricePaid:    entry.PricePaid,
		StartedAt:    entry.StartedAt,
		FinishedAt:   entry.FinishedAt,
		Format:       entry.Format.Name,
		Book: BookInfo{
			ID:           entry.Book.ID,
			Title:        entry.Book.Title,
			ISBN13:       entry.Book.ISBN13,
			CoverURL:     entry.Book.CoverURL,
			DefaultPrice: entry.Book.DefaultPrice,
		},
		Authors: []string{},
		Genres:  []string{},
	}
	if entry.FinishedAt != nil {
		year := entry.FinishedAt.Year()
		projection.FinishedYear = &year
	}
	for _, author := range entry.Book.Authors {
		projection.Authors = append(projection.Authors, author.Name)
	}
	for _, genre := range entry.Book.Genres {
		projection.Genres = append(projection.Genres, genre.Name)
	}
	return projection
}
