// Package stats computes the read-only dashboard aggregates over a
// user's shelf entries. Everything is queried fresh per call; there is
// no caching layer to invalidate.
package stats

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/apperrors"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// LoanCounter is the optional loan-tracking collaborator. When absent
// the dashboard reports zero open loans.
type LoanCounter interface {
	CountOpenLoans(userID uint) (int64, error)
}

type Service struct {
	db    *gorm.DB
	loans LoanCounter
}

// NewService creates the aggregation service. loans may be nil.
func NewService(db *gorm.DB, loans LoanCounter) *Service {
	return &Service{db: db, loans: loans}
}

// Dashboard is the aggregate statistics payload.
type Dashboard struct {
	Total      int64     `json:"total"`
	YearRead   int64     `json:"yearRead"`
	SpendTotal float64   `json:"spendTotal"`
	LoansOpen  int64     `json:"loansOpen"`
	Year       int       `json:"year"`
	LastRead   *LastRead `json:"lastRead"`
}

// LastRead is the most recently finished entry's book.
type LastRead struct {
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	CoverURL *string `json:"cover_url"`
}

// ForUser computes the dashboard for one user against the current
// calendar year.
func (s *Service) ForUser(userID uint) (*Dashboard, error) {
	year := time.Now().Year()
	dashboard := &Dashboard{Year: year}

	err := s.db.Model(&entities.ShelfEntry{}).
		Where("user_id = ?", userID).
		Count(&dashboard.Total).Error
	if err != nil {
		return nil, apperrors.Storage("count shelf entries", err)
	}

	err = s.db.Model(&entities.ShelfEntry{}).
		Where("user_id = ? AND status = ? AND finished_at IS NOT NULL", userID, entities.StatusFinished).
		Where("strftime('%Y', finished_at) = ?", strconv.Itoa(year)).
		Count(&dashboard.YearRead).Error
	if err != nil {
		return nil, apperrors.Storage("count books read this year", err)
	}

	// Spend falls back from the price actually paid to the book's
	// suggested price, then to zero.
	err = s.db.Model(&entities.ShelfEntry{}).
		Select("COALESCE(SUM(COALESCE(user_books.price_paid, books.default_price, 0)), 0)").
		Joins("JOIN books ON books.id = user_books.book_id").
		Where("user_books.user_id = ?", userID).
		Scan(&dashboard.SpendTotal).Error
	if err != nil {
		return nil, apperrors.Storage("sum spend", err)
	}

	lastRead, err := s.lastRead(userID)
	if err != nil {
		return nil, err
	}
	dashboard.LastRead = lastRead

	if s.loans != nil {
		loansOpen, err := s.loans.CountOpenLoans(userID)
		if err != nil {
			return nil, apperrors.Storage("count open loans", err)
		}
		dashboard.LoansOpen = loansOpen
	}

	return dashboard, nil
}

func (s *Service) lastRead(userID uint) (*LastRead, error) {
	var entry entities.ShelfEntry
	err := s.db.
		Preload("Book").
		Preload("Book.Authors", func(db *gorm.DB) *gorm.DB {
			return db.Order("authors.name ASC")
		}).
		Where("user_id = ? AND status = ? AND finished_at IS NOT NULL", userID, entities.StatusFinished).
		Order("finished_at DESC, id DESC").
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage("lookup last read entry", err)
	}

	names := make([]string, 0, len(entry.Book.Authors))
	for _, author := range entry.Book.Authors {
		names = append(names, author.Name)
	}

	return &LastRead{
		Title:    entry.Book.Title,
		Author:   strings.Join(names, ", "),
		CoverURL: entry.Book.CoverURL,
	}, nil
}
