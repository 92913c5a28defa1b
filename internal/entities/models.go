package entities

import (
	"time"
)

// Status is the shelf-entry reading status. There is no persisted
// "in progress" state; the UI may layer one on top.
type Status string

const (
	StatusUnread   Status = "unread"
	StatusFinished Status = "finished"
)

// Valid reports whether s is one of the two persisted statuses.
func (s Status) Valid() bool {
	return s == StatusUnread || s == StatusFinished
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:100" json:"username"`
	PasswordHash string    `gorm:"size:100" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Format is one row of the fixed format vocabulary (paperback,
// hardcover, ebook, audiobook). Seeded at startup.
type Format struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:50" json:"name"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Book is a canonical catalog row shared by all users. Nobody owns it;
// shelf entries reference it and may be deleted without touching it.
type Book struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ISBN13       *string   `gorm:"uniqueIndex;size:20" json:"isbn13,omitempty"`
	Title        string    `gorm:"size:512" json:"title"`
	TitleKey     string    `gorm:"index;size:600" json:"-"`
	CoverURL     *string   `gorm:"size:2048" json:"cover_url,omitempty"`
	DefaultPrice *float64  `json:"default_price,omitempty"`
	Authors      []Author  `gorm:"many2many:book_authors" json:"authors,omitempty"`
	Genres       []Genre   `gorm:"many2many:book_genres" json:"genres,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// BookAuthor and BookGenre are the explicit join rows. The composite
// primary key doubles as the no-duplicate-links constraint.
type BookAuthor struct {
	BookID   uint `gorm:"primaryKey"`
	AuthorID uint `gorm:"primaryKey"`
}

type BookGenre struct {
	BookID  uint `gorm:"primaryKey"`
	GenreID uint `gorm:"primaryKey"`
}

// ShelfEntry is the per-user tracking row for one book. At most one
// entry per (user, book) pair; the unique index is the final backstop
// behind the transactional create.
type ShelfEntry struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"uniqueIndex:idx_user_book" json:"user_id"`
	BookID     uint       `gorm:"uniqueIndex:idx_user_book" json:"book_id"`
	FormatID   uint       `gorm:"index" json:"format_id"`
	Status     Status     `gorm:"size:20;default:'unread'" json:"status"`
	Rating     *int       `json:"rating,omitempty"`
	Notes      *string    `gorm:"type:text" json:"notes,omitempty"`
	PricePaid  *float64   `json:"price_paid,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
	Book       Book       `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Format     Format     `gorm:"foreignKey:FormatID" json:"format,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Loan tracks a shelf entry lent out to someone. Open loans have a
// null returned_at and feed the dashboard count.
type Loan struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index" json:"user_id"`
	ShelfEntryID uint       `gorm:"index" json:"shelf_entry_id"`
	LoanedTo     string     `gorm:"size:256" json:"loaned_to"`
	LoanedAt     time.Time  `json:"loaned_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (Format) TableName() string {
	return "formats"
}

func (Book) TableName() string {
	return "books"
}

func (Author) TableName() string {
	return "authors"
}

func (Genre) TableName() string {
	return "genres"
}

func (BookAuthor) TableName() string {
	return "book_authors"
}

func (BookGenre) TableName() string {
	return "book_genres"
}

func (ShelfEntry) TableName() string {
	return "user_books"
}

func (Loan) TableName() string {
	return "loans"
}
