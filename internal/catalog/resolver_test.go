package catalog

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/apperrors"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	dbPath := "./test_" + t.Name() + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db.DB, cleanup
}

func TestResolveBook(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	resolver := NewResolver(db)

	t.Run("creates book on first sighting", func(t *testing.T) {
		book, err := resolver.ResolveBook(db, BookInput{
			Title: "The Fifth Season",
			ISBN:  "978-0-316-22929-6",
		}, "N. K. Jemisin")
		require.NoError(t, err)
		require.NotNil(t, book.ISBN13)
		assert.Equal(t, "9780316229296", *book.ISBN13)
		assert.Equal(t, "the fifth season", book.TitleKey)
	})

	t.Run("same ISBN with different punctuation reuses the row", func(t *testing.T) {
		first, err := resolver.ResolveBook(db, BookInput{
			Title: "Ancillary Justice",
			ISBN:  "978-0-316-24662-0",
		}, "Ann Leckie")
		require.NoError(t, err)

		second, err := resolver.ResolveBook(db, BookInput{
			Title: "ANCILLARY JUSTICE (reissue)",
			ISBN:  "9780316246620",
		}, "Ann Leckie")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("blank title rejected", func(t *testing.T) {
		_, err := resolver.ResolveBook(db, BookInput{Title: "   "}, "")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("title fallback dedupes without ISBN", func(t *testing.T) {
		first, err := resolver.ResolveBook(db, BookInput{Title: "Piranesi"}, "Susanna Clarke")
		require.NoError(t, err)
		require.NoError(t, resolver.LinkAuthors(db, first.ID, []string{"Susanna Clarke"}))

		second, err := resolver.ResolveBook(db, BookInput{Title: "  piranesi "}, "Susanna Clarke")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("same title different author stays distinct", func(t *testing.T) {
		first, err := resolver.ResolveBook(db, BookInput{Title: "Circe"}, "Madeline Miller")
		require.NoError(t, err)
		require.NoError(t, resolver.LinkAuthors(db, first.ID, []string{"Madeline Miller"}))

		second, err := resolver.ResolveBook(db, BookInput{Title: "Circe"}, "Someone Else")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})
}

func TestCoverBackfill(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	resolver := NewResolver(db)

	t.Run("fills a missing cover on re-resolution", func(t *testing.T) {
		book, err := resolver.ResolveBook(db, BookInput{
			Title: "Annihilation",
			ISBN:  "9780374104092",
		}, "Jeff VanderMeer")
		require.NoError(t, err)
		require.Nil(t, book.CoverURL)

		book, err = resolver.ResolveBook(db, BookInput{
			Title:    "Annihilation",
			ISBN:     "9780374104092",
			CoverURL: "http://books.google.com/annihilation.jpg",
		}, "Jeff VanderMeer")
		require.NoError(t, err)
		require.NotNil(t, book.CoverURL)
		// http rewritten to https on the way in
		assert.Equal(t, "https://books.google.com/annihilation.jpg", *book.CoverURL)
	})

	t.Run("never overwrites an existing cover", func(t *testing.T) {
		book, err := resolver.ResolveBook(db, BookInput{
			Title:    "Annihilation",
			ISBN:     "9780374104092",
			CoverURL: "https://elsewhere.example/other.jpg",
		}, "Jeff VanderMeer")
		require.NoError(t, err)
		require.NotNil(t, book.CoverURL)
		assert.Equal(t, "https://books.google.com/annihilation.jpg", *book.CoverURL)
	})

	t.Run("SetCoverIfMissing respects a present cover", func(t *testing.T) {
		var book entities.Book
		require.NoError(t, db.Where("isbn13 = ?", "9780374104092").First(&book).Error)

		require.NoError(t, resolver.SetCoverIfMissing(book.ID, "https://elsewhere.example/late.jpg"))

		require.NoError(t, db.First(&book, book.ID).Error)
		assert.Equal(t, "https://books.google.com/annihilation.jpg", *book.CoverURL)
	})
}

func TestLinkAuthorsAndGenres(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	resolver := NewResolver(db)

	book, err := resolver.ResolveBook(db, BookInput{Title: "Good Omens"}, "Terry Pratchett")
	require.NoError(t, err)

	t.Run("authors created once and linked", func(t *testing.T) {
		require.NoError(t, resolver.LinkAuthors(db, book.ID, []string{"Terry Pratchett", "Neil Gaiman"}))
		// repeat with different casing must not duplicate anything
		require.NoError(t, resolver.LinkAuthors(db, book.ID, []string{"terry pratchett", "Neil Gaiman"}))

		var count int64
		require.NoError(t, db.Model(&entities.Author{}).Count(&count).Error)
		assert.EqualValues(t, 2, count)

		require.NoError(t, db.Model(&entities.BookAuthor{}).Where("book_id = ?", book.ID).Count(&count).Error)
		assert.EqualValues(t, 2, count)
	})

	t.Run("genres split on slash before linking", func(t *testing.T) {
		require.NoError(t, resolver.LinkGenres(db, book.ID, []string{"Fiction / Humor", "Fantasy"}))

		var genres []entities.Genre
		require.NoError(t, db.Order("name ASC").Find(&genres).Error)
		names := make([]string, 0, len(genres))
		for _, g := range genres {
			names = append(names, g.Name)
		}
		assert.Equal(t, []string{"Fantasy", "Fiction", "Humor"}, names)
	})
}

func TestFindByISBN(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	resolver := NewResolver(db)

	book, err := resolver.ResolveBook(db, BookInput{
		Title: "The Dispossessed",
		ISBN:  "9780061054884",
	}, "Ursula K. Le Guin")
	require.NoError(t, err)
	require.NoError(t, resolver.LinkAuthors(db, book.ID, []string{"Ursula K. Le Guin"}))

	t.Run("hit preloads authors", func(t *testing.T) {
		found, err := resolver.FindByISBN("978-0-06-105488-4")
		require.NoError(t, err)
		assert.Equal(t, book.ID, found.ID)
		require.Len(t, found.Authors, 1)
		assert.Equal(t, "Ursula K. Le Guin", found.Authors[0].Name)
	})

	t.Run("miss is NotFound", func(t *testing.T) {
		_, err := resolver.FindByISBN("9999999999999")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestBooksMissingCovers(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	resolver := NewResolver(db)

	withCover, err := resolver.ResolveBook(db, BookInput{
		Title:    "Dune",
		ISBN:     "9780441013593",
		CoverURL: "https://covers.example/dune.jpg",
	}, "Frank Herbert")
	require.NoError(t, err)

	missing, err := resolver.ResolveBook(db, BookInput{
		Title: "Hyperion",
		ISBN:  "9780553283686",
	}, "Dan Simmons")
	require.NoError(t, err)

	// no ISBN, not a candidate even without a cover
	_, err = resolver.ResolveBook(db, BookInput{Title: "Untraceable Pamphlet"}, "Anonymous")
	require.NoError(t, err)

	candidates, err := resolver.BooksMissingCovers(0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, missing.ID, candidates[0].ID)
	assert.NotEqual(t, withCover.ID, candidates[0].ID)
}
