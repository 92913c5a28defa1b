package shelf

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/apperrors"
	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// setupService creates a fresh test database with the shelf service
// wired on top.
func setupService(t *testing.T) (*Service, *database.Database, func()) {
	t.Helper()
	dbPath := "./test_" + t.Name() + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	service := NewService(db.DB, catalog.NewResolver(db.DB))

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return service, db, cleanup
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

func statusPtr(s entities.Status) *entities.Status { return &s }

func TestCreate(t *testing.T) {
	service, db, cleanup := setupService(t)
	defer cleanup()

	t.Run("unread entry with defaults", func(t *testing.T) {
		result, err := service.Create(1, CreateInput{
			Title:  "The Left Hand of Darkness",
			Author: "Ursula K. Le Guin",
			Format: "paperback",
			Status: entities.StatusUnread,
		})
		require.NoError(t, err)
		assert.NotZero(t, result.BookID)
		assert.NotZero(t, result.ShelfEntryID)

		var entry entities.ShelfEntry
		require.NoError(t, db.DB.First(&entry, result.ShelfEntryID).Error)
		assert.Equal(t, entities.StatusUnread, entry.Status)
		assert.Nil(t, entry.FinishedAt)
		assert.Nil(t, entry.Rating)
	})

	t.Run("finished with readYear stamps January first of that year", func(t *testing.T) {
		result, err := service.Create(1, CreateInput{
			Title:    "A Memory Called Empire",
			Author:   "Arkady Martine",
			Format:   "ebook",
			Status:   entities.StatusFinished,
			Rating:   intPtr(5),
			ReadYear: intPtr(2023),
		})
		require.NoError(t, err)

		var entry entities.ShelfEntry
		require.NoError(t, db.DB.First(&entry, result.ShelfEntryID).Error)
		require.NotNil(t, entry.FinishedAt)
		assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), entry.FinishedAt.UTC())
		require.NotNil(t, entry.Rating)
		assert.Equal(t, 5, *entry.Rating)
	})

	t.Run("finished without readYear stamps now", func(t *testing.T) {
		before := time.Now().UTC()
		result, err := service.Create(1, CreateInput{
			Title:  "This Is How You Lose the Time War",
			Author: "Amal El-Mohtar, Max Gladstone",
			Format: "hardcover",
			Status: entities.StatusFinished,
		})
		require.NoError(t, err)

		var entry entities.ShelfEntry
		require.NoError(t, db.DB.First(&entry, result.ShelfEntryID).Error)
		require.NotNil(t, entry.FinishedAt)
		assert.False(t, entry.FinishedAt.Before(before))
	})

	t.Run("rating dropped on unread entries", func(t *testing.T) {
		result, err := service.Create(1, CreateInput{
			Title:  "Too Like the Lightning",
			Author: "Ada Palmer",
			Format: "paperback",
			Status: entities.StatusUnread,
			Rating: intPtr(4),
		})
		require.NoError(t, err)

		var entry entities.ShelfEntry
		require.NoError(t, db.DB.First(&entry, result.ShelfEntryID).Error)
		assert.Nil(t, entry.Rating)
	})

	t.Run("price lands on both entry and book suggestion", func(t *testing.T) {
		result, err := service.Create(1, CreateInput{
			Title:  "Gideon the Ninth",
			Author: "Tamsyn Muir",
			Format: "paperback",
			Status: entities.StatusUnread,
			Price:  floatPtr(12.50),
		})
		require.NoError(t, err)

		var entry entities.ShelfEntry
		require.NoError(t, db.DB.First(&entry, result.ShelfEntryID).Error)
		require.NotNil(t, entry.PricePaid)
		assert.Equal(t, 12.50, *entry.PricePaid)

		var book entities.Book
		require.NoError(t, db.DB.First(&book, result.BookID).Error)
		require.NotNil(t, book.DefaultPrice)
		assert.Equal(t, 12.50, *book.DefaultPrice)
	})

	t.Run("genres linked", func(t *testing.T) {
		result, err := service.Create(1, CreateInput{
			Title:  "The City We Became",
			Author: "N. K. Jemisin",
			Genres: []string{"Fiction / Fantasy", "Urban"},
			Format: "paperback",
			Status: entities.StatusUnread,
		})
		require.NoError(t, err)

		var links int64
		require.NoError(t, db.DB.Model(&entities.BookGenre{}).
			Where("book_id = ?", result.BookID).Count(&links).Error)
		assert.EqualValues(t, 3, links)
	})
}

func TestCreateValidation(t *testing.T) {
	service, _, cleanup := setupService(t)
	defer cleanup()

	base := CreateInput{
		Title:  "Valid Title",
		Author: "Valid Author",
		Format: "paperback",
		Status: entities.StatusUnread,
	}

	t.Run("missing author", func(t *testing.T) {
		in := base
		in.Author = "  "
		_, err := service.Create(1, in)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("bad status", func(t *testing.T) {
		in := base
		in.Status = "reading"
		_, err := service.Create(1, in)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown format is rejected, not defaulted", func(t *testing.T) {
		in := base
		in.Format = "papyrus"
		_, err := service.Create(1, in)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("blank format", func(t *testing.T) {
		in := base
		in.Format = ""
		_, err := service.Create(1, in)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("rating out of range", func(t *testing.T) {
		in := base
		in.Status = entities.StatusFinished
		in.Rating = intPtr(6)
		_, err := service.Create(1, in)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("implausible year", func(t *testing.T) {
		in := base
		in.Status = entities.StatusFinished
		in.ReadYear = intPtr(99)
		_, err := service.Create(1, in)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("negative price", func(t *testing.T) {
		in := base
		in.Price = floatPtr(-1)
		_, err := service.Create(1, in)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestCreateConflict(t *testing.T) {
	service, _, cleanup := setupService(t)
	defer cleanup()

	in := CreateInput{
		Title:  "Exhalation",
		Author: "Ted Chiang",
		ISBN:   "9781101947883",
		Format: "paperback",
		Status: entities.StatusUnread,
	}

	_, err := service.Create(1, in)
	require.NoError(t, err)

	t.Run("same user cannot shelve the same book twice", func(t *testing.T) {
		_, err := service.Create(1, in)
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("another user can shelve the same catalog book", func(t *testing.T) {
		result, err := service.Create(2, in)
		require.NoError(t, err)
		assert.NotZero(t, result.ShelfEntryID)
	})
}

func TestUpdate(t *testing.T) {
	service, db, cleanup := setupService(t)
	defer cleanup()

	created, err := service.Create(1, CreateInput{
		Title:  "Station Eleven",
		Author: "Emily St. John Mandel",
		Format: "paperback",
		Status: entities.StatusUnread,
	})
	require.NoError(t, err)
	entryID := created.ShelfEntryID

	loadEntry := func(t *testing.T) entities.ShelfEntry {
		t.Helper()
		var entry entities.ShelfEntry
		require.NoError(t, db.DB.First(&entry, entryID).Error)
		return entry
	}

	t.Run("finish with a year", func(t *testing.T) {
		err := service.Update(1, entryID, UpdateInput{
			Status:       statusPtr(entities.StatusFinished),
			Rating:       intPtr(4),
			FinishedYear: intPtr(2022),
		})
		require.NoError(t, err)

		entry := loadEntry(t)
		assert.Equal(t, entities.StatusFinished, entry.Status)
		require.NotNil(t, entry.FinishedAt)
		assert.Equal(t, 2022, entry.FinishedAt.UTC().Year())
		require.NotNil(t, entry.Rating)
		assert.Equal(t, 4, *entry.Rating)
	})

	t.Run("year change alone re-stamps finished_at", func(t *testing.T) {
		require.NoError(t, service.Update(1, entryID, UpdateInput{FinishedYear: intPtr(2021)}))

		entry := loadEntry(t)
		require.NotNil(t, entry.FinishedAt)
		assert.Equal(t, time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC), entry.FinishedAt.UTC())
	})

	t.Run("back to unread clears rating and finished_at", func(t *testing.T) {
		require.NoError(t, service.Update(1, entryID, UpdateInput{
			Status: statusPtr(entities.StatusUnread),
		}))

		entry := loadEntry(t)
		assert.Nil(t, entry.FinishedAt)
		assert.Nil(t, entry.Rating)
	})

	t.Run("finishedYear on an unread entry is rejected", func(t *testing.T) {
		err := service.Update(1, entryID, UpdateInput{FinishedYear: intPtr(2020)})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("re-finishing without a year stamps now", func(t *testing.T) {
		before := time.Now().UTC()
		require.NoError(t, service.Update(1, entryID, UpdateInput{
			Status: statusPtr(entities.StatusFinished),
		}))

		entry := loadEntry(t)
		require.NotNil(t, entry.FinishedAt)
		assert.False(t, entry.FinishedAt.Before(before))
	})

	t.Run("notes trim to null", func(t *testing.T) {
		require.NoError(t, service.Update(1, entryID, UpdateInput{Notes: strPtr("  ")}))
		assert.Nil(t, loadEntry(t).Notes)

		require.NoError(t, service.Update(1, entryID, UpdateInput{Notes: strPtr(" loved it ")}))
		entry := loadEntry(t)
		require.NotNil(t, entry.Notes)
		assert.Equal(t, "loved it", *entry.Notes)
	})

	t.Run("format change", func(t *testing.T) {
		require.NoError(t, service.Update(1, entryID, UpdateInput{Format: strPtr("audiobook")}))

		var format entities.Format
		require.NoError(t, db.DB.First(&format, loadEntry(t).FormatID).Error)
		assert.Equal(t, "audiobook", format.Name)
	})

	t.Run("unknown format rejected", func(t *testing.T) {
		err := service.Update(1, entryID, UpdateInput{Format: strPtr("scroll")})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("someone else's entry is not found", func(t *testing.T) {
		err := service.Update(42, entryID, UpdateInput{Rating: intPtr(1)})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDelete(t *testing.T) {
	service, db, cleanup := setupService(t)
	defer cleanup()

	created, err := service.Create(1, CreateInput{
		Title:  "Severance",
		Author: "Ling Ma",
		Format: "paperback",
		Status: entities.StatusUnread,
	})
	require.NoError(t, err)

	t.Run("owner scoping", func(t *testing.T) {
		err := service.Delete(2, created.ShelfEntryID)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("book survives entry deletion", func(t *testing.T) {
		require.NoError(t, service.Delete(1, created.ShelfEntryID))

		var entryCount int64
		require.NoError(t, db.DB.Model(&entities.ShelfEntry{}).
			Where("id = ?", created.ShelfEntryID).Count(&entryCount).Error)
		assert.Zero(t, entryCount)

		var book entities.Book
		assert.NoError(t, db.DB.First(&book, created.BookID).Error)
	})

	t.Run("double delete is not found", func(t *testing.T) {
		err := service.Delete(1, created.ShelfEntryID)
		assert.True(t, apperrors.IsNotFound(err))
	})
}
