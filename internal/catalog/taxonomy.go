package catalog

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shelfmark/shelfmark/internal/apperrors"
	"github.com/shelfmark/shelfmark/internal/entities"
)

// LinkAuthors ensures each name exists as an Author row and is linked
// to the book. Idempotent: linking the same author twice leaves one
// link row. Empty input is a no-op.
func (r *Resolver) LinkAuthors(tx *gorm.DB, bookID uint, names []string) error {
	for _, name := range dedupe(names) {
		author, err := r.findOrCreateAuthor(tx, name)
		if err != nil {
			return err
		}
		link := entities.BookAuthor{BookID: bookID, AuthorID: author.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return apperrors.Storage(fmt.Sprintf("link author %q", name), err)
		}
	}
	return nil
}

// LinkGenres is LinkAuthors for genre labels. Values should already be
// split via SplitGenres; stray slash-separated strings are split here
// as well so callers cannot produce compound genres.
func (r *Resolver) LinkGenres(tx *gorm.DB, bookID uint, values []string) error {
	for _, name := range SplitGenres(values) {
		genre, err := r.findOrCreateGenre(tx, name)
		if err != nil {
			return err
		}
		link := entities.BookGenre{BookID: bookID, GenreID: genre.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return apperrors.Storage(fmt.Sprintf("link genre %q", name), err)
		}
	}
	return nil
}

// findOrCreateAuthor matches case-insensitively so "terry pratchett"
// reuses an existing "Terry Pratchett" row instead of forking it.
func (r *Resolver) findOrCreateAuthor(tx *gorm.DB, name string) (*entities.Author, error) {
	var author entities.Author
	err := tx.Where("LOWER(name) = LOWER(?)", name).First(&author).Error
	if err == nil {
		return &author, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, apperrors.Storage("lookup author", err)
	}

	author = entities.Author{Name: name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&author).Error; err != nil {
		return nil, apperrors.Storage("create author", err)
	}
	if author.ID == 0 {
		// Lost the insert race; the unique index kept the other row.
		if err := tx.Where("LOWER(name) = LOWER(?)", name).First(&author).Error; err != nil {
			return nil, apperrors.Storage("re-lookup author", err)
		}
	}
	return &author, nil
}

func (r *Resolver) findOrCreateGenre(tx *gorm.DB, name string) (*entities.Genre, error) {
	var genre entities.Genre
	err := tx.Where("LOWER(name) = LOWER(?)", name).First(&genre).Error
	if err == nil {
		return &genre, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, apperrors.Storage("lookup genre", err)
	}

	genre = entities.Genre{Name: name}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&genre).Error; err != nil {
		return nil, apperrors.Storage("create genre", err)
	}
	if genre.ID == 0 {
		if err := tx.Where("LOWER(name) = LOWER(?)", name).First(&genre).Error; err != nil {
			return nil, apperrors.Storage("re-lookup genre", err)
		}
	}
	return &genre, nil
}
