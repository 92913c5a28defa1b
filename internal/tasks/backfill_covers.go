package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/shelfmark/shelfmark/internal/apperrors"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/metadata"
)

// CoverCatalog is the catalog surface the backfill needs: candidates
// and a write that never clobbers an existing cover.
type CoverCatalog interface {
	BooksMissingCovers(limit int) ([]entities.Book, error)
	SetCoverIfMissing(bookID uint, coverURL string) error
}

// BackfillCoversTask fetches cover URLs for catalog books that have an
// ISBN but no cover yet.
type BackfillCoversTask struct {
	// Limit caps how many books one run processes (0 = all).
	Limit int `json:"limit,omitempty"`
}

// Config returns the queue configuration for cover backfill runs.
func (t BackfillCoversTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "backfill_covers",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     15 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// BackfillCoversProcessor walks the candidate books, asks the external
// provider for each ISBN, and fills covers that are still missing.
// A rate-limited provider aborts the run so the retry backoff applies.
func BackfillCoversProcessor(catalog CoverCatalog, provider metadata.Provider) backlite.QueueProcessor[BackfillCoversTask] {
	return func(ctx context.Context, task BackfillCoversTask) error {
		if provider == nil {
			return fmt.Errorf("cover provider not configured")
		}

		books, err := catalog.BooksMissingCovers(task.Limit)
		if err != nil {
			return fmt.Errorf("list cover candidates: %w", err)
		}

		var filled, skipped int
		for _, book := range books {
			if err := ctx.Err(); err != nil {
				return err
			}
			if book.ISBN13 == nil {
				continue
			}

			description, err := provider.FetchByISBN(ctx, *book.ISBN13)
			if errors.Is(err, apperrors.ErrRateLimited) {
				return fmt.Errorf("cover backfill rate limited after %d books: %w", filled, err)
			}
			if err != nil || description.CoverURL == "" {
				skipped++
				continue
			}

			if err := catalog.SetCoverIfMissing(book.ID, description.CoverURL); err != nil {
				return fmt.Errorf("set cover for book %d: %w", book.ID, err)
			}
			filled++
		}

		log.Printf("[TASK] Cover backfill complete: %d candidates, %d filled, %d skipped",
			len(books), filled, skipped)
		return nil
	}
}

// NewBackfillCoversQueue creates a backlite queue for cover backfill
// tasks.
func NewBackfillCoversQueue(catalog CoverCatalog, provider metadata.Provider) backlite.Queue {
	return backlite.NewQueue(BackfillCoversProcessor(catalog, provider))
}
