// Package dedup keeps asking a source for content until it produces
// something the history store has not seen.
package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/qepting91/mikubot/internal/domain"
	"github.com/qepting91/mikubot/internal/history"
)

var (
	// ErrSourceExhausted means the source had nothing to offer. Retrying the
	// same source in the same cycle is pointless.
	ErrSourceExhausted = errors.New("source returned no content")

	// ErrDuplicatesExhausted means every candidate within the attempt budget
	// had already been posted.
	ErrDuplicatesExhausted = errors.New("no unseen content within attempt budget")
)

// History is the read side of the history store.
type History interface {
	IsInHistory(ctx context.Context, category, token string, rec *domain.ContentRecord) bool
}

// FactHistory adds the lookup used to rotate facts once all have been posted.
type FactHistory interface {
	History
	LeastRecent(ctx context.Context, category string, candidates []string) (string, bool)
}

// FactSource is satisfied by content.Library.
type FactSource interface {
	RandomFact() string
	Facts() []string
}

// FetchUnique calls src at most attempts times and returns the first record
// whose URL, fingerprint and ID are all absent from hist.
func FetchUnique(ctx context.Context, src domain.Source, hist History, attempts int) (*domain.ContentRecord, error) {
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := src.FetchOne(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceExhausted, src.Name(), err)
		}
		if rec == nil || rec.ImageURL == "" {
			return nil, fmt.Errorf("%w: %s", ErrSourceExhausted, src.Name())
		}

		if !hist.IsInHistory(ctx, history.CategoryURLs, rec.ImageURL, rec) {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts", ErrDuplicatesExhausted, src.Name(), attempts)
}

// PickFact draws random facts until one has not been posted. When the
// budget runs out it falls back to the least recently posted fact and
// reports rotated=true; the caller should Refresh that fact after posting.
func PickFact(ctx context.Context, facts FactSource, hist FactHistory, attempts int) (fact string, rotated bool, err error) {
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		fact = facts.RandomFact()
		if fact == "" {
			return "", false, ErrSourceExhausted
		}
		if !hist.IsInHistory(ctx, history.CategoryFacts, fact, nil) {
			return fact, false, nil
		}
	}

	if oldest, ok := hist.LeastRecent(ctx, history.CategoryFacts, facts.Facts()); ok {
		return oldest, true, nil
	}
	return "", false, ErrDuplicatesExhausted
}
