package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/qepting91/mikubot/internal/domain"
	"github.com/qepting91/mikubot/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqSource returns its records in order, then nil.
type seqSource struct {
	records []*domain.ContentRecord
	err     error
	calls   int
}

func (s *seqSource) Name() string { return "seq" }

func (s *seqSource) FetchOne(context.Context) (*domain.ContentRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.calls > len(s.records) {
		return nil, nil
	}
	return s.records[s.calls-1], nil
}

func newStore(t *testing.T) *history.Store {
	t.Helper()
	return history.NewStore(&history.MemoryBackend{}, history.WithLogger(slog.New(slog.DiscardHandler)))
}

func rec(url string) *domain.ContentRecord {
	return &domain.ContentRecord{ImageURL: url, Source: "seq - " + url}
}

func TestFetchUnique_SkipsKnown(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	known := rec("https://a.com/1.jpg")
	store.AddToHistory(ctx, history.CategoryURLs, known.ImageURL, known)

	src := &seqSource{records: []*domain.ContentRecord{known, rec("https://a.com/2.jpg")}}
	got, err := FetchUnique(ctx, src, store, 10)
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/2.jpg", got.ImageURL)
	assert.Equal(t, 2, src.calls)
}

func TestFetchUnique_BudgetExhausted(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	dup := rec("https://a.com/dup.jpg")
	store.AddToHistory(ctx, history.CategoryURLs, dup.ImageURL, dup)

	records := make([]*domain.ContentRecord, 20)
	for i := range records {
		records[i] = dup
	}

	for _, attempts := range []int{1, 3, 10} {
		t.Run(fmt.Sprintf("attempts=%d", attempts), func(t *testing.T) {
			src := &seqSource{records: records}
			got, err := FetchUnique(ctx, src, store, attempts)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrDuplicatesExhausted)
			assert.Equal(t, attempts, src.calls, "the source is called exactly once per attempt")
		})
	}
}

func TestFetchUnique_SourceExhausted(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	empty := &seqSource{}
	_, err := FetchUnique(ctx, empty, store, 10)
	assert.ErrorIs(t, err, ErrSourceExhausted)
	assert.Equal(t, 1, empty.calls, "a nil result aborts immediately")

	upstream := errors.New("timeout")
	failing := &seqSource{err: upstream}
	_, err = FetchUnique(ctx, failing, store, 10)
	assert.ErrorIs(t, err, ErrSourceExhausted)
	assert.ErrorIs(t, err, upstream)
	assert.Equal(t, 1, failing.calls)
}

func TestFetchUnique_MatchesByFingerprintAndID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	posted := &domain.ContentRecord{ImageURL: "https://i.redd.it/a.jpg", Caption: "Miku!", Source: "Reddit r/MikuNakano - u/x", ID: "abc"}
	store.AddToHistory(ctx, history.CategoryURLs, posted.ImageURL, posted)

	sameID := &domain.ContentRecord{ImageURL: "https://i.imgur.com/other.jpg", Source: "Reddit r/churchofmiku - u/y", ID: "abc"}
	samePrint := &domain.ContentRecord{ImageURL: "https://i.redd.it/a.jpg?w=640", Caption: "miku", Source: posted.Source}

	src := &seqSource{records: []*domain.ContentRecord{sameID, samePrint}}
	_, err := FetchUnique(ctx, src, store, 2)
	assert.ErrorIs(t, err, ErrDuplicatesExhausted)
}

func TestFetchUnique_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &seqSource{records: []*domain.ContentRecord{rec("https://a.com/1.jpg")}}
	_, err := FetchUnique(ctx, src, newStore(t), 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.calls)
}

type fixedFacts struct {
	all  []string
	next int
}

func (f *fixedFacts) RandomFact() string {
	if len(f.all) == 0 {
		return ""
	}
	fact := f.all[f.next%len(f.all)]
	f.next++
	return fact
}

func (f *fixedFacts) Facts() []string { return f.all }

func TestPickFact(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	facts := &fixedFacts{all: []string{"f1", "f2", "f3"}}

	store.AddToHistory(ctx, history.CategoryFacts, "f1", nil)

	fact, rotated, err := PickFact(ctx, facts, store, 10)
	require.NoError(t, err)
	assert.Equal(t, "f2", fact)
	assert.False(t, rotated)
}

func TestPickFact_RotatesWhenAllPosted(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	facts := &fixedFacts{all: []string{"f1", "f2", "f3"}}

	for _, f := range []string{"f2", "f3", "f1"} {
		store.AddToHistory(ctx, history.CategoryFacts, f, nil)
	}

	fact, rotated, err := PickFact(ctx, facts, store, 5)
	require.NoError(t, err)
	assert.True(t, rotated)
	assert.Equal(t, "f2", fact, "least recently posted")

	store.Refresh(ctx, history.CategoryFacts, fact)
	fact, _, err = PickFact(ctx, facts, store, 5)
	require.NoError(t, err)
	assert.Equal(t, "f3", fact)
}

func TestPickFact_NoFacts(t *testing.T) {
	_, _, err := PickFact(context.Background(), &fixedFacts{}, newStore(t), 5)
	assert.ErrorIs(t, err, ErrSourceExhausted)
}
