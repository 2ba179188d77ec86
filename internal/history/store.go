package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/qepting91/mikubot/internal/domain"
)

// Categories of the history document.
const (
	CategoryURLs           = "urls"
	CategoryNormalizedURLs = "normalized_urls"
	CategoryFacts          = "facts"
	CategoryContentHashes  = "content_hashes"
	CategoryPostIDs        = "post_ids"
)

// DefaultMaxEntries caps every category; the oldest entries go first.
const DefaultMaxEntries = 1000

var categories = []string{
	CategoryURLs,
	CategoryNormalizedURLs,
	CategoryFacts,
	CategoryContentHashes,
	CategoryPostIDs,
}

// document is the persisted form: category name -> tokens in insertion order.
type document map[string][]string

func emptyDocument() document {
	doc := make(document, len(categories))
	for _, c := range categories {
		doc[c] = []string{}
	}
	return doc
}

// Store records what has already been posted. Every call reloads the whole
// document from the backend and every mutation writes it back in full.
type Store struct {
	backend    Backend
	maxEntries int
	logger     *slog.Logger
	mu         sync.Mutex
}

type Option func(*Store)

// WithMaxEntries overrides the per-category cap.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:    backend,
		maxEntries: DefaultMaxEntries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// load never fails: a missing or unreadable document yields an empty one.
func (s *Store) load(ctx context.Context) document {
	data, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Error("Loading post history failed", "backend", s.backend.Name(), "err", err)
		return emptyDocument()
	}
	if len(data) == 0 {
		return emptyDocument()
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Error("Post history is corrupt, starting empty", "backend", s.backend.Name(), "err", err)
		return emptyDocument()
	}
	if doc == nil {
		doc = document{}
	}
	for _, c := range categories {
		if doc[c] == nil {
			doc[c] = []string{}
		}
	}
	return doc
}

// save logs and swallows failures; losing a write only risks a repost.
func (s *Store) save(ctx context.Context, doc document) {
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error("Encoding post history failed", "err", err)
		return
	}
	if err := s.backend.Save(ctx, data); err != nil {
		s.logger.Error("Saving post history failed", "backend", s.backend.Name(), "err", err)
	}
}

// IsInHistory reports whether token, or anything identifying rec, was
// posted before. The checks are OR-ed: literal token, normalized URL (urls
// category only), fingerprint of rec, provider ID of rec.
func (s *Store) IsInHistory(ctx context.Context, category, token string, rec *domain.ContentRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)

	if token != "" && slices.Contains(doc[category], token) {
		return true
	}
	if category == CategoryURLs && token != "" &&
		slices.Contains(doc[CategoryNormalizedURLs], NormalizeURL(token)) {
		return true
	}
	if rec == nil {
		return false
	}
	if fp := Fingerprint(*rec); fp != "" && slices.Contains(doc[CategoryContentHashes], fp) {
		return true
	}
	return rec.ID != "" && slices.Contains(doc[CategoryPostIDs], rec.ID)
}

// AddToHistory records token under category, plus the normalized URL for
// the urls category and the fingerprint and ID of rec when given. Inserting
// a token that is already present is a no-op.
func (s *Store) AddToHistory(ctx context.Context, category, token string, rec *domain.ContentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)

	s.insert(doc, category, token)
	if category == CategoryURLs && token != "" {
		s.insert(doc, CategoryNormalizedURLs, NormalizeURL(token))
	}
	if rec != nil {
		s.insert(doc, CategoryContentHashes, Fingerprint(*rec))
		s.insert(doc, CategoryPostIDs, rec.ID)
	}

	s.save(ctx, doc)
}

func (s *Store) insert(doc document, category, token string) {
	if token == "" || slices.Contains(doc[category], token) {
		return
	}
	entries := append(doc[category], token)
	if over := len(entries) - s.maxEntries; over > 0 {
		entries = entries[over:]
	}
	doc[category] = entries
}

// Refresh moves an existing token to the most recent position. Unknown
// tokens are ignored, so the category size never changes.
func (s *Store) Refresh(ctx context.Context, category, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	idx := slices.Index(doc[category], token)
	if idx < 0 {
		return
	}
	entries := slices.Delete(doc[category], idx, idx+1)
	doc[category] = append(entries, token)

	s.save(ctx, doc)
}

// LeastRecent returns the candidate that was recorded longest ago. A
// candidate missing from the category counts as older than any recorded one.
func (s *Store) LeastRecent(ctx context.Context, category string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	best, bestIdx := "", len(doc[category])+1
	for _, c := range candidates {
		idx := slices.Index(doc[category], c)
		if idx < 0 {
			return c, true
		}
		if idx < bestIdx {
			best, bestIdx = c, idx
		}
	}
	return best, true
}

// Stats returns the number of tokens per category.
func (s *Store) Stats(ctx context.Context) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(ctx)
	stats := make(map[string]int, len(doc))
	for c, tokens := range doc {
		stats[c] = len(tokens)
	}
	return stats
}
