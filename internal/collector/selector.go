package collector

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/qepting91/mikubot/internal/domain"
)

const fallbackSuffix = " (Fallback - may not be Miku)"

// Fetch outcomes reported to the fetch hook.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Selector is the image source the jobs use. It tries the character
// specific sources in random order and only then the generic fallbacks.
type Selector struct {
	primaries []domain.Source
	fallbacks []domain.Source
	rng       *lockedRand
	logger    *slog.Logger
	onFetch   func(source, outcome string)
}

type SelectorOption func(*Selector)

func WithSelectorLogger(l *slog.Logger) SelectorOption {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFetchHook registers a callback run after every adapter call.
func WithFetchHook(fn func(source, outcome string)) SelectorOption {
	return func(s *Selector) { s.onFetch = fn }
}

func NewSelector(primaries, fallbacks []domain.Source, rng *rand.Rand, opts ...SelectorOption) *Selector {
	s := &Selector{
		primaries: primaries,
		fallbacks: fallbacks,
		rng:       newLockedRand(rng),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Selector) Name() string { return "images" }

// FetchOne never returns an error. Adapter failures are logged and the next
// adapter is tried; nil means every adapter came back empty.
func (s *Selector) FetchOne(ctx context.Context) (*domain.ContentRecord, error) {
	order := make([]domain.Source, len(s.primaries))
	copy(order, s.primaries)
	s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for _, src := range order {
		if rec := s.try(ctx, src); rec != nil {
			return rec, nil
		}
	}

	for _, src := range s.fallbacks {
		if rec := s.try(ctx, src); rec != nil {
			s.logger.Warn("Using fallback image source", "source", src.Name())
			out := *rec
			out.Source += fallbackSuffix
			return &out, nil
		}
	}

	s.logger.Error("All image sources failed")
	return nil, nil
}

func (s *Selector) try(ctx context.Context, src domain.Source) *domain.ContentRecord {
	rec, err := src.FetchOne(ctx)
	switch {
	case err != nil:
		s.logger.Error("Image source failed", "source", src.Name(), "err", err)
		s.report(src.Name(), OutcomeError)
		return nil
	case rec == nil || rec.ImageURL == "":
		s.report(src.Name(), OutcomeEmpty)
		return nil
	default:
		s.report(src.Name(), OutcomeOK)
		return rec
	}
}

func (s *Selector) report(source, outcome string) {
	if s.onFetch != nil {
		s.onFetch(source, outcome)
	}
}
