package content

import (
	"math/rand"
	"sync"
	"time"
)

// Library hands out facts and captions. It is safe for concurrent use.
type Library struct {
	facts    []string
	captions []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewLibrary returns the built-in facts and captions. A nil rng is seeded
// from the clock.
func NewLibrary(rng *rand.Rand) *Library {
	return NewCustomLibrary(facts, captions, rng)
}

func NewCustomLibrary(factList, captionList []string, rng *rand.Rand) *Library {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Library{facts: factList, captions: captionList, rng: rng}
}

// Facts returns a copy of every fact, in a stable order.
func (l *Library) Facts() []string {
	out := make([]string, len(l.facts))
	copy(out, l.facts)
	return out
}

func (l *Library) RandomFact() string {
	return l.pick(l.facts)
}

func (l *Library) RandomCaption() string {
	return l.pick(l.captions)
}

func (l *Library) pick(list []string) string {
	if len(list) == 0 {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return list[l.rng.Intn(len(list))]
}
