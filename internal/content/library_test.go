package content

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLibrary_BuiltIns(t *testing.T) {
	lib := NewLibrary(rand.New(rand.NewSource(1)))

	assert.Len(t, lib.Facts(), 50)
	assert.Contains(t, lib.Facts(), lib.RandomFact())
	assert.Contains(t, captions, lib.RandomCaption())

	seen := map[string]bool{}
	for _, f := range lib.Facts() {
		assert.False(t, seen[f], "duplicate fact %q", f)
		seen[f] = true
	}
}

func TestLibrary_SeededIsReproducible(t *testing.T) {
	a := NewLibrary(rand.New(rand.NewSource(99)))
	b := NewLibrary(rand.New(rand.NewSource(99)))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.RandomFact(), b.RandomFact())
	}
}

func TestLibrary_FactsIsACopy(t *testing.T) {
	lib := NewCustomLibrary([]string{"a", "b"}, nil, nil)
	got := lib.Facts()
	got[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, lib.Facts())
	assert.Empty(t, lib.RandomCaption())
}
