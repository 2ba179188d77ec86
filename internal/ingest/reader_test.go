package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qepting91/mikubot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTargets(t *testing.T) {
	path := writeFile(t, "\uFEFFsubreddit,always_topical\n"+
		"MikuNakano,true\n"+
		"r/5ToubunNoHanayome,false\n"+
		"no spaces allowed,true\n"+
		"ab,true\n"+
		"anime\n")

	targets, err := LoadTargets(path)
	require.NoError(t, err)

	assert.Equal(t, []domain.Target{
		{Subreddit: "MikuNakano", AlwaysTopical: true},
		{Subreddit: "5ToubunNoHanayome", AlwaysTopical: false},
		{Subreddit: "anime", AlwaysTopical: false},
	}, targets)
}

func TestLoadTargets_Defaults(t *testing.T) {
	targets, err := LoadTargets("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTargets(), targets)

	var topical int
	for _, tg := range targets {
		if tg.AlwaysTopical {
			topical++
		}
	}
	assert.Equal(t, 3, topical)
}

func TestLoadTargets_Errors(t *testing.T) {
	_, err := LoadTargets(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = LoadTargets(writeFile(t, "subreddit,always_topical\n!!,true\n"))
	assert.Error(t, err)
}

func TestLoadKeywords(t *testing.T) {
	kws, err := LoadKeywords(writeFile(t, "keyword\nMiku\n  Third Sister  \n\nheadphones\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"miku", "third sister", "headphones"}, kws)

	kws, err = LoadKeywords("")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeywords(), kws)
}
