package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_MissingFile(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "nope.json"))

	data, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFileBackend_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(filepath.Join(dir, "nested", "history.json"))
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, []byte(`{"urls":["a"]}`)))
	require.NoError(t, b.Save(ctx, []byte(`{"urls":["a","b"]}`)))

	data, err := b.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"urls":["a","b"]}`, string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileBackend_UnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	b := NewFileBackend(filepath.Join(blocker, "history.json"))
	assert.Error(t, b.Save(context.Background(), []byte("{}")))
}

func TestBoltBackend(t *testing.T) {
	// the data directory does not exist on a fresh deploy
	path := filepath.Join(t.TempDir(), "data", "history.db")
	ctx := context.Background()

	b, err := NewBoltBackend(path)
	require.NoError(t, err)

	data, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	store := NewStore(b)
	store.AddToHistory(ctx, CategoryPostIDs, "t3xyz", nil)
	require.NoError(t, b.Close())

	reopened, err := NewBoltBackend(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, NewStore(reopened).IsInHistory(ctx, CategoryPostIDs, "t3xyz", nil))
}

func newTestRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBackend(client, ""), mr
}

func TestRedisBackend(t *testing.T) {
	b, mr := newTestRedisBackend(t)
	ctx := context.Background()

	data, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	store := NewStore(b)
	store.AddToHistory(ctx, CategoryFacts, "Miku's favourite warlord is Date Masamune.", nil)

	raw, err := mr.Get(DefaultRedisKey)
	require.NoError(t, err)
	assert.Contains(t, raw, "Date Masamune")
	assert.True(t, store.IsInHistory(ctx, CategoryFacts, "Miku's favourite warlord is Date Masamune.", nil))
}

func TestRedisBackend_Unavailable(t *testing.T) {
	b, mr := newTestRedisBackend(t)
	mr.Close()
	ctx := context.Background()

	_, err := b.Load(ctx)
	assert.Error(t, err)
	assert.Error(t, b.Save(ctx, []byte("{}")))

	// the store degrades instead of failing
	store := NewStore(b)
	assert.False(t, store.IsInHistory(ctx, CategoryURLs, "https://a.com/x.jpg", nil))
	assert.NotPanics(t, func() { store.AddToHistory(ctx, CategoryURLs, "https://a.com/x.jpg", nil) })
}
