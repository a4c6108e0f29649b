package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/adaptran/internal"
)

func key(text string) internal.CacheKey {
	return internal.CacheKey{Text: text, SourceLang: "en", TargetLang: "fr", OptimizationLevel: internal.LevelSemantic}
}

func TestMemoryStore_DefaultSize(t *testing.T) {
	s := NewMemoryStore(0)
	assert.Equal(t, DefaultMaxEntries, s.maxEntries)
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)

	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(ctx, &internal.CacheEntry{Key: key(text), Translation: text}))
	}

	// touch "a" so "b" becomes the eviction candidate
	got, err := s.Load(ctx, key("a"))
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, s.Save(ctx, &internal.CacheEntry{Key: key("d"), Translation: "d"}))

	n, _ := s.Len(ctx)
	assert.Equal(t, 3, n)

	evicted, _ := s.Load(ctx, key("b"))
	assert.Nil(t, evicted)
	for _, text := range []string{"a", "c", "d"} {
		e, _ := s.Load(ctx, key(text))
		assert.NotNil(t, e, "expected %q to survive", text)
	}
}

func TestMemoryStore_UpdateDoesNotGrow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(ctx, &internal.CacheEntry{Key: key("same"), Translation: fmt.Sprint(i)}))
	}

	n, _ := s.Len(ctx)
	assert.Equal(t, 1, n)
	e, _ := s.Load(ctx, key("same"))
	require.NotNil(t, e)
	assert.Equal(t, "4", e.Translation)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	orig := &internal.CacheEntry{Key: key("x"), Translation: "x"}
	require.NoError(t, s.Save(ctx, orig))

	orig.Translation = "mutated"
	loaded, _ := s.Load(ctx, key("x"))
	require.NotNil(t, loaded)
	assert.Equal(t, "x", loaded.Translation)

	loaded.HitCount = 99
	again, _ := s.Load(ctx, key("x"))
	assert.Equal(t, int64(0), again.HitCount)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	require.NoError(t, s.Save(ctx, &internal.CacheEntry{Key: key("x")}))

	require.NoError(t, s.Delete(ctx, key("x")))
	require.NoError(t, s.Delete(ctx, key("missing")))

	e, _ := s.Load(ctx, key("x"))
	assert.Nil(t, e)
	n, _ := s.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestMemoryStore_RecordHit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	require.NoError(t, s.Save(ctx, &internal.CacheEntry{Key: key("a"), Translation: "A"}))

	hit, err := s.RecordHit(ctx, key("a"))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, int64(1), hit.HitCount)

	stored, err := s.Load(ctx, key("a"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.HitCount)
	assert.Equal(t, int64(1), stored.AccessCount)
}

func TestMemoryStore_RecordHitMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	require.NoError(t, s.Save(ctx, &internal.CacheEntry{Key: key("a"), Translation: "A"}))
	require.NoError(t, s.Delete(ctx, key("a")))

	hit, err := s.RecordHit(ctx, key("a"))
	require.NoError(t, err)
	assert.Nil(t, hit)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
