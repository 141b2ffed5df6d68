package embeddings

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCodec(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestRedisCacheKeysAreModelScoped(t *testing.T) {
	a := &RedisCache{model: "nomic-embed-text"}
	b := &RedisCache{model: "text-embedding-3-small"}
	assert.NotEqual(t, a.key("q"), b.key("q"))
	assert.Equal(t, a.key("q"), a.key("q"))
	assert.Contains(t, a.key("q"), redisKeyPrefix)
}

// TestRedisCacheRoundTrip needs a live server, e.g.
// PROMPTGENIE_TEST_REDIS_URL=redis://localhost:6379/15.
func TestRedisCacheRoundTrip(t *testing.T) {
	url := os.Getenv("PROMPTGENIE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PROMPTGENIE_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	rc, err := NewRedisCache(ctx, url, "test-"+time.Now().Format(time.RFC3339Nano), time.Minute)
	require.NoError(t, err)
	defer rc.Close()

	inner := &countingEmbedder{}
	c := NewCachedEmbedderWithStore(inner, rc)

	_, err = c.Embed(ctx, []string{"hello"})
	require.NoError(t, err)
	v, err := EmbedOne(ctx, c, "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 1}, v)
	assert.Len(t, inner.calls, 1)
}

func TestMemoryCacheDimensionMismatchIsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCache(0)
	store.Set(ctx, "q", []float32{9})

	inner := &countingEmbedder{}
	v, err := EmbedOne(ctx, NewCachedEmbedderWithStore(inner, store), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1}, v)
	assert.Len(t, inner.calls, 1)
}
