package knowledgestore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_CacheAside(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := &wordEmbedder{}
	cached := NewCachedEmbedder(inner, client, "test-model", time.Minute, createTestLogger(t))
	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"fever and cough"})
	require.NoError(t, err)
	second, err := cached.Embed(ctx, []string{"fever and cough"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, inner.calls(), 1)

	key := cached.key("fever and cough")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestCachedEmbedder_OnlyMissesGoUpstream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	inner := &wordEmbedder{}
	cached := NewCachedEmbedder(inner, client, "test-model", time.Minute, createTestLogger(t))
	ctx := context.Background()

	_, err := cached.Embed(ctx, []string{"rash"})
	require.NoError(t, err)
	out, err := cached.Embed(ctx, []string{"rash", "headache"})
	require.NoError(t, err)

	require.Len(t, out, 2)
	calls := inner.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"headache"}, calls[1])
}

func TestCachedEmbedder_RedisDownStillEmbeds(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	inner := &wordEmbedder{}
	cached := NewCachedEmbedder(inner, client, "test-model", time.Minute, createTestLogger(t))

	out, err := cached.Embed(context.Background(), []string{"asthma"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestCachedEmbedder_KeyDependsOnModel(t *testing.T) {
	a := NewCachedEmbedder(&wordEmbedder{}, nil, "model-a", 0, createTestLogger(t))
	b := NewCachedEmbedder(&wordEmbedder{}, nil, "model-b", 0, createTestLogger(t))

	assert.NotEqual(t, a.key("fever"), b.key("fever"))
	assert.Equal(t, a.key("fever"), a.key("fever"))
}
