// internal/pipeline/knowledge-store/cache.go
package knowledgestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"clinical-decision-pipeline/internal/common/genai"
	"clinical-decision-pipeline/internal/common/logger"
)

const embeddingCachePrefix = "emb:"

// CachedEmbedder puts a Redis cache-aside layer in front of an Embedder. It is
// used for query embeddings; ingest batches go straight to the service.
type CachedEmbedder struct {
	next   genai.Embedder
	redis  *redis.Client
	model  string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedEmbedder(next genai.Embedder, client *redis.Client, model string, ttl time.Duration, log logger.Logger) *CachedEmbedder {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedEmbedder{
		next:   next,
		redis:  client,
		model:  model,
		ttl:    ttl,
		logger: logger.ForComponent(log, "embedding-cache"),
	}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return embeddingCachePrefix + hex.EncodeToString(sum[:])
}

// Embed serves each text from cache when present and embeds the rest in one call.
// Cache errors are logged and otherwise ignored.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []int

	for i, t := range texts {
		val, err := c.redis.Get(ctx, c.key(t)).Result()
		if err == nil {
			var vec []float32
			if json.Unmarshal([]byte(val), &vec) == nil {
				out[i] = vec
				continue
			}
		} else if err != redis.Nil {
			c.logger.Warn("embedding cache read failed", map[string]interface{}{"error": err.Error()})
		}
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vecs, err := c.next.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}

	for j, i := range missing {
		if j >= len(vecs) {
			break
		}
		out[i] = vecs[j]
		data, _ := json.Marshal(vecs[j])
		if err := c.redis.Set(ctx, c.key(texts[i]), data, c.ttl).Err(); err != nil {
			c.logger.Warn("embedding cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return out, nil
}
