package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "promptgenie:emb:"

// RedisCache is a VectorCache shared between service replicas. Vectors are
// stored as little-endian float32 bytes under a hash of the model and text.
type RedisCache struct {
	rdb   *redis.Client
	model string
	ttl   time.Duration
}

// NewRedisCache connects to the Redis server at url (redis://host:port/db or
// a bare host:port). model namespaces the keys so different embedding models
// never share vectors.
func NewRedisCache(ctx context.Context, url, model string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opt.Addr, err)
	}
	return &RedisCache{rdb: rdb, model: model, ttl: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		return nil, false
	}
	vec, err := decodeVector(b)
	if err != nil {
		return nil, false
	}
	return vec, true
}

func (r *RedisCache) Set(ctx context.Context, key string, vec []float32) {
	_ = r.rdb.Set(ctx, r.key(key), encodeVector(vec), r.ttl).Err()
}

// Close closes the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.rdb.Close()
}

func (r *RedisCache) key(text string) string {
	sum := sha256.Sum256([]byte(r.model + "\x00" + text))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	b := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector: %d bytes", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return vec, nil
}
