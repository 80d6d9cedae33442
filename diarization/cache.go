package diarization

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/kbukum/diarizer/redis"
	"github.com/kbukum/diarizer/util"
)

// ResultCache stores model results by audio fingerprint. Get returns
// (nil, nil) on a miss.
type ResultCache interface {
	Get(ctx context.Context, key string) (*Result, error)
	Put(ctx context.Context, key string, result *Result) error
}

// ClientSource yields the Redis client once it is connected. The redis
// component satisfies it.
type ClientSource interface {
	Client() *redis.Client
}

// RedisCache is a ResultCache backed by Redis. Until the client is
// connected every lookup is a miss and writes are dropped.
type RedisCache struct {
	source ClientSource
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache storing entries under prefix for ttl.
func NewRedisCache(source ClientSource, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "diarization"
	}
	return &RedisCache{source: source, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) store() *redis.TypedStore[Result] {
	client := c.source.Client()
	if client == nil {
		return nil
	}
	return redis.NewTypedStore[Result](client, c.prefix)
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Result, error) {
	s := c.store()
	if s == nil {
		return nil, nil
	}
	return s.Load(ctx, key)
}

func (c *RedisCache) Put(ctx context.Context, key string, result *Result) error {
	s := c.store()
	if s == nil {
		return nil
	}
	return s.Save(ctx, key, result, c.ttl)
}

// CacheKey fingerprints the audio together with the speaker hints, since
// the hints change the model output.
func CacheKey(audio []byte, req Request) string {
	h := sha256.New()
	h.Write(audio)
	// Absent hints hash as 0, which no valid hint can be.
	for _, hint := range []*int{req.NumSpeakers, req.MinSpeakers, req.MaxSpeakers} {
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(util.Deref(hint))))
	}
	return hex.EncodeToString(h.Sum(nil))
}
