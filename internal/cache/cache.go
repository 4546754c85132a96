package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis with a swallow-and-log error policy: backend
// failures surface as a miss (Get) or false (Set), never as an error,
// so callers degrade instead of crashing.
type Cache struct {
	client *redis.Client
}

func Connect(redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &Cache{client: client}, nil
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		slog.Error("cache get failed, treating as miss", "key", key, "error", err)
		return "", false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key string, payload string, ttl time.Duration) bool {
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		slog.Error("cache set failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		slog.Error("cache delete failed", "key", key, "error", err)
	}
}

// DeletePattern removes every key matching the glob pattern. Used for
// bulk cache clearing; scans instead of KEYS to stay cursor-bounded.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) int {
	var deleted int
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			slog.Error("cache delete failed", "key", iter.Val(), "error", err)
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		slog.Error("cache scan failed", "pattern", pattern, "error", err)
	}
	return deleted
}

func (c *Cache) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Entry pairs a payload with the moment it was written so readers can
// judge staleness independently of Redis expiry.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func (e Entry) StaleAfter(ttl time.Duration) bool {
	return time.Since(e.Timestamp) > ttl
}

// GetEntry reads and decodes an Entry. A decode failure counts as a
// miss: a corrupt record must not poison the pipeline.
func (c *Cache) GetEntry(ctx context.Context, key string) (Entry, bool) {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		slog.Error("cache entry decode failed, treating as miss", "key", key, "error", err)
		return Entry{}, false
	}
	return entry, true
}

func (c *Cache) SetEntry(ctx context.Context, key string, payload any, ttl time.Duration) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("cache entry encode failed", "key", key, "error", err)
		return false
	}
	entry, err := json.Marshal(Entry{Timestamp: time.Now(), Payload: body})
	if err != nil {
		slog.Error("cache entry encode failed", "key", key, "error", err)
		return false
	}
	return c.Set(ctx, key, string(entry), ttl)
}
