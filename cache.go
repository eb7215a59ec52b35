package mdict

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// recordBlockCache holds the single most recently decompressed record block,
// guarded by a mutex since an *Mdict is meant to be shared across goroutines
// (spec.md §5). Scan-mode lookups that repeatedly hit the same block (common
// for alphabetically-clustered batch lookups) skip re-decompression entirely.
type recordBlockCache struct {
	mu      sync.Mutex
	ordinal int
	valid   bool
	data    []byte
}

func (c *recordBlockCache) get(ordinal int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.ordinal == ordinal {
		return c.data, true
	}
	return nil, false
}

func (c *recordBlockCache) put(ordinal int, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ordinal = ordinal
	c.data = data
	c.valid = true
}

// definitionCache is an optional, opt-in Redis-backed cache of fully resolved
// definitions (post-@@@LINK= resolution), keyed by dictionary fingerprint and
// adapted key, so repeated lookups across process restarts skip the whole
// decode pipeline. Absent a *redis.Client (the default), it is a no-op.
type definitionCache struct {
	rdb         *redis.Client
	fingerprint string
}

func newDefinitionCache(rdb *redis.Client, fingerprint string) *definitionCache {
	return &definitionCache{rdb: rdb, fingerprint: fingerprint}
}

func (d *definitionCache) key(adaptedKey string) string {
	return fmt.Sprintf("mdict:%s:%s", d.fingerprint, adaptedKey)
}

func (d *definitionCache) get(ctx context.Context, adaptedKey string) (string, bool) {
	if d.rdb == nil {
		return "", false
	}
	v, err := d.rdb.Get(ctx, d.key(adaptedKey)).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (d *definitionCache) put(ctx context.Context, adaptedKey, def string) {
	if d.rdb == nil {
		return
	}
	// Best effort: a cache write failure must never fail a lookup that already succeeded.
	_ = d.rdb.Set(ctx, d.key(adaptedKey), def, 0).Err()
}
