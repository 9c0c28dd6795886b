/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/blnkfinance/recordlist/config"
	redis_db "github.com/blnkfinance/recordlist/internal/redis-db"
	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// Cache is a read-through store for lookups that rarely change, such as accounts and
// nym display names.
type Cache interface {
	// Load fills dst from the cache, or calls load, caches its result for ttl and fills dst
	// from that. Concurrent loads of one key share a single call. Errors from load are
	// returned unchanged and nothing is cached.
	Load(ctx context.Context, key string, dst interface{}, ttl time.Duration, load func() (interface{}, error)) error

	// Evict drops key. Evicting a missing key is not an error.
	Evict(ctx context.Context, key string) error
}

// local entries expire well before the redis copy, so an eviction on one process is
// observed by the others within localTTL.
const (
	localEntries = 16000
	localTTL     = time.Minute
)

// RedisCache keeps values in redis with a TinyLFU cache in front.
type RedisCache struct {
	cache *cache.Cache
}

var _ Cache = (*RedisCache)(nil)

// NewCache connects to the configured redis and returns a Cache.
func NewCache() (Cache, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	client, err := redis_db.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, err
	}
	return NewRedisCache(client.Client()), nil
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{cache: cache.New(&cache.Options{
		Redis:      client,
		LocalCache: cache.NewTinyLFU(localEntries, localTTL),
	})}
}

func (r *RedisCache) Load(ctx context.Context, key string, dst interface{}, ttl time.Duration, load func() (interface{}, error)) error {
	return r.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: dst,
		TTL:   ttl,
		Do: func(*cache.Item) (interface{}, error) {
			return load()
		},
	})
}

func (r *RedisCache) Evict(ctx context.Context, key string) error {
	if err := r.cache.Delete(ctx, key); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return err
	}
	return nil
}
