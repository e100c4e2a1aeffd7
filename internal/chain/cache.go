package chain

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
)

// CacheConfig ristretto 缓存参数
type CacheConfig struct {
	NumCounters int64 `json:"num_counters" yaml:"num_counters"` // 跟踪频率的 key 数量，一般为最大条目数的 10 倍
	MaxCost     int64 `json:"max_cost" yaml:"max_cost"`         // 最大条目数，每个条目计 1
	BufferItems int64 `json:"buffer_items" yaml:"buffer_items"`
}

func defaultCacheConfig() CacheConfig {
	return CacheConfig{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	}
}

// ttlCache 按条目计数的 ristretto 缓存
type ttlCache struct {
	cache *ristretto.Cache
}

func newTTLCache(cfg CacheConfig) (*ttlCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new ristretto cache")
	}
	return &ttlCache{cache: c}, nil
}

func (c *ttlCache) Get(key string) (interface{}, bool) {
	return c.cache.Get(key)
}

// Set 写入并等待生效，ttl 为 0 表示不过期
func (c *ttlCache) Set(key string, value interface{}, ttl time.Duration) bool {
	ok := c.cache.SetWithTTL(key, value, 1, ttl)
	c.cache.Wait()
	return ok
}

func (c *ttlCache) Close() {
	c.cache.Close()
}
