// Package position 持仓缓存，只允许引擎主循环访问
package position

import (
	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/meme-sniper/internal/model"
)

// Cache 按 id 与代币地址双索引的持仓缓存
//
// 不加锁，所有调用必须来自同一个 goroutine。
type Cache struct {
	byID    map[int64]*model.Trade
	byAsset map[solana.PublicKey]map[int64]struct{}
}

func NewCache() *Cache {
	return &Cache{
		byID:    make(map[int64]*model.Trade),
		byAsset: make(map[solana.PublicKey]map[int64]struct{}),
	}
}

// Upsert 按 id 插入或替换
func (c *Cache) Upsert(t *model.Trade) {
	if old, ok := c.byID[t.ID]; ok && old.Asset() != t.Asset() {
		c.unindex(old.ID, old.Asset())
	}

	c.byID[t.ID] = t
	bucket, ok := c.byAsset[t.Asset()]
	if !ok {
		bucket = make(map[int64]struct{})
		c.byAsset[t.Asset()] = bucket
	}
	bucket[t.ID] = struct{}{}
}

// Remove 按 id 删除，桶为空时一并删除
func (c *Cache) Remove(t *model.Trade) {
	old, ok := c.byID[t.ID]
	if !ok {
		return
	}
	delete(c.byID, t.ID)
	c.unindex(old.ID, old.Asset())
}

func (c *Cache) unindex(id int64, asset solana.PublicKey) {
	bucket, ok := c.byAsset[asset]
	if !ok {
		return
	}
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(c.byAsset, asset)
	}
}

func (c *Cache) GetByID(id int64) (*model.Trade, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// GetByAsset 返回持有该代币的所有仓位，没有时返回空切片
func (c *Cache) GetByAsset(asset solana.PublicKey) []*model.Trade {
	bucket, ok := c.byAsset[asset]
	if !ok {
		return []*model.Trade{}
	}
	out := make([]*model.Trade, 0, len(bucket))
	for id := range bucket {
		out = append(out, c.byID[id])
	}
	return out
}

// HasAsset 是否有仓位持有该代币
func (c *Cache) HasAsset(asset solana.PublicKey) bool {
	_, ok := c.byAsset[asset]
	return ok
}

func (c *Cache) Len() int {
	return len(c.byID)
}

// Range 遍历所有仓位，fn 返回 false 时停止
func (c *Cache) Range(fn func(t *model.Trade) bool) {
	for _, t := range c.byID {
		if !fn(t) {
			return
		}
	}
}
