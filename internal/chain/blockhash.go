package chain

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/pkg/logger"
)

const blockhashKey = "latest_blockhash"

type blockhashGetter interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// BlockhashCache 后台定时刷新 recent blockhash，读取不阻塞
//
// 条目 TTL 为刷新间隔的若干倍，刷新连续失败时过期，此时读取返回零值。
type BlockhashCache struct {
	client     blockhashGetter
	commitment rpc.CommitmentType
	interval   time.Duration
	ttl        time.Duration
	cache      *ttlCache
}

func NewBlockhashCache(client blockhashGetter, commitment rpc.CommitmentType, interval time.Duration) (*BlockhashCache, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	c, err := newTTLCache(CacheConfig{NumCounters: 100, MaxCost: 10, BufferItems: 64})
	if err != nil {
		return nil, err
	}
	return &BlockhashCache{
		client:     client,
		commitment: commitment,
		interval:   interval,
		ttl:        interval * 30,
		cache:      c,
	}, nil
}

// Latest 最近一次刷新得到的 blockhash，没有可用值时返回零值
func (b *BlockhashCache) Latest() solana.Hash {
	v, ok := b.cache.Get(blockhashKey)
	if !ok {
		return solana.Hash{}
	}
	return v.(solana.Hash)
}

// Refresh 立即拉取一次
func (b *BlockhashCache) Refresh(ctx context.Context) error {
	out, err := b.client.GetLatestBlockhash(ctx, b.commitment)
	if err != nil {
		return errors.Wrap(err, "getLatestBlockhash")
	}
	if out == nil || out.Value == nil {
		return errors.New("getLatestBlockhash returned empty value")
	}
	b.cache.Set(blockhashKey, out.Value.Blockhash, b.ttl)
	return nil
}

// Run 阻塞刷新直到 ctx 结束
func (b *BlockhashCache) Run(ctx context.Context) {
	if err := b.Refresh(ctx); err != nil {
		logger.Warn("⚠️ 首次获取blockhash失败", logger.FieldErr(err))
	}
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Refresh(ctx); err != nil {
				logger.Warn("⚠️ 刷新blockhash失败", logger.FieldErr(err))
			}
		}
	}
}

func (b *BlockhashCache) Close() {
	b.cache.Close()
}
