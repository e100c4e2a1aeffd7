package chain

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
)

type supplyGetter interface {
	GetTokenSupply(ctx context.Context, tokenMint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
}

// DecimalsResolver 查询代币精度，结果缓存
type DecimalsResolver struct {
	client supplyGetter
	cache  *ttlCache
	ttl    time.Duration
}

func NewDecimalsResolver(client supplyGetter, cfg CacheConfig, ttl time.Duration) (*DecimalsResolver, error) {
	if cfg.MaxCost == 0 {
		cfg = defaultCacheConfig()
	}
	c, err := newTTLCache(cfg)
	if err != nil {
		return nil, err
	}
	return &DecimalsResolver{client: client, cache: c, ttl: ttl}, nil
}

func (r *DecimalsResolver) Resolve(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	key := mint.String()
	if v, ok := r.cache.Get(key); ok {
		return v.(uint8), nil
	}

	out, err := r.client.GetTokenSupply(ctx, mint, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, errors.Wrapf(err, "getTokenSupply %s", mint)
	}
	if out == nil || out.Value == nil {
		return 0, errors.Errorf("getTokenSupply %s returned empty value", mint)
	}
	r.cache.Set(key, out.Value.Decimals, r.ttl)
	return out.Value.Decimals, nil
}

func (r *DecimalsResolver) Close() {
	r.cache.Close()
}
