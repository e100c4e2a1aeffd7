// Package filter 新池入场条件
package filter

import (
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/decoder"
)

// Config 入场条件配置，阈值为 0 表示不限制
type Config struct {
	MinSolLiquidity float64  `json:"min_sol_liquidity" yaml:"min_sol_liquidity"`
	MaxSolLiquidity float64  `json:"max_sol_liquidity" yaml:"max_sol_liquidity"`
	MinTvl          float64  `json:"min_tvl" yaml:"min_tvl"`
	Protocols       []string `json:"protocols" yaml:"protocols"` // 为空时两种协议都允许
}

// FromConfig 按配置组合出 AND 条件
func FromConfig(cfg Config) (Condition, error) {
	f := NewConditionFactory()
	b := NewBuilder().Name("entry").Description("新池入场条件")

	protocols := []decoder.Protocol{decoder.ProtocolRaydium, decoder.ProtocolPump}
	if len(cfg.Protocols) > 0 {
		protocols = protocols[:0]
		for _, name := range cfg.Protocols {
			p, err := ParseProtocol(name)
			if err != nil {
				return nil, errors.Wrap(err, "filter protocols")
			}
			protocols = append(protocols, p)
		}
	}
	b.And(f.CreateProtocolCondition("protocol", "协议白名单", protocols...))

	if cfg.MinSolLiquidity > 0 && cfg.MaxSolLiquidity > 0 && cfg.MinSolLiquidity > cfg.MaxSolLiquidity {
		return nil, errors.Errorf("min_sol_liquidity %v greater than max_sol_liquidity %v", cfg.MinSolLiquidity, cfg.MaxSolLiquidity)
	}
	if cfg.MinSolLiquidity > 0 {
		b.And(f.CreateLiquidityCondition("min_liquidity", "初始流动性下限", ">=", cfg.MinSolLiquidity))
	}
	if cfg.MaxSolLiquidity > 0 {
		b.And(f.CreateLiquidityCondition("max_liquidity", "初始流动性上限", "<=", cfg.MaxSolLiquidity))
	}
	if cfg.MinTvl > 0 {
		b.And(f.CreateTvlCondition("min_tvl", "池子总价值下限", ">=", cfg.MinTvl))
	}
	return b.Build(), nil
}
