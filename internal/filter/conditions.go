package filter

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/meme-sniper/internal/decoder"
)

// LiquidityCondition 初始 SOL 流动性条件
type LiquidityCondition struct {
	BaseCondition
	Threshold decimal.Decimal
}

func (c *LiquidityCondition) Evaluate(candidate *Candidate) bool {
	return c.CompareDecimal(candidate.SolLiquidity, c.Threshold)
}

// TvlCondition 池子总价值条件
type TvlCondition struct {
	BaseCondition
	Threshold decimal.Decimal
}

func (c *TvlCondition) Evaluate(candidate *Candidate) bool {
	return c.CompareDecimal(candidate.Tvl, c.Threshold)
}

// DecimalsCondition 代币精度条件
type DecimalsCondition struct {
	BaseCondition
	Threshold uint8
}

func (c *DecimalsCondition) Evaluate(candidate *Candidate) bool {
	return c.CompareUint(uint64(candidate.Decimals), uint64(c.Threshold))
}

// ProtocolCondition 协议白名单
type ProtocolCondition struct {
	BaseCondition
	Allowed map[decoder.Protocol]struct{}
}

func (c *ProtocolCondition) Evaluate(candidate *Candidate) bool {
	_, ok := c.Allowed[candidate.Protocol]
	return ok
}

// ParseProtocol 协议名转换，不区分大小写
func ParseProtocol(name string) (decoder.Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "raydium":
		return decoder.ProtocolRaydium, nil
	case "pump", "pumpfun", "pump.fun":
		return decoder.ProtocolPump, nil
	default:
		return decoder.ProtocolUnknown, errors.Errorf("unknown protocol %q", name)
	}
}

// ConditionFactory 条件工厂，支持从配置创建条件
type ConditionFactory struct{}

func NewConditionFactory() *ConditionFactory {
	return &ConditionFactory{}
}

func (f *ConditionFactory) CreateLiquidityCondition(name, desc, operator string, sol float64) Condition {
	return &LiquidityCondition{
		BaseCondition: BaseCondition{Name: name, Description: desc, Operator: operator},
		Threshold:     decimal.NewFromFloat(sol),
	}
}

func (f *ConditionFactory) CreateTvlCondition(name, desc, operator string, sol float64) Condition {
	return &TvlCondition{
		BaseCondition: BaseCondition{Name: name, Description: desc, Operator: operator},
		Threshold:     decimal.NewFromFloat(sol),
	}
}

func (f *ConditionFactory) CreateDecimalsCondition(name, desc, operator string, decimals uint8) Condition {
	return &DecimalsCondition{
		BaseCondition: BaseCondition{Name: name, Description: desc, Operator: operator},
		Threshold:     decimals,
	}
}

func (f *ConditionFactory) CreateProtocolCondition(name, desc string, protocols ...decoder.Protocol) Condition {
	allowed := make(map[decoder.Protocol]struct{}, len(protocols))
	for _, p := range protocols {
		allowed[p] = struct{}{}
	}
	return &ProtocolCondition{
		BaseCondition: BaseCondition{Name: name, Description: desc},
		Allowed:       allowed,
	}
}
