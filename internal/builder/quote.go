package builder

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/meme-sniper/internal/model"
)

const (
	bpsDenominator = 10000

	RaydiumFeeBps = 25
	PumpFeeBps    = 100
)

var ErrNoMarket = errors.New("trade has no market reserves")

// Quote 一次提交的数量参数，单位都是链上最小单位
type Quote struct {
	Side        model.Side
	AmountIn    uint64
	ExpectedOut uint64
	MinOut      uint64
}

func dec(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func toUint64(d decimal.Decimal) uint64 {
	if d.Sign() <= 0 {
		return 0
	}
	return d.Floor().BigInt().Uint64()
}

// constantProduct x*y=k 下输入 in 能换出的数量，先扣除手续费
func constantProduct(reserveIn, reserveOut, in uint64, feeBps int64) uint64 {
	if reserveIn == 0 || reserveOut == 0 || in == 0 {
		return 0
	}
	inAfterFee := dec(in).Mul(decimal.NewFromInt(bpsDenominator - feeBps)).Div(decimal.NewFromInt(bpsDenominator))
	out := dec(reserveOut).Mul(inAfterFee).Div(dec(reserveIn).Add(inAfterFee))
	return toUint64(out)
}

// applySlippage 按滑点下调预期数量
func applySlippage(expected, slippageBps uint64) uint64 {
	if slippageBps >= bpsDenominator {
		return 0
	}
	keep := decimal.NewFromInt(int64(bpsDenominator - slippageBps)).Div(decimal.NewFromInt(bpsDenominator))
	return toUint64(dec(expected).Mul(keep))
}

func feeBps(kind model.AmmKind) int64 {
	if kind == model.AmmPump {
		return PumpFeeBps
	}
	return RaydiumFeeBps
}

// QuoteFor 按最近一次储备计算买入或卖出的数量
//
// 买入花费 MaxSpendLamports，卖出数量为买入成交的全部代币。
func QuoteFor(t *model.Trade, side model.Side) (Quote, error) {
	if t.SolReserve == 0 || t.TokenReserve == 0 {
		return Quote{}, errors.Wrapf(ErrNoMarket, "trade %d", t.ID)
	}

	q := Quote{Side: side}
	fee := feeBps(t.Amm.Kind())
	switch side {
	case model.SideBuy:
		q.AmountIn = t.Risk.MaxSpendLamports
		q.ExpectedOut = constantProduct(t.SolReserve, t.TokenReserve, q.AmountIn, fee)
	case model.SideSell:
		q.AmountIn = t.Amount
		q.ExpectedOut = constantProduct(t.TokenReserve, t.SolReserve, q.AmountIn, fee)
	default:
		return Quote{}, errors.Errorf("unknown side %d", side)
	}
	if q.AmountIn == 0 {
		return Quote{}, errors.Errorf("trade %d has nothing to %s", t.ID, side)
	}
	q.MinOut = applySlippage(q.ExpectedOut, t.Risk.SlippageBps)
	return q, nil
}
