// Package trader 仓位状态机
//
// 所有函数都是纯函数：输入的 Trade 不会被修改，变更写在返回的副本上，
// 由引擎主循环负责写回缓存并执行副作用。
package trader

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/decoder"
	"github.com/ninja0404/meme-sniper/internal/model"
)

var (
	ErrDecimalsUnresolved = errors.New("token decimals unresolved before pricing")
	ErrProtocolMismatch   = errors.New("event protocol does not match trade amm")
	ErrAssetMismatch      = errors.New("event mint does not match trade asset")
)

// Transition 以一条池子事件驱动仓位状态
func Transition(t *model.Trade, ev decoder.PoolEvent, sig solana.Signature, now time.Time) (Outcome, error) {
	if ev.Kind() == decoder.KindWithdraw {
		return Outcome{Trade: t.Clone(), Effects: []Effect{EffectAnomaly}}, nil
	}
	if err := checkProtocol(t, ev); err != nil {
		return Outcome{}, err
	}

	c := t.Clone()
	resolveDecimals(c, ev)
	decimals, ok := c.Amm.Decimals()
	if !ok {
		return Outcome{}, errors.Wrapf(ErrDecimalsUnresolved, "trade %d mint %s", c.ID, c.Asset())
	}

	sol, token := decoder.SolSide(ev.Next(), c.Amm.PcIsSol())
	m := decoder.Quote(sol, token, decimals)
	c.ApplyMarket(m.Price, m.Tvl, m.K, sol, token)
	c.UpdatedAt = now

	out := Outcome{Trade: c}
	switch c.State {
	case model.StateBuy:
		if !c.Busy() {
			out.add(EffectSubmitBuy)
		}
	case model.StatePendingBuy:
		if c.OwnsSignature(model.SideBuy, sig) {
			fill(c, model.SideBuy, sig, ev.AmountOut(), now)
			out.add(EffectPersist, EffectNotify)
		}
	case model.StateBuySuccess:
		c.Pct = pct(c.Price, c.BuyPrice)
		if !c.Busy() && c.Risk.ShouldSell(c.Pct) {
			out.add(EffectSubmitSell)
		}
	case model.StatePendingSell:
		c.Pct = pct(c.Price, c.BuyPrice)
		if c.OwnsSignature(model.SideSell, sig) {
			fill(c, model.SideSell, sig, ev.AmountOut(), now)
			out.add(EffectPersist, EffectEvict, EffectNotify)
		}
	}
	return out, nil
}

func checkProtocol(t *model.Trade, ev decoder.PoolEvent) error {
	switch t.Amm.Kind() {
	case model.AmmRaydium:
		if ev.Protocol() != decoder.ProtocolRaydium {
			return errors.Wrapf(ErrProtocolMismatch, "trade %d is raydium, event is %s", t.ID, ev.Protocol())
		}
	case model.AmmPump:
		if ev.Protocol() != decoder.ProtocolPump {
			return errors.Wrapf(ErrProtocolMismatch, "trade %d is pump, event is %s", t.ID, ev.Protocol())
		}
	}
	if p, ok := ev.(*decoder.PumpTrade); ok && p.Mint() != t.Asset() {
		return errors.Wrapf(ErrAssetMismatch, "trade %d mint %s, event mint %s", t.ID, t.Asset(), p.Mint())
	}
	return nil
}

func resolveDecimals(c *model.Trade, ev decoder.PoolEvent) {
	if _, ok := c.Amm.Decimals(); ok {
		return
	}
	switch e := ev.(type) {
	case *decoder.RaydiumInit:
		c.Amm = c.Amm.WithDecimals(e.Decimals())
	case *decoder.PumpTrade:
		c.Amm = c.Amm.WithDecimals(e.Decimals())
	}
}

// pct 相对买入价的收益率，买入价未知时为 0
func pct(price, buyPrice float64) float64 {
	if buyPrice <= 0 {
		return 0
	}
	return (price - buyPrice) / buyPrice
}

// fill 以当前价格记录成交，并把对应提交记录标记为成功
func fill(c *model.Trade, side model.Side, sig solana.Signature, amount uint64, now time.Time) {
	c.MarkAttempt(side, "", sig, model.RpcStatusSuccess, "")
	c.State = side.SuccessState()
	c.Internal.Busy = false
	at := now
	switch side {
	case model.SideBuy:
		c.BuyPrice = c.Price
		c.BuyTime = &at
		c.Pct = 0
		if amount > 0 {
			c.Amount = amount
		}
	case model.SideSell:
		c.SellPrice = c.Price
		c.SellTime = &at
		c.Pct = pct(c.SellPrice, c.BuyPrice)
	}
	c.UpdatedAt = now
}
