package model

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// ParseTradeState 状态名转换，与 TradeState.String 对应
func ParseTradeState(name string) (TradeState, error) {
	for s := StateBuy; s <= StateSellFailed; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown trade state %q", name)
}

// TradeFromSnapshot 由快照重建仓位
//
// 池子退化为按代币地址的通用引用，等下一笔相关交易重新还原；提交记录不恢复。
func TradeFromSnapshot(s *TradeSnapshot) (*Trade, error) {
	mint, err := solana.PublicKeyFromBase58(s.Mint)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot %d mint", s.ID)
	}
	state, err := ParseTradeState(s.State)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot %d", s.ID)
	}
	amount := s.Amount.BigInt()
	if amount.Sign() < 0 || !amount.IsUint64() {
		return nil, errors.Errorf("snapshot %d amount %s out of range", s.ID, s.Amount)
	}

	amm := NewGenericAmm(mint)
	if s.Decimals >= 0 && s.Decimals <= 255 {
		amm = amm.WithDecimals(uint8(s.Decimals))
	}

	t := NewTrade(s.ID, amm, s.Risk, s.TradeCreate)
	t.RequestID = s.RequestID
	t.State = state
	t.Price = s.Price.InexactFloat64()
	t.Tvl = s.Tvl.InexactFloat64()
	t.BuyPrice = s.BuyPrice.InexactFloat64()
	t.BuyTime = s.BuyTime
	t.SellPrice = s.SellPrice.InexactFloat64()
	t.SellTime = s.SellTime
	t.Pct = s.Pct.InexactFloat64()
	t.Amount = amount.Uint64()
	t.LastError = s.LastError
	if s.UpdatedAt != nil {
		t.UpdatedAt = *s.UpdatedAt
	}
	return t, nil
}
