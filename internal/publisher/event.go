package publisher

import (
	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/model"
)

// NewTradeEvent 由仓位生成下游事件，签名取最近一次成交的提交
func NewTradeEvent(t *model.Trade) *common.TradeEvent {
	s := model.SnapshotOf(t)
	ev := &common.TradeEvent{
		TradeID:   t.ID,
		RequestID: t.RequestID,
		Mint:      s.Mint,
		AmmKind:   s.AmmKind,
		Pool:      s.Pool,
		State:     s.State,
		Price:     s.Price,
		BuyPrice:  s.BuyPrice,
		SellPrice: s.SellPrice,
		Pct:       s.Pct,
		Amount:    s.Amount,
		Decimals:  s.Decimals,
		LastError: s.LastError,
		Timestamp: t.UpdatedAt,
	}
	for i := len(s.RpcLogs) - 1; i >= 0; i-- {
		if s.RpcLogs[i].Status == model.RpcStatusSuccess {
			ev.Signature = s.RpcLogs[i].Signature.String()
			break
		}
	}
	return ev
}
