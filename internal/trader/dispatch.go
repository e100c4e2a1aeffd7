package trader

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/meme-sniper/internal/model"
)

// Begin 进入提交：标记忙碌并切换到对应的 Pending 状态
func Begin(t *model.Trade, side model.Side, dispatched int, expectedOut uint64, now time.Time) Outcome {
	c := t.Clone()
	if c.Internal == nil {
		c.Internal = model.NewTradeInternal()
	}
	c.Internal.Busy = true
	c.Internal.Dispatched[side] = dispatched
	c.Internal.ExpectedOut[side] = expectedOut
	c.State = side.PendingState()
	c.LastError = ""
	c.UpdatedAt = now
	return Outcome{Trade: c, Effects: []Effect{EffectPersist}}
}

// Abort 构建或签名失败，提交尚未发出
func Abort(t *model.Trade, side model.Side, reason string, now time.Time) Outcome {
	c := t.Clone()
	if c.Internal != nil {
		c.Internal.Busy = false
	}
	c.State = side.FailedState()
	c.LastError = reason
	c.UpdatedAt = now
	return Outcome{Trade: c, Effects: []Effect{EffectPersist, EffectEvict, EffectNotify}}
}

// Accept 记录一次被节点接受的提交，仓位已离开 Pending 状态或同一节点重复上报时忽略
func Accept(t *model.Trade, l model.TradeRpcLog, now time.Time) (Outcome, bool) {
	if t.State != l.Side.PendingState() || t.EndpointAttemptIndex(l.Side, l.Endpoint, l.Signature) >= 0 {
		return Outcome{}, false
	}
	c := t.Clone()
	l.Status = model.RpcStatusPending
	c.AppendAttempt(l)
	c.UpdatedAt = now
	return Outcome{Trade: c, Effects: []Effect{EffectPersist}}, true
}

// Fail 记录一次提交或确认失败
//
// 签名为空表示提交本身失败，此时追加一条失败记录；否则按节点与签名原地更新。
// 当失败的不同节点数达到派发数时仓位进入对应的 Failed 状态。
func Fail(t *model.Trade, l model.TradeRpcLog, now time.Time) (Outcome, bool) {
	if t.State != l.Side.PendingState() {
		return Outcome{}, false
	}
	c := t.Clone()
	if l.Signature == (solana.Signature{}) || !c.MarkAttempt(l.Side, l.Endpoint, l.Signature, model.RpcStatusFail, l.Error) {
		l.Status = model.RpcStatusFail
		c.AppendAttempt(l)
	}
	c.LastError = l.Error
	c.UpdatedAt = now

	out := Outcome{Trade: c, Effects: []Effect{EffectPersist}}
	if c.FailedEndpoints(l.Side) >= c.Dispatched(l.Side) {
		c.State = l.Side.FailedState()
		c.Internal.Busy = false
		out.add(EffectEvict, EffectNotify)
	}
	return out, true
}

// Confirm 某个签名已在链上确认
//
// 只有仍处于对应 Pending 状态且签名属于本仓位时才生效，成交价取最近一次市场价格，
// 成交数量在行情日志尚未到达时取报价时的预期数量。
func Confirm(t *model.Trade, side model.Side, sig solana.Signature, now time.Time) (Outcome, bool) {
	if t.State != side.PendingState() || !t.OwnsSignature(side, sig) {
		return Outcome{}, false
	}
	c := t.Clone()
	var amount uint64
	if side == model.SideBuy && c.Amount == 0 {
		amount = c.ExpectedOut(side)
	}
	fill(c, side, sig, amount, now)

	out := Outcome{Trade: c, Effects: []Effect{EffectPersist, EffectNotify}}
	if side == model.SideSell {
		out.add(EffectEvict)
	}
	return out, true
}
