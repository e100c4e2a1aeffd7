package engine

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/meme-sniper/internal/chain"
	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/internal/trader"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

// apply 写回状态机结果并执行副作用
func (e *Engine) apply(ctx context.Context, out trader.Outcome) {
	if !out.Changed() {
		return
	}
	t := out.Trade

	if old, ok := e.cache.GetByID(t.ID); ok && old.State != t.State {
		logger.Info("🔁 仓位状态变更",
			logger.Int64("trade_id", t.ID),
			logger.String("mint", t.Asset().String()),
			logger.String("from", old.State.String()),
			logger.String("to", t.State.String()),
			logger.Float64("price", t.Price),
			logger.Float64("pct", t.Pct))
	}
	if out.Has(trader.EffectAnomaly) {
		logger.Warn("⚠️ 池子流动性被撤出",
			logger.Int64("trade_id", t.ID),
			logger.String("mint", t.Asset().String()),
			logger.String("state", t.State.String()))
	}

	e.cache.Upsert(t)
	if out.Has(trader.EffectPersist) {
		e.persist(t)
	}
	if out.Has(trader.EffectNotify) && e.deps.Notifier != nil {
		e.deps.Notifier.Notify(t)
	}
	if out.Has(trader.EffectEvict) {
		e.cache.Remove(t)
		TradesTerminalTotal.WithLabelValues(t.State.String()).Inc()
	}
	OpenPositions.Set(float64(e.cache.Len()))

	if side, ok := out.SubmitSide(); ok {
		e.dispatch(ctx, t, side)
	}
}

func (e *Engine) persist(t *model.Trade) {
	if e.deps.Persister != nil {
		e.deps.Persister.Persist(t)
	}
}

// dispatch 构建并签名后向每个节点并发提交
//
// 缓存中的仓位不可原地修改，提交协程只持有节点副本与已签名交易。
func (e *Engine) dispatch(ctx context.Context, t *model.Trade, side model.Side) {
	endpoints := e.deps.Endpoints.Load()
	if len(endpoints) == 0 {
		e.apply(ctx, trader.Abort(t, side, "no submit endpoint configured", e.now()))
		return
	}

	var blockhash solana.Hash
	if e.deps.Blockhash != nil {
		blockhash = e.deps.Blockhash.Latest()
	}
	prepared, err := e.deps.Builder.Build(t, side, chain.Channels(endpoints), blockhash)
	if err != nil {
		logger.Error("❌ 构建交易失败",
			logger.Int64("trade_id", t.ID),
			logger.String("side", side.String()),
			logger.FieldErr(err))
		e.apply(ctx, trader.Abort(t, side, err.Error(), e.now()))
		return
	}

	out := trader.Begin(t, side, len(endpoints), prepared.Quote.ExpectedOut, e.now())
	out.Trade.Internal.Instructions = prepared.Instructions
	out.Trade.Internal.Transactions = prepared.Transactions
	e.apply(ctx, out)

	logger.Info("📤 派发交易",
		logger.Int64("trade_id", t.ID),
		logger.String("side", side.String()),
		logger.Int("endpoints", len(endpoints)),
		logger.Uint64("amount_in", prepared.Quote.AmountIn),
		logger.Uint64("min_out", prepared.Quote.MinOut))

	for _, ep := range endpoints {
		tx := prepared.Transactions[ep.Channel]
		tip := prepared.Tips[ep.Channel]
		e.workers.Add(1)
		go e.submit(ctx, t.ID, side, ep, tx, tip)
	}
}

// submit 提交并轮询确认，结果一律经命令队列回到主循环
//
// 同一通道的节点共用一笔已签名交易，记录的小费以交易中实际附加的为准。
func (e *Engine) submit(ctx context.Context, tradeID int64, side model.Side, ep chain.Endpoint, tx *solana.Transaction, tip uint64) {
	defer e.workers.Done()

	rec := model.TradeRpcLog{
		Endpoint:    ep.Name,
		URL:         ep.URL,
		Channel:     ep.Channel,
		Side:        side,
		TipLamports: tip,
		CreatedAt:   e.now(),
	}

	start := time.Now()
	sig, err := ep.Submitter.Submit(ctx, tx)
	rec.Latency = time.Since(start)
	SubmitLatencySeconds.WithLabelValues(ep.Name).Observe(rec.Latency.Seconds())
	if err != nil {
		SubmissionsTotal.WithLabelValues(ep.Name, "fail").Inc()
		rec.Error = err.Error()
		_ = e.Send(ctx, SubmitFailed{TradeID: tradeID, Log: rec})
		return
	}
	SubmissionsTotal.WithLabelValues(ep.Name, "accepted").Inc()

	rec.Signature = sig
	if err := e.Send(ctx, SubmitAccepted{TradeID: tradeID, Log: rec}); err != nil {
		return
	}

	err = e.deps.Confirmer.PollUntilFinal(ctx, sig)
	if ctx.Err() != nil {
		return
	}
	_ = e.Send(ctx, ConfirmResult{TradeID: tradeID, Log: rec, Err: err})
}
