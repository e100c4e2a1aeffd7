package engine

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/decoder"
	"github.com/ninja0404/meme-sniper/internal/filter"
	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/internal/trader"
	"github.com/ninja0404/meme-sniper/internal/triage"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

// HandleTxUpdate 分拣并处理一条交易，只能在主循环中调用
func (e *Engine) HandleTxUpdate(ctx context.Context, update *common.TxUpdate) {
	TxUpdatesTotal.Inc()

	cmds, _ := triage.Triage(update, e.cache)
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case triage.EvaluateTrade:
			e.evaluate(ctx, c)
		case triage.ConsiderNewPool:
			e.considerNewPool(ctx, c)
		}
	}
}

func (e *Engine) evaluate(ctx context.Context, c triage.EvaluateTrade) {
	// 同一批命令中前面的处理可能已替换或移除该仓位
	t, ok := e.cache.GetByID(c.Trade.ID)
	if !ok {
		return
	}

	if t.Amm.Kind() == model.AmmGeneric {
		resolved, ok := e.resolveGeneric(ctx, t, c.Tx)
		if !ok {
			return
		}
		t = resolved
	}

	ev, err := decoder.Decode(c.Log)
	if err != nil {
		logger.Debug("跳过无法解析的日志",
			logger.String("signature", c.Signature.String()),
			logger.FieldErr(err))
		return
	}

	out, err := trader.Transition(t, ev, c.Signature, e.now())
	if err != nil {
		if errors.Is(err, trader.ErrDecimalsUnresolved) {
			logger.Debug("⏳ 代币精度未知，暂不评估",
				logger.Int64("trade_id", t.ID),
				logger.String("mint", t.Asset().String()))
			e.requestDecimals(ctx, t.Asset())
			return
		}
		logger.Error("❌ 仓位状态转移失败",
			logger.Int64("trade_id", t.ID),
			logger.String("signature", c.Signature.String()),
			logger.FieldErr(err))
		return
	}
	e.apply(ctx, out)
}

// resolveGeneric 从交易中还原只知道代币地址的仓位的池子
func (e *Engine) resolveGeneric(ctx context.Context, t *model.Trade, tx *common.TxUpdate) (*model.Trade, bool) {
	amm, ok := triage.ResolveAmm(t.Asset(), tx)
	if !ok {
		logger.Debug("交易中未找到可用的池子布局",
			logger.Int64("trade_id", t.ID),
			logger.String("signature", tx.Signature.String()))
		return nil, false
	}

	c := t.Clone()
	c.Amm = t.Amm.Resolve(amm)
	if c.Amm.Kind() == model.AmmPump {
		c.Amm = c.Amm.WithDecimals(decoder.PumpTokenDecimals)
	}
	c.UpdatedAt = e.now()
	e.cache.Upsert(c)
	e.persist(c)

	logger.Info("🧭 已还原仓位池子",
		logger.Int64("trade_id", c.ID),
		logger.String("amm", c.Amm.Kind().String()),
		logger.String("pool", c.Amm.PoolAddress().String()))

	if _, ok := c.Amm.Decimals(); !ok {
		e.requestDecimals(ctx, c.Asset())
	}
	return c, true
}

// requestDecimals 异步查询精度，同一代币同时只有一个查询
func (e *Engine) requestDecimals(ctx context.Context, mint solana.PublicKey) {
	if e.deps.Decimals == nil {
		return
	}
	if _, ok := e.resolving[mint]; ok {
		return
	}
	e.resolving[mint] = struct{}{}

	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		d, err := e.deps.Decimals.Resolve(ctx, mint)
		_ = e.Send(ctx, DecimalsResolved{Mint: mint, Decimals: d, Err: err})
	}()
}

func (e *Engine) considerNewPool(ctx context.Context, c triage.ConsiderNewPool) {
	ev, err := decoder.Decode(c.Log)
	if err != nil {
		logger.Debug("跳过无法解析的建池日志", logger.String("signature", c.Signature.String()), logger.FieldErr(err))
		return
	}

	var amm model.Amm
	var decimals uint8
	switch v := ev.(type) {
	case *decoder.RaydiumInit:
		f, ok := triage.MatchRaydiumInit(c.Message)
		if !ok {
			return
		}
		amm = triage.RaydiumAmmFromInit(f)
		if amm.PcIsSol() == nil {
			return
		}
		decimals = v.Decimals()
	case *decoder.PumpTrade:
		f, ok := triage.MatchPumpCreate(c.Message)
		if !ok || !f.Mint.Equals(v.Mint()) {
			return
		}
		amm = triage.PumpAmmFromCreate(f)
		decimals = v.Decimals()
	default:
		return
	}

	sol, token := decoder.SolSide(ev.Next(), amm.PcIsSol())
	m := decoder.Quote(sol, token, decimals)
	candidate := &filter.Candidate{
		Protocol:     ev.Protocol(),
		Mint:         amm.Mint(),
		Pool:         amm.PoolAddress(),
		Signature:    c.Signature,
		Decimals:     decimals,
		SolLiquidity: decimal.NewFromInt(int64(sol)).Shift(-int32(decoder.SolDecimals)),
		Price:        decimal.NewFromFloat(m.Price),
		Tvl:          decimal.NewFromFloat(m.Tvl),
	}
	if e.deps.Entry != nil && !e.deps.Entry.Evaluate(candidate) {
		logger.Debug("新池未通过过滤",
			logger.String("mint", candidate.Mint.String()),
			logger.String("sol_liquidity", candidate.SolLiquidity.String()))
		return
	}

	logger.Info("🆕 发现新池",
		logger.String("protocol", ev.Protocol().String()),
		logger.String("mint", candidate.Mint.String()),
		logger.String("pool", candidate.Pool.String()),
		logger.String("sol_liquidity", candidate.SolLiquidity.String()),
		logger.String("signature", c.Signature.String()))

	if !e.cfg.AutoBuy {
		return
	}
	if !e.openSlots() {
		logger.Warn("⚠️ 持仓数已达上限，放弃新池", logger.Int("open_positions", e.cache.Len()))
		return
	}

	id, err := e.deps.IDs.AllocateNextID(ctx)
	if err != nil {
		logger.Error("❌ 分配仓位id失败", logger.FieldErr(err))
		return
	}
	t := model.NewTrade(id, amm.WithDecimals(decimals), e.cfg.DefaultRisk, e.now())
	e.cache.Upsert(t)
	e.persist(t)
	OpenPositions.Set(float64(e.cache.Len()))

	out, err := trader.Transition(t, ev, c.Signature, e.now())
	if err != nil {
		logger.Error("❌ 新仓位首次评估失败", logger.Int64("trade_id", id), logger.FieldErr(err))
		return
	}
	e.apply(ctx, out)
}

func (e *Engine) handleCommand(ctx context.Context, cmd Command) {
	CommandsTotal.WithLabelValues(cmd.Type()).Inc()

	switch c := cmd.(type) {
	case OpenPosition:
		e.openPosition(ctx, c)
	case SubmitAccepted:
		t, ok := e.lookup(c.TradeID, cmd)
		if !ok {
			return
		}
		if out, ok := trader.Accept(t, c.Log, e.now()); ok {
			e.apply(ctx, out)
		}
	case SubmitFailed:
		t, ok := e.lookup(c.TradeID, cmd)
		if !ok {
			return
		}
		logger.Warn("⚠️ 节点提交失败",
			logger.Int64("trade_id", c.TradeID),
			logger.String("endpoint", c.Log.Endpoint),
			logger.String("error", c.Log.Error))
		if out, ok := trader.Fail(t, c.Log, e.now()); ok {
			e.apply(ctx, out)
		}
	case ConfirmResult:
		t, ok := e.lookup(c.TradeID, cmd)
		if !ok {
			return
		}
		if c.Err == nil {
			if out, ok := trader.Confirm(t, c.Log.Side, c.Log.Signature, e.now()); ok {
				e.apply(ctx, out)
			}
			return
		}
		l := c.Log
		l.Error = c.Err.Error()
		if out, ok := trader.Fail(t, l, e.now()); ok {
			e.apply(ctx, out)
		}
	case DecimalsResolved:
		e.decimalsResolved(c)
	}
}

// lookup 上报的仓位已被移出缓存时忽略
func (e *Engine) lookup(id int64, cmd Command) (*model.Trade, bool) {
	t, ok := e.cache.GetByID(id)
	if !ok {
		logger.Debug("忽略已结束仓位的上报", logger.Int64("trade_id", id), logger.String("type", cmd.Type()))
	}
	return t, ok
}

func (e *Engine) openPosition(ctx context.Context, c OpenPosition) {
	if !e.openSlots() {
		logger.Warn("⚠️ 持仓数已达上限，拒绝开仓",
			logger.String("request_id", c.RequestID),
			logger.String("mint", c.Mint.String()))
		return
	}
	id, err := e.deps.IDs.AllocateNextID(ctx)
	if err != nil {
		logger.Error("❌ 分配仓位id失败", logger.String("request_id", c.RequestID), logger.FieldErr(err))
		return
	}

	t := model.NewTrade(id, model.NewGenericAmm(c.Mint), c.Risk, e.now())
	t.RequestID = c.RequestID
	e.cache.Upsert(t)
	e.persist(t)
	OpenPositions.Set(float64(e.cache.Len()))

	logger.Info("📌 已登记开仓请求",
		logger.Int64("trade_id", id),
		logger.String("request_id", c.RequestID),
		logger.String("mint", c.Mint.String()))
}

func (e *Engine) decimalsResolved(c DecimalsResolved) {
	delete(e.resolving, c.Mint)
	if c.Err != nil {
		logger.Warn("⚠️ 查询代币精度失败", logger.String("mint", c.Mint.String()), logger.FieldErr(c.Err))
		return
	}
	for _, t := range e.cache.GetByAsset(c.Mint) {
		if _, ok := t.Amm.Decimals(); ok {
			continue
		}
		u := t.Clone()
		u.Amm = u.Amm.WithDecimals(c.Decimals)
		u.UpdatedAt = e.now()
		e.cache.Upsert(u)
		e.persist(u)
	}
}
