package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/meme-sniper/internal/builder"
	"github.com/ninja0404/meme-sniper/internal/chain"
	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/decoder"
	"github.com/ninja0404/meme-sniper/internal/decoder/decodertest"
	"github.com/ninja0404/meme-sniper/internal/filter"
	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/internal/triage/triagetest"
)

type stubSubmitter struct {
	err   error
	calls atomic.Int32
}

func (s *stubSubmitter) Submit(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	s.calls.Add(1)
	if s.err != nil {
		return solana.Signature{}, s.err
	}
	return tx.Signatures[0], nil
}

// stubConfirmer release 为空时立即确认，否则等待测试给出结果
type stubConfirmer struct {
	release chan error
}

func (c *stubConfirmer) PollUntilFinal(ctx context.Context, _ solana.Signature) error {
	if c.release == nil {
		return nil
	}
	select {
	case err := <-c.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type stubBlockhash struct{ hash solana.Hash }

func (b stubBlockhash) Latest() solana.Hash { return b.hash }

type stubIDs struct{ next atomic.Int64 }

func (s *stubIDs) AllocateNextID(context.Context) (int64, error) {
	return s.next.Add(1) + 100, nil
}

type stubDecimals struct {
	decimals uint8
	calls    atomic.Int32
}

func (s *stubDecimals) Resolve(context.Context, solana.PublicKey) (uint8, error) {
	s.calls.Add(1)
	return s.decimals, nil
}

type recorder struct {
	mu       sync.Mutex
	notified []model.TradeState
	persists int
}

func (r *recorder) Notify(t *model.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, t.State)
}

func (r *recorder) Persist(*model.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persists++
}

func (r *recorder) states() []model.TradeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.TradeState(nil), r.notified...)
}

type harness struct {
	e         *Engine
	ctx       context.Context
	rec       *recorder
	confirmer *stubConfirmer
	decimals  *stubDecimals
}

func endpoint(name string, s chain.Submitter) chain.Endpoint {
	return chain.Endpoint{Name: name, URL: "http://" + name, Channel: model.ChannelPlain, Submitter: s}
}

func newHarness(t *testing.T, cfg Config, endpoints ...chain.Endpoint) *harness {
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		ctx:       ctx,
		rec:       &recorder{},
		confirmer: &stubConfirmer{},
		decimals:  &stubDecimals{decimals: 6},
	}
	h.e = New(cfg, Deps{
		Builder:   builder.New(solana.NewWallet().PrivateKey),
		Endpoints: chain.NewEndpointSet(endpoints),
		Blockhash: stubBlockhash{hash: solana.Hash{1, 2, 3}},
		Confirmer: h.confirmer,
		Decimals:  h.decimals,
		IDs:       &stubIDs{},
		Persister: h.rec,
		Notifier:  h.rec,
	})
	t.Cleanup(func() {
		cancel()
		h.e.workers.Wait()
	})
	return h
}

// step 从命令队列取出 n 条命令并在当前协程处理
func (h *harness) step(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case cmd := <-h.e.cmds:
			h.e.handleCommand(h.ctx, cmd)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for command %d of %d", i+1, n)
		}
	}
}

var testRisk = model.Risk{
	TakeProfit:       0.5,
	StopLoss:         0.3,
	MaxSpendLamports: 100_000_000,
	SlippageBps:      100,
}

func pumpAmm(mint solana.PublicKey) model.Amm {
	return model.NewPumpAmm(model.PumpCurve{
		Mint:                   mint,
		BondingCurve:           triagetest.RandKey(),
		AssociatedBondingCurve: triagetest.RandKey(),
		TokenProgram:           common.TokenProgram,
	})
}

func pumpLine(t *testing.T, mint solana.PublicKey) string {
	return decodertest.PumpTrade(t, decoder.TradeEventLog{
		Mint:                 mint,
		IsBuy:                true,
		VirtualSolReserves:   30_000_000_000,
		VirtualTokenReserves: 1_000_000_000_000_000,
	})
}

func pumpSwapTx(t *testing.T, mint solana.PublicKey) *common.TxUpdate {
	return triagetest.BuildTx(common.PumpProgram, triagetest.PumpSwapAccounts(mint), nil, pumpLine(t, mint))
}

// seedBuy 放入一个待买入的 pump 仓位并用一条行情触发派发
func (h *harness) seedBuy(t *testing.T) *model.Trade {
	mint := triagetest.RandKey()
	trade := model.NewTrade(1, pumpAmm(mint).WithDecimals(6), testRisk, time.Now())
	h.e.cache.Upsert(trade)
	h.e.HandleTxUpdate(h.ctx, pumpSwapTx(t, mint))

	cur, ok := h.e.cache.GetByID(1)
	require.True(t, ok)
	return cur
}

func TestDispatchFirstConfirmationWins(t *testing.T) {
	a, b := &stubSubmitter{}, &stubSubmitter{}
	h := newHarness(t, Config{}, endpoint("a", a), endpoint("b", b))

	cur := h.seedBuy(t)
	assert.Equal(t, model.StatePendingBuy, cur.State)
	assert.True(t, cur.Busy())
	assert.Equal(t, 2, cur.Dispatched(model.SideBuy))

	// 每个节点一条 accepted 与一条 confirm
	h.step(t, 4)

	cur, ok := h.e.cache.GetByID(1)
	require.True(t, ok)
	assert.Equal(t, model.StateBuySuccess, cur.State)
	assert.False(t, cur.Busy())
	assert.Equal(t, cur.ExpectedOut(model.SideBuy), cur.Amount)
	assert.Equal(t, []model.TradeState{model.StateBuySuccess}, h.rec.states())

	won := 0
	for _, l := range cur.Internal.RpcLogs {
		if l.Status == model.RpcStatusSuccess {
			won++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestDispatchAllEndpointsFail(t *testing.T) {
	h := newHarness(t, Config{},
		endpoint("a", &stubSubmitter{err: errors.New("429")}),
		endpoint("b", &stubSubmitter{err: errors.New("blockhash not found")}))

	h.seedBuy(t)
	h.step(t, 2)

	_, ok := h.e.cache.GetByID(1)
	assert.False(t, ok, "failed trade is evicted")
	assert.Zero(t, h.e.cache.Len())
	assert.Equal(t, []model.TradeState{model.StateBuyFailed}, h.rec.states())

	// 移出后的迟到确认不产生任何效果
	h.e.handleCommand(h.ctx, ConfirmResult{
		TradeID: 1,
		Log:     model.TradeRpcLog{Endpoint: "a", Side: model.SideBuy, Signature: solana.Signature{9}},
	})
	assert.Zero(t, h.e.cache.Len())
	assert.Len(t, h.rec.states(), 1)
}

func TestDispatchNMinusOneFailuresStayPending(t *testing.T) {
	h := newHarness(t, Config{},
		endpoint("a", &stubSubmitter{err: errors.New("rejected")}),
		endpoint("b", &stubSubmitter{}))
	h.confirmer.release = make(chan error, 1)

	h.seedBuy(t)
	h.step(t, 2)

	cur, ok := h.e.cache.GetByID(1)
	require.True(t, ok)
	assert.Equal(t, model.StatePendingBuy, cur.State)
	assert.Equal(t, 1, cur.FailedEndpoints(model.SideBuy))
	assert.Empty(t, h.rec.states())

	h.confirmer.release <- errors.New("InstructionError")
	h.step(t, 1)

	_, ok = h.e.cache.GetByID(1)
	assert.False(t, ok)
	assert.Equal(t, []model.TradeState{model.StateBuyFailed}, h.rec.states())
}

func TestDispatchWithoutBlockhashAborts(t *testing.T) {
	sub := &stubSubmitter{}
	h := newHarness(t, Config{}, endpoint("a", sub))
	h.e.deps.Blockhash = stubBlockhash{}

	mint := triagetest.RandKey()
	h.e.cache.Upsert(model.NewTrade(1, pumpAmm(mint).WithDecimals(6), testRisk, time.Now()))
	h.e.HandleTxUpdate(h.ctx, pumpSwapTx(t, mint))

	assert.Zero(t, h.e.cache.Len())
	assert.Equal(t, []model.TradeState{model.StateBuyFailed}, h.rec.states())
	assert.Zero(t, sub.calls.Load())
}

func TestConsiderNewPool(t *testing.T) {
	createTx := func(mint solana.PublicKey) *common.TxUpdate {
		return triagetest.BuildTx(common.PumpProgram, triagetest.PumpCreateAccounts(mint), nil,
			"Program log: Instruction: Create", pumpLine(t, mint))
	}

	t.Run("auto buy opens and dispatches", func(t *testing.T) {
		sub := &stubSubmitter{}
		h := newHarness(t, Config{AutoBuy: true, DefaultRisk: testRisk}, endpoint("a", sub))
		entry, err := filter.FromConfig(filter.Config{MinSolLiquidity: 10})
		require.NoError(t, err)
		h.e.deps.Entry = entry

		mint := triagetest.RandKey()
		h.e.HandleTxUpdate(h.ctx, createTx(mint))

		trades := h.e.cache.GetByAsset(mint)
		require.Len(t, trades, 1)
		assert.Equal(t, int64(101), trades[0].ID)
		assert.Equal(t, model.StatePendingBuy, trades[0].State)
		assert.Equal(t, model.AmmPump, trades[0].Amm.Kind())
		h.step(t, 2)
		assert.Equal(t, []model.TradeState{model.StateBuySuccess}, h.rec.states())
	})

	t.Run("filter rejects thin pool", func(t *testing.T) {
		h := newHarness(t, Config{AutoBuy: true, DefaultRisk: testRisk}, endpoint("a", &stubSubmitter{}))
		entry, err := filter.FromConfig(filter.Config{MinSolLiquidity: 50})
		require.NoError(t, err)
		h.e.deps.Entry = entry

		h.e.HandleTxUpdate(h.ctx, createTx(triagetest.RandKey()))
		assert.Zero(t, h.e.cache.Len())
	})

	t.Run("auto buy disabled", func(t *testing.T) {
		h := newHarness(t, Config{DefaultRisk: testRisk}, endpoint("a", &stubSubmitter{}))
		h.e.HandleTxUpdate(h.ctx, createTx(triagetest.RandKey()))
		assert.Zero(t, h.e.cache.Len())
	})

	t.Run("max open positions", func(t *testing.T) {
		h := newHarness(t, Config{AutoBuy: true, MaxOpenPositions: 1, DefaultRisk: testRisk}, endpoint("a", &stubSubmitter{}))
		h.e.cache.Upsert(model.NewTrade(1, model.NewGenericAmm(triagetest.RandKey()), testRisk, time.Now()))

		h.e.HandleTxUpdate(h.ctx, createTx(triagetest.RandKey()))
		assert.Equal(t, 1, h.e.cache.Len())
	})
}

func TestOpenPositionResolvesPumpCurve(t *testing.T) {
	h := newHarness(t, Config{DefaultRisk: testRisk}, endpoint("a", &stubSubmitter{}))

	mint := triagetest.RandKey()
	requestID, err := h.e.Open(h.ctx, mint, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, requestID)
	h.step(t, 1)

	trades := h.e.cache.GetByAsset(mint)
	require.Len(t, trades, 1)
	assert.Equal(t, model.AmmGeneric, trades[0].Amm.Kind())
	assert.Equal(t, requestID, trades[0].RequestID)

	h.e.HandleTxUpdate(h.ctx, pumpSwapTx(t, mint))

	cur, ok := h.e.cache.GetByID(trades[0].ID)
	require.True(t, ok)
	assert.Equal(t, model.AmmPump, cur.Amm.Kind())
	d, ok := cur.Amm.Decimals()
	require.True(t, ok)
	assert.Equal(t, decoder.PumpTokenDecimals, d)
	assert.Equal(t, model.StatePendingBuy, cur.State)
	assert.Zero(t, h.decimals.calls.Load())
}

func TestOpenPositionWaitsForRaydiumDecimals(t *testing.T) {
	sub := &stubSubmitter{}
	h := newHarness(t, Config{DefaultRisk: testRisk}, endpoint("a", sub))

	mint := triagetest.RandKey()
	h.e.handleCommand(h.ctx, OpenPosition{RequestID: "req-1", Mint: mint, Risk: testRisk})
	trades := h.e.cache.GetByAsset(mint)
	require.Len(t, trades, 1)
	id := trades[0].ID

	line := decodertest.RaydiumSwapBaseIn(t, decoder.SwapBaseInLog{
		AmountIn:  1_000_000_000,
		Direction: decoder.DirectionPC2Coin,
		PoolCoin:  1_000_000_000_000,
		PoolPc:    50_000_000_000,
		OutAmount: 19_000_000_000,
	})
	tx := triagetest.BuildTx(common.RaydiumAMMProgram, triagetest.RaydiumUserSwapAccounts(mint, false), []byte{9}, line)
	tx.AccountKeys = append(tx.AccountKeys, mint)

	h.e.HandleTxUpdate(h.ctx, tx)
	cur, _ := h.e.cache.GetByID(id)
	assert.Equal(t, model.AmmRaydium, cur.Amm.Kind())
	require.NotNil(t, cur.Amm.PcIsSol())
	assert.True(t, *cur.Amm.PcIsSol())
	assert.Equal(t, model.StateBuy, cur.State, "evaluation waits for decimals")

	h.step(t, 1)
	cur, _ = h.e.cache.GetByID(id)
	d, ok := cur.Amm.Decimals()
	require.True(t, ok)
	assert.Equal(t, uint8(6), d)
	assert.Equal(t, int32(1), h.decimals.calls.Load())

	h.e.HandleTxUpdate(h.ctx, tx)
	cur, _ = h.e.cache.GetByID(id)
	assert.Equal(t, model.StatePendingBuy, cur.State)
	h.step(t, 2)
	assert.Equal(t, int32(1), sub.calls.Load())
}

func TestOpenPositionIgnoresUnrelatedRaydiumPool(t *testing.T) {
	h := newHarness(t, Config{DefaultRisk: testRisk}, endpoint("a", &stubSubmitter{}))

	mint := triagetest.RandKey()
	h.e.handleCommand(h.ctx, OpenPosition{RequestID: "req-1", Mint: mint, Risk: testRisk})
	trades := h.e.cache.GetByAsset(mint)
	require.Len(t, trades, 1)

	line := decodertest.RaydiumSwapBaseIn(t, decoder.SwapBaseInLog{
		AmountIn:  1_000_000_000,
		Direction: decoder.DirectionPC2Coin,
		PoolCoin:  1_000_000_000_000,
		PoolPc:    50_000_000_000,
		OutAmount: 19_000_000_000,
	})
	// 另一个池子的 swap，代币只作为旁路账户出现
	tx := triagetest.BuildTx(common.RaydiumAMMProgram, triagetest.RaydiumSwapAccounts(), []byte{9}, line)
	tx.AccountKeys = append(tx.AccountKeys, mint)

	h.e.HandleTxUpdate(h.ctx, tx)
	cur, ok := h.e.cache.GetByID(trades[0].ID)
	require.True(t, ok)
	assert.Equal(t, model.AmmGeneric, cur.Amm.Kind())
	assert.Equal(t, model.StateBuy, cur.State)
	assert.Zero(t, h.decimals.calls.Load())
	assert.Empty(t, h.e.cmds)
}

func TestSubmitRecordsSignedTip(t *testing.T) {
	priority := func(name string, lamports uint64) chain.Endpoint {
		return chain.Endpoint{
			Name:      name,
			URL:       "http://" + name,
			Channel:   model.ChannelPriority,
			Tip:       &builder.Tip{Account: triagetest.RandKey(), Lamports: lamports},
			Submitter: &stubSubmitter{},
		}
	}
	h := newHarness(t, Config{}, priority("jito-a", 10_000), priority("jito-b", 50_000), endpoint("rpc", &stubSubmitter{}))
	h.seedBuy(t)

	tips := map[string]uint64{}
	for len(tips) < 3 {
		select {
		case cmd := <-h.e.cmds:
			if c, ok := cmd.(SubmitAccepted); ok {
				tips[c.Log.Endpoint] = c.Log.TipLamports
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for submissions")
		}
	}
	// 两个 priority 节点提交的是同一笔交易，小费以签名时附加的为准
	assert.Equal(t, map[string]uint64{"jito-a": 10_000, "jito-b": 10_000, "rpc": 0}, tips)
}

func TestTickPrefersStreamOverCommands(t *testing.T) {
	h := newHarness(t, Config{DefaultRisk: testRisk}, endpoint("a", &stubSubmitter{}))

	stream := make(chan *common.TxUpdate, 3)
	for i := 0; i < 3; i++ {
		stream <- &common.TxUpdate{}
		require.NoError(t, h.e.Send(h.ctx, OpenPosition{RequestID: "req", Mint: triagetest.RandKey(), Risk: testRisk}))
	}

	for want := 2; want >= 0; want-- {
		_, ok := h.e.tick(h.ctx, stream)
		require.True(t, ok)
		assert.Len(t, stream, want)
		assert.Len(t, h.e.cmds, want)
	}

	// 交易流空闲时才阻塞等待命令
	require.NoError(t, h.e.Send(h.ctx, OpenPosition{RequestID: "req", Mint: triagetest.RandKey(), Risk: testRisk}))
	_, ok := h.e.tick(h.ctx, stream)
	require.True(t, ok)
	assert.Empty(t, h.e.cmds)
	assert.Equal(t, 4, h.e.cache.Len())
}

func TestRunLoop(t *testing.T) {
	h := newHarness(t, Config{}, endpoint("a", &stubSubmitter{}))
	mint := triagetest.RandKey()
	h.e.cache.Upsert(model.NewTrade(1, pumpAmm(mint).WithDecimals(6), testRisk, time.Now()))

	ctx, cancel := context.WithCancel(h.ctx)
	stream := make(chan *common.TxUpdate, 1)
	done := make(chan error, 1)
	go func() { done <- h.e.Run(ctx, stream) }()

	stream <- pumpSwapTx(t, mint)
	require.Eventually(t, func() bool {
		states := h.rec.states()
		return len(states) == 1 && states[0] == model.StateBuySuccess
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRestoreResumesHeldPosition(t *testing.T) {
	sub := &stubSubmitter{}
	h := newHarness(t, Config{}, endpoint("a", sub))

	mint := triagetest.RandKey()
	held := model.NewTrade(7, model.NewGenericAmm(mint), testRisk, time.Now())
	held.State = model.StateBuySuccess
	held.BuyPrice = 0.00000001
	held.Amount = 1_000_000_000
	done := model.NewTrade(8, model.NewGenericAmm(triagetest.RandKey()), testRisk, time.Now())
	done.State = model.StateSellSuccess

	assert.Equal(t, 1, h.e.Restore([]*model.Trade{held, done}))
	_, ok := h.e.cache.GetByID(8)
	assert.False(t, ok)

	// 价格 3e-8 相对买入价 +200%，触发止盈
	h.e.HandleTxUpdate(h.ctx, pumpSwapTx(t, mint))
	cur, ok := h.e.cache.GetByID(7)
	require.True(t, ok)
	assert.Equal(t, model.AmmPump, cur.Amm.Kind())
	assert.Equal(t, model.StatePendingSell, cur.State)

	h.step(t, 2)
	assert.Equal(t, int32(1), sub.calls.Load())
	assert.Equal(t, []model.TradeState{model.StateSellSuccess}, h.rec.states())
}
