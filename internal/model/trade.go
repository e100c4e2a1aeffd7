package model

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// TradeState 仓位状态
type TradeState int32

const (
	StateBuy TradeState = iota + 1
	StatePendingBuy
	StateBuySuccess
	StatePendingSell
	StateSellSuccess
	StateBuyFailed
	StateSellFailed
)

func (s TradeState) String() string {
	switch s {
	case StateBuy:
		return "Buy"
	case StatePendingBuy:
		return "PendingBuy"
	case StateBuySuccess:
		return "BuySuccess"
	case StatePendingSell:
		return "PendingSell"
	case StateSellSuccess:
		return "SellSuccess"
	case StateBuyFailed:
		return "BuyFailed"
	case StateSellFailed:
		return "SellFailed"
	default:
		return "Unknown"
	}
}

// Terminal 终态的仓位会从缓存中移除
func (s TradeState) Terminal() bool {
	return s == StateSellSuccess || s == StateBuyFailed || s == StateSellFailed
}

// Side 买卖方向
type Side int32

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

func (s Side) PendingState() TradeState {
	if s == SideSell {
		return StatePendingSell
	}
	return StatePendingBuy
}

func (s Side) SuccessState() TradeState {
	if s == SideSell {
		return StateSellSuccess
	}
	return StateBuySuccess
}

func (s Side) FailedState() TradeState {
	if s == SideSell {
		return StateSellFailed
	}
	return StateBuyFailed
}

// ChannelKind 提交通道类型
type ChannelKind string

const (
	ChannelPlain    ChannelKind = "plain"    // 普通 sendTransaction
	ChannelPriority ChannelKind = "priority" // 携带小费的 bundle
)

// Risk 单笔仓位的风控参数
type Risk struct {
	TakeProfit               float64 `json:"take_profit" yaml:"take_profit"` // 止盈比例，0.5 表示 +50%
	StopLoss                 float64 `json:"stop_loss" yaml:"stop_loss"`     // 止损比例，0.3 表示 -30%
	MaxSpendLamports         uint64  `json:"max_spend_lamports" yaml:"max_spend_lamports"`
	SlippageBps              uint64  `json:"slippage_bps" yaml:"slippage_bps"`
	PriorityFeeMicroLamports uint64  `json:"priority_fee_micro_lamports" yaml:"priority_fee_micro_lamports"`
	RaydiumComputeUnits      uint32  `json:"raydium_compute_units" yaml:"raydium_compute_units"`
	PumpComputeUnits         uint32  `json:"pump_compute_units" yaml:"pump_compute_units"`
}

// ShouldSell 收益率是否触发止盈或止损
func (r Risk) ShouldSell(pct float64) bool {
	if r.TakeProfit > 0 && pct >= r.TakeProfit {
		return true
	}
	if r.StopLoss > 0 && pct <= -r.StopLoss {
		return true
	}
	return false
}

// TradeInternal 提交相关的内部状态
type TradeInternal struct {
	Instructions map[ChannelKind][]solana.Instruction
	Transactions map[ChannelKind]*solana.Transaction
	Busy         bool
	RpcLogs      []TradeRpcLog
	Dispatched   map[Side]int
	ExpectedOut  map[Side]uint64
}

func NewTradeInternal() *TradeInternal {
	return &TradeInternal{
		Instructions: make(map[ChannelKind][]solana.Instruction),
		Transactions: make(map[ChannelKind]*solana.Transaction),
		Dispatched:   make(map[Side]int),
		ExpectedOut:  make(map[Side]uint64),
	}
}

func (in *TradeInternal) clone() *TradeInternal {
	c := &TradeInternal{
		Instructions: make(map[ChannelKind][]solana.Instruction, len(in.Instructions)),
		Transactions: make(map[ChannelKind]*solana.Transaction, len(in.Transactions)),
		Busy:         in.Busy,
		RpcLogs:      append([]TradeRpcLog(nil), in.RpcLogs...),
		Dispatched:   make(map[Side]int, len(in.Dispatched)),
		ExpectedOut:  make(map[Side]uint64, len(in.ExpectedOut)),
	}
	for k, v := range in.Instructions {
		c.Instructions[k] = append([]solana.Instruction(nil), v...)
	}
	for k, v := range in.Transactions {
		c.Transactions[k] = v
	}
	for k, v := range in.Dispatched {
		c.Dispatched[k] = v
	}
	for k, v := range in.ExpectedOut {
		c.ExpectedOut[k] = v
	}
	return c
}

// Trade 一个被跟踪的仓位
type Trade struct {
	ID  int64
	Amm Amm

	Price        float64
	Tvl          float64
	K            float64
	SolReserve   uint64
	TokenReserve uint64

	State     TradeState
	BuyPrice  float64
	BuyTime   *time.Time
	SellPrice float64
	SellTime  *time.Time
	Pct       float64
	Amount    uint64
	LastError string

	Risk      Risk
	Internal  *TradeInternal
	RequestID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewTrade(id int64, amm Amm, risk Risk, now time.Time) *Trade {
	return &Trade{
		ID:        id,
		Amm:       amm,
		State:     StateBuy,
		Risk:      risk,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Asset 交易的代币地址
func (t *Trade) Asset() solana.PublicKey {
	return t.Amm.Mint()
}

// Clone 深拷贝，签名后的交易只读共享
func (t *Trade) Clone() *Trade {
	c := *t
	c.Amm = t.Amm.clone()
	if t.BuyTime != nil {
		bt := *t.BuyTime
		c.BuyTime = &bt
	}
	if t.SellTime != nil {
		st := *t.SellTime
		c.SellTime = &st
	}
	if t.Internal != nil {
		c.Internal = t.Internal.clone()
	}
	return &c
}

func (t *Trade) Busy() bool {
	return t.Internal != nil && t.Internal.Busy
}

// PendingSide 当前处于提交中的方向
func (t *Trade) PendingSide() (Side, bool) {
	switch t.State {
	case StatePendingBuy:
		return SideBuy, true
	case StatePendingSell:
		return SideSell, true
	default:
		return 0, false
	}
}

// AttemptIndex 按签名查找本方向的提交记录
func (t *Trade) AttemptIndex(side Side, sig solana.Signature) int {
	return t.attemptAt(side, "", sig)
}

// EndpointAttemptIndex 按节点与签名查找，同一通道的多个节点共享同一签名
func (t *Trade) EndpointAttemptIndex(side Side, endpoint string, sig solana.Signature) int {
	if endpoint == "" {
		return -1
	}
	return t.attemptAt(side, endpoint, sig)
}

func (t *Trade) attemptAt(side Side, endpoint string, sig solana.Signature) int {
	if t.Internal == nil || sig == (solana.Signature{}) {
		return -1
	}
	for i := range t.Internal.RpcLogs {
		l := &t.Internal.RpcLogs[i]
		if l.Side == side && l.Signature == sig && (endpoint == "" || l.Endpoint == endpoint) {
			return i
		}
	}
	return -1
}

// OwnsSignature 签名是否属于本仓位在该方向上的提交
func (t *Trade) OwnsSignature(side Side, sig solana.Signature) bool {
	return t.AttemptIndex(side, sig) >= 0
}

// AppendAttempt 追加一条提交记录
func (t *Trade) AppendAttempt(l TradeRpcLog) {
	if t.Internal == nil {
		t.Internal = NewTradeInternal()
	}
	t.Internal.RpcLogs = append(t.Internal.RpcLogs, l)
}

// MarkAttempt 原地更新提交状态，endpoint 为空时更新该签名的第一条记录
func (t *Trade) MarkAttempt(side Side, endpoint string, sig solana.Signature, status RpcStatus, errText string) bool {
	idx := t.attemptAt(side, endpoint, sig)
	if idx < 0 {
		return false
	}
	l := &t.Internal.RpcLogs[idx]
	l.Status = status
	if errText != "" {
		l.Error = errText
	}
	return true
}

// FailedEndpoints 该方向上已失败的不同节点数
func (t *Trade) FailedEndpoints(side Side) int {
	if t.Internal == nil {
		return 0
	}
	seen := make(map[string]struct{})
	for _, l := range t.Internal.RpcLogs {
		if l.Side == side && l.Status == RpcStatusFail {
			seen[l.Endpoint] = struct{}{}
		}
	}
	return len(seen)
}

// EndpointFailed 指定节点在该方向上是否已记录失败
func (t *Trade) EndpointFailed(side Side, endpoint string) bool {
	if t.Internal == nil {
		return false
	}
	for _, l := range t.Internal.RpcLogs {
		if l.Side == side && l.Endpoint == endpoint && l.Status == RpcStatusFail {
			return true
		}
	}
	return false
}

func (t *Trade) Dispatched(side Side) int {
	if t.Internal == nil {
		return 0
	}
	return t.Internal.Dispatched[side]
}

func (t *Trade) ExpectedOut(side Side) uint64 {
	if t.Internal == nil {
		return 0
	}
	return t.Internal.ExpectedOut[side]
}

// ApplyMarket 写入最新市场状态
func (t *Trade) ApplyMarket(price, tvl, k float64, sol, token uint64) {
	t.Price = price
	t.Tvl = tvl
	t.K = k
	t.SolReserve = sol
	t.TokenReserve = token
}
