package decoder

import (
	"github.com/gagliardetto/solana-go"
)

// Protocol 日志所属协议
type Protocol int32

const (
	ProtocolUnknown Protocol = iota
	ProtocolRaydium          // Raydium AMM v4 (ray_log)
	ProtocolPump             // pump.fun bonding curve (TradeEvent)
)

func (p Protocol) String() string {
	switch p {
	case ProtocolRaydium:
		return "raydium"
	case ProtocolPump:
		return "pump"
	default:
		return "unknown"
	}
}

// EventKind 事件类型
type EventKind int32

const (
	KindInit EventKind = iota + 1
	KindDeposit
	KindWithdraw
	KindSwapBaseIn
	KindSwapBaseOut
	KindPumpTrade
)

func (k EventKind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindDeposit:
		return "deposit"
	case KindWithdraw:
		return "withdraw"
	case KindSwapBaseIn:
		return "swap_base_in"
	case KindSwapBaseOut:
		return "swap_base_out"
	case KindPumpTrade:
		return "pump_trade"
	default:
		return "unknown"
	}
}

// Reserves 池子两侧储备，pump 协议中 PC 为 SOL 侧，Coin 为代币侧
type Reserves struct {
	PC   uint64
	Coin uint64
}

// Product 常数乘积
func (r Reserves) Product() float64 {
	return float64(r.PC) * float64(r.Coin)
}

// PoolEvent 解码后的池子事件
//
// 每个变体都同时给出交易前储备(Pre)与交易后储备(Next)，调用方按需选择定价口径。
type PoolEvent interface {
	Protocol() Protocol
	Kind() EventKind
	Pre() Reserves
	Next() Reserves
	// AmountOut 本笔交易实际得到的数量
	AmountOut() uint64
	isPoolEvent()
}

type reserves struct {
	pre  Reserves
	next Reserves
}

func (r reserves) Pre() Reserves  { return r.pre }
func (r reserves) Next() Reserves { return r.next }

// RaydiumInit 建池事件
type RaydiumInit struct {
	reserves
	Log InitLog
}

func (e *RaydiumInit) Protocol() Protocol { return ProtocolRaydium }
func (e *RaydiumInit) Kind() EventKind    { return KindInit }
func (e *RaydiumInit) AmountOut() uint64  { return 0 }
func (e *RaydiumInit) isPoolEvent()       {}

// Decimals 非 SOL 一侧的精度
func (e *RaydiumInit) Decimals() uint8 {
	if e.Log.PcDecimals == SolDecimals {
		return e.Log.CoinDecimals
	}
	return e.Log.PcDecimals
}

// Market 建池时的 OpenBook 市场
func (e *RaydiumInit) Market() solana.PublicKey {
	return e.Log.Market
}

// RaydiumDeposit 添加流动性
type RaydiumDeposit struct {
	reserves
	Log DepositLog
}

func (e *RaydiumDeposit) Protocol() Protocol { return ProtocolRaydium }
func (e *RaydiumDeposit) Kind() EventKind    { return KindDeposit }
func (e *RaydiumDeposit) AmountOut() uint64  { return e.Log.MintLp }
func (e *RaydiumDeposit) isPoolEvent()       {}

// RaydiumWithdraw 撤出流动性
type RaydiumWithdraw struct {
	reserves
	Log WithdrawLog
}

func (e *RaydiumWithdraw) Protocol() Protocol { return ProtocolRaydium }
func (e *RaydiumWithdraw) Kind() EventKind    { return KindWithdraw }
func (e *RaydiumWithdraw) AmountOut() uint64  { return e.Log.OutCoin }
func (e *RaydiumWithdraw) isPoolEvent()       {}

type RaydiumSwapBaseIn struct {
	reserves
	Log SwapBaseInLog
}

func (e *RaydiumSwapBaseIn) Protocol() Protocol { return ProtocolRaydium }
func (e *RaydiumSwapBaseIn) Kind() EventKind    { return KindSwapBaseIn }
func (e *RaydiumSwapBaseIn) AmountOut() uint64  { return e.Log.OutAmount }
func (e *RaydiumSwapBaseIn) isPoolEvent()       {}

type RaydiumSwapBaseOut struct {
	reserves
	Log SwapBaseOutLog
}

func (e *RaydiumSwapBaseOut) Protocol() Protocol { return ProtocolRaydium }
func (e *RaydiumSwapBaseOut) Kind() EventKind    { return KindSwapBaseOut }
func (e *RaydiumSwapBaseOut) AmountOut() uint64  { return e.Log.AmountOut }
func (e *RaydiumSwapBaseOut) isPoolEvent()       {}

// PumpTrade pump.fun 买卖事件
type PumpTrade struct {
	reserves
	Log TradeEventLog
}

func (e *PumpTrade) Protocol() Protocol { return ProtocolPump }
func (e *PumpTrade) Kind() EventKind    { return KindPumpTrade }
func (e *PumpTrade) isPoolEvent()       {}

func (e *PumpTrade) AmountOut() uint64 {
	if e.Log.IsBuy {
		return e.Log.TokenAmount
	}
	return e.Log.SolAmount
}

// Mint 事件中的代币地址
func (e *PumpTrade) Mint() solana.PublicKey {
	return e.Log.Mint
}

// Decimals pump 代币精度固定为 6
func (e *PumpTrade) Decimals() uint8 {
	return PumpTokenDecimals
}

func subSat(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
