package common

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type EventType int32

const (
	TxUpdateEventType EventType = iota + 1
	TradeEventType
)

func (e EventType) Enum() int32 {
	return int32(e)
}

type Event struct {
	Type       EventType  `json:"type"`
	InnerEvent InnerEvent `json:"inner_event"`
}

type InnerEvent interface {
	GetKey() string
}

// CompiledInstruction 交易中的一条指令，账户以下标引用 AccountKeys
type CompiledInstruction struct {
	ProgramIDIndex uint16   `json:"program_id_index"`
	Accounts       []uint16 `json:"accounts"`
	Data           []byte   `json:"data"`
}

// TxUpdate 链上交易流中的一条交易
type TxUpdate struct {
	Signature    solana.Signature      `json:"signature"`
	Slot         uint64                `json:"slot"`
	BlockTime    time.Time             `json:"block_time"`
	AccountKeys  []solana.PublicKey    `json:"account_keys"` // 静态账户在前，随后是 ALT 加载的可写/只读账户
	Instructions []CompiledInstruction `json:"instructions"`
	Logs         []string              `json:"logs"`
	Err          string                `json:"err,omitempty"`
}

func (t *TxUpdate) GetKey() string {
	return t.Signature.String()
}

// ProgramID 指令对应的程序地址
func (t *TxUpdate) ProgramID(ix CompiledInstruction) (solana.PublicKey, bool) {
	if int(ix.ProgramIDIndex) >= len(t.AccountKeys) {
		return solana.PublicKey{}, false
	}
	return t.AccountKeys[ix.ProgramIDIndex], true
}

// InstructionAccounts 展开指令的账户列表，越界时 ok 为 false
func (t *TxUpdate) InstructionAccounts(ix CompiledInstruction) ([]solana.PublicKey, bool) {
	out := make([]solana.PublicKey, len(ix.Accounts))
	for i, idx := range ix.Accounts {
		if int(idx) >= len(t.AccountKeys) {
			return nil, false
		}
		out[i] = t.AccountKeys[idx]
	}
	return out, true
}

// TradeEvent 仓位状态变化事件，推送给下游
type TradeEvent struct {
	TradeID   int64           `json:"trade_id"`
	RequestID string          `json:"request_id"`
	Mint      string          `json:"mint"`
	AmmKind   string          `json:"amm_kind"`
	Pool      string          `json:"pool"`
	State     string          `json:"state"`
	Signature string          `json:"signature"`
	Price     decimal.Decimal `json:"price"`
	BuyPrice  decimal.Decimal `json:"buy_price"`
	SellPrice decimal.Decimal `json:"sell_price"`
	Pct       decimal.Decimal `json:"pct"`
	Amount    decimal.Decimal `json:"amount"`
	Decimals  int32           `json:"decimals"`
	LastError string          `json:"last_error"`
	Timestamp time.Time       `json:"timestamp"`
}

func (t *TradeEvent) GetKey() string {
	return fmt.Sprintf("%d-%s", t.TradeID, t.State)
}
