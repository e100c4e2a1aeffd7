package engine

import (
	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/meme-sniper/internal/model"
)

// Command 发往引擎主循环的命令
type Command interface {
	Type() string
}

// OpenPosition 以代币地址开仓，池子在第一次看到该代币的交易时还原
type OpenPosition struct {
	RequestID string
	Mint      solana.PublicKey
	Risk      model.Risk
}

func (OpenPosition) Type() string { return "open_position" }

// SubmitAccepted 节点已接受提交
type SubmitAccepted struct {
	TradeID int64
	Log     model.TradeRpcLog
}

func (SubmitAccepted) Type() string { return "submit_accepted" }

// SubmitFailed 节点拒绝或提交出错
type SubmitFailed struct {
	TradeID int64
	Log     model.TradeRpcLog
}

func (SubmitFailed) Type() string { return "submit_failed" }

// ConfirmResult 确认轮询结束，Err 为空表示已确认
type ConfirmResult struct {
	TradeID int64
	Log     model.TradeRpcLog
	Err     error
}

func (ConfirmResult) Type() string { return "confirm_result" }

// DecimalsResolved 异步查询代币精度的结果
type DecimalsResolved struct {
	Mint     solana.PublicKey
	Decimals uint8
	Err      error
}

func (DecimalsResolved) Type() string { return "decimals_resolved" }
