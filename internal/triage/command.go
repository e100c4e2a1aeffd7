package triage

import (
	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/decoder"
	"github.com/ninja0404/meme-sniper/internal/model"
)

// Command 分拣产生的命令，只有下面两种
type Command interface {
	isTriageCommand()
}

// EvaluateTrade 交易涉及已跟踪仓位的代币
type EvaluateTrade struct {
	Trade     *model.Trade
	Signature solana.Signature
	Log       string
	Tx        *common.TxUpdate
}

func (EvaluateTrade) isTriageCommand() {}

// ConsiderNewPool 交易包含建池标记且没有命中任何仓位
type ConsiderNewPool struct {
	Signature solana.Signature
	Accounts  []solana.PublicKey
	Message   *common.TxUpdate
	Log       string
	Protocol  decoder.Protocol
}

func (ConsiderNewPool) isTriageCommand() {}

// InterestedTx 被识别为相关的交易
type InterestedTx struct {
	Signature solana.Signature
	Accounts  []solana.PublicKey
	Log       string
	Protocol  decoder.Protocol
	Message   *common.TxUpdate
}
