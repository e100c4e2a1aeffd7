// Package triage 判断链上交易是否与引擎相关，并生成待处理命令
package triage

import (
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/decoder"
	"github.com/ninja0404/meme-sniper/internal/position"
)

const (
	RaydiumMarker = "ray_log"
	// PumpMarker TradeEvent 判别码 base64 后的固定前缀
	PumpMarker = "Program data: vdt/007mYe"

	RaydiumInitMarker = "initialize2"
	PumpInitMarker    = "Instruction: Create"
)

// Interest 扫描日志，返回唯一的协议相关日志行
//
// 两种协议的标记都不存在或同时存在时返回 nil。
func Interest(update *common.TxUpdate) *InterestedTx {
	if update == nil || update.Err != "" {
		return nil
	}

	var rayLine, pumpLine string
	var hasRay, hasPump bool
	for _, line := range update.Logs {
		if !hasRay && strings.Contains(line, RaydiumMarker) {
			hasRay, rayLine = true, line
		}
		if !hasPump && strings.Contains(line, PumpMarker) {
			hasPump, pumpLine = true, line
		}
	}

	it := &InterestedTx{
		Signature: update.Signature,
		Accounts:  update.AccountKeys,
		Message:   update,
	}
	switch {
	case hasRay && !hasPump:
		it.Log, it.Protocol = rayLine, decoder.ProtocolRaydium
	case hasPump && !hasRay:
		it.Log, it.Protocol = pumpLine, decoder.ProtocolPump
	default:
		return nil
	}
	return it
}

// Triage 分拣一条交易
func Triage(update *common.TxUpdate, cache *position.Cache) ([]Command, *InterestedTx) {
	it := Interest(update)
	if it == nil {
		return nil, nil
	}

	var cmds []Command
	seen := make(map[solana.PublicKey]struct{}, len(it.Accounts))
	for _, key := range it.Accounts {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		for _, t := range cache.GetByAsset(key) {
			cmds = append(cmds, EvaluateTrade{
				Trade:     t,
				Signature: it.Signature,
				Log:       it.Log,
				Tx:        update,
			})
		}
	}
	if len(cmds) > 0 {
		return cmds, it
	}

	if hasInitMarker(update.Logs, it.Protocol) {
		cmds = append(cmds, ConsiderNewPool{
			Signature: it.Signature,
			Accounts:  it.Accounts,
			Message:   update,
			Log:       it.Log,
			Protocol:  it.Protocol,
		})
	}
	return cmds, it
}

func hasInitMarker(logs []string, protocol decoder.Protocol) bool {
	marker := RaydiumInitMarker
	if protocol == decoder.ProtocolPump {
		marker = PumpInitMarker
	}
	for _, line := range logs {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}
