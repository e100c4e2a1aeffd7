package model

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// RpcStatus 提交记录状态
type RpcStatus int32

const (
	RpcStatusPending RpcStatus = iota + 1
	RpcStatusSuccess
	RpcStatusFail
)

func (s RpcStatus) String() string {
	switch s {
	case RpcStatusPending:
		return "pending"
	case RpcStatusSuccess:
		return "success"
	case RpcStatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// TradeRpcLog 一次向某个节点的提交记录
type TradeRpcLog struct {
	Endpoint    string           `json:"endpoint"`
	URL         string           `json:"url"`
	Channel     ChannelKind      `json:"channel"`
	Side        Side             `json:"side"`
	Signature   solana.Signature `json:"signature"`
	Latency     time.Duration    `json:"latency"`
	Status      RpcStatus        `json:"status"`
	TipLamports uint64           `json:"tip_lamports,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}
