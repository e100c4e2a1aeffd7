// Package chain 与 Solana 节点交互：提交、确认、blockhash、代币精度与交易拉取
package chain

import (
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

const defaultRequestTimeout = 10 * time.Second

// NewRPCClient 创建带请求超时的 rpc 客户端，每个节点独立一个
func NewRPCClient(url string, timeout time.Duration) *rpc.Client {
	return rpc.NewWithCustomRPCClient(newJSONRPCClient(url, timeout))
}

func newJSONRPCClient(url string, timeout time.Duration) jsonrpc.RPCClient {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return jsonrpc.NewClientWithOpts(url, &jsonrpc.RPCClientOpts{
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	})
}
