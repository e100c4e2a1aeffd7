package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Submitter 提交一笔已签名交易，返回交易签名
type Submitter interface {
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

type transactionSender interface {
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// RPCSubmitter 普通 sendTransaction，跳过预检
type RPCSubmitter struct {
	client transactionSender
}

func NewRPCSubmitter(client transactionSender) *RPCSubmitter {
	return &RPCSubmitter{client: client}
}

func (s *RPCSubmitter) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "sendTransaction")
	}
	return sig, nil
}

type bundleCaller interface {
	CallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error
}

// JitoSubmitter 以单笔交易 bundle 的方式提交到 block engine
type JitoSubmitter struct {
	client bundleCaller
}

func NewJitoSubmitter(client bundleCaller) *JitoSubmitter {
	return &JitoSubmitter{client: client}
}

// Submit 签名在发送前就已确定，bundle id 只用于排查
func (s *JitoSubmitter) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, errors.New("transaction is not signed")
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "marshal transaction")
	}

	var bundleID string
	params := []interface{}{[]string{base58.Encode(raw)}}
	if err := s.client.CallForInto(ctx, &bundleID, "sendBundle", params); err != nil {
		return solana.Signature{}, errors.Wrap(err, "sendBundle")
	}
	if bundleID == "" {
		return solana.Signature{}, errors.New("sendBundle returned empty bundle id")
	}
	return tx.Signatures[0], nil
}

var (
	_ Submitter         = (*RPCSubmitter)(nil)
	_ Submitter         = (*JitoSubmitter)(nil)
	_ transactionSender = (*rpc.Client)(nil)
	_ bundleCaller      = (jsonrpc.RPCClient)(nil)
)
