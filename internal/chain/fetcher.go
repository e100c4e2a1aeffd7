package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/common"
)

type transactionGetter interface {
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// TxFetcher 按签名拉取完整交易
type TxFetcher struct {
	client     transactionGetter
	commitment rpc.CommitmentType
}

func NewTxFetcher(client transactionGetter, commitment rpc.CommitmentType) *TxFetcher {
	return &TxFetcher{client: client, commitment: commitment}
}

func (f *TxFetcher) Fetch(ctx context.Context, sig solana.Signature) (*common.TxUpdate, error) {
	maxVersion := uint64(0)
	out, err := f.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     f.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getTransaction %s", sig)
	}
	return ToTxUpdate(sig, out)
}

// ToTxUpdate 转换 getTransaction 结果，账户顺序为静态账户、可写加载账户、只读加载账户
func ToTxUpdate(sig solana.Signature, out *rpc.GetTransactionResult) (*common.TxUpdate, error) {
	if out == nil || out.Transaction == nil {
		return nil, errors.Errorf("transaction %s not found", sig)
	}
	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, errors.Wrapf(err, "decode transaction %s", sig)
	}

	update := &common.TxUpdate{
		Signature:   sig,
		Slot:        out.Slot,
		AccountKeys: append([]solana.PublicKey(nil), tx.Message.AccountKeys...),
	}
	if out.BlockTime != nil {
		update.BlockTime = out.BlockTime.Time()
	}
	if out.Meta != nil {
		update.Logs = out.Meta.LogMessages
		update.AccountKeys = append(update.AccountKeys, out.Meta.LoadedAddresses.Writable...)
		update.AccountKeys = append(update.AccountKeys, out.Meta.LoadedAddresses.ReadOnly...)
		if out.Meta.Err != nil {
			update.Err = fmt.Sprintf("%v", out.Meta.Err)
		}
	}
	for _, ix := range tx.Message.Instructions {
		update.Instructions = append(update.Instructions, common.CompiledInstruction{
			ProgramIDIndex: ix.ProgramIDIndex,
			Accounts:       append([]uint16(nil), ix.Accounts...),
			Data:           []byte(ix.Data),
		})
	}
	return update, nil
}
