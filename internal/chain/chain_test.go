package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/meme-sniper/internal/builder"
	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/model"
)

func signedTx(t *testing.T) (*solana.Transaction, solana.PrivateKey) {
	payer := solana.NewWallet().PrivateKey
	tx, err := solana.NewTransaction(
		[]solana.Instruction{builder.Transfer(1000, payer.PublicKey(), solana.NewWallet().PublicKey())},
		solana.Hash{9},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	})
	require.NoError(t, err)
	return tx, payer
}

type fakeStatuses struct {
	mu      sync.Mutex
	results []*rpc.SignatureStatusesResult
	calls   int
}

func (f *fakeStatuses) GetSignatureStatuses(_ context.Context, _ bool, _ ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var st *rpc.SignatureStatusesResult
	if f.calls < len(f.results) {
		st = f.results[f.calls]
	} else if len(f.results) > 0 {
		st = f.results[len(f.results)-1]
	}
	f.calls++
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{st}}, nil
}

func fastConfirm() ConfirmConfig {
	return ConfirmConfig{
		Timeout:        200 * time.Millisecond,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     1.5,
	}
}

func TestConfirmerPollsUntilConfirmed(t *testing.T) {
	f := &fakeStatuses{results: []*rpc.SignatureStatusesResult{
		nil,
		{ConfirmationStatus: rpc.ConfirmationStatusProcessed},
		{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
	}}
	c := NewRPCConfirmer(f, fastConfirm())
	require.NoError(t, c.PollUntilFinal(context.Background(), solana.Signature{1}))
	assert.Equal(t, 3, f.calls)
}

func TestConfirmerReportsOnChainError(t *testing.T) {
	f := &fakeStatuses{results: []*rpc.SignatureStatusesResult{
		{ConfirmationStatus: rpc.ConfirmationStatusConfirmed, Err: map[string]interface{}{"InstructionError": []interface{}{2, "Custom"}}},
	}}
	err := NewRPCConfirmer(f, fastConfirm()).PollUntilFinal(context.Background(), solana.Signature{1})
	assert.ErrorIs(t, err, ErrTxFailed)
	assert.Equal(t, 1, f.calls)
}

func TestConfirmerTimesOut(t *testing.T) {
	f := &fakeStatuses{}
	err := NewRPCConfirmer(f, fastConfirm()).PollUntilFinal(context.Background(), solana.Signature{1})
	assert.ErrorIs(t, err, ErrConfirmTimeout)
	assert.Greater(t, f.calls, 1)
}

type fakeSender struct {
	opts rpc.TransactionOpts
	err  error
}

func (f *fakeSender) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.opts = opts
	if f.err != nil {
		return solana.Signature{}, f.err
	}
	return tx.Signatures[0], nil
}

func TestRPCSubmitterSkipsPreflight(t *testing.T) {
	tx, _ := signedTx(t)
	f := &fakeSender{}
	sig, err := NewRPCSubmitter(f).Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], sig)
	assert.True(t, f.opts.SkipPreflight)

	f.err = fmt.Errorf("429 too many requests")
	_, err = NewRPCSubmitter(f).Submit(context.Background(), tx)
	assert.ErrorContains(t, err, "sendTransaction")
}

type fakeBundle struct {
	method string
	params []interface{}
	id     string
}

func (f *fakeBundle) CallForInto(_ context.Context, out interface{}, method string, params []interface{}) error {
	f.method, f.params = method, params
	*(out.(*string)) = f.id
	return nil
}

func TestJitoSubmitterSendsBundle(t *testing.T) {
	tx, _ := signedTx(t)
	f := &fakeBundle{id: "bundle-1"}
	sig, err := NewJitoSubmitter(f).Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], sig)
	assert.Equal(t, "sendBundle", f.method)
	require.Len(t, f.params, 1)
	assert.Len(t, f.params[0], 1)

	f.id = ""
	_, err = NewJitoSubmitter(f).Submit(context.Background(), tx)
	assert.Error(t, err)
}

type fakeBlockhash struct{ hash solana.Hash }

func (f *fakeBlockhash) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: f.hash}}, nil
}

func TestBlockhashCache(t *testing.T) {
	f := &fakeBlockhash{hash: solana.Hash{7, 7}}
	c, err := NewBlockhashCache(f, rpc.CommitmentConfirmed, time.Second)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, solana.Hash{}, c.Latest())
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, f.hash, c.Latest())

	f.hash = solana.Hash{8}
	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, solana.Hash{8}, c.Latest())
}

type fakeSupply struct{ calls int }

func (f *fakeSupply) GetTokenSupply(context.Context, solana.PublicKey, rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error) {
	f.calls++
	return &rpc.GetTokenSupplyResult{Value: &rpc.UiTokenAmount{Decimals: 9}}, nil
}

func TestDecimalsResolverCaches(t *testing.T) {
	f := &fakeSupply{}
	r, err := NewDecimalsResolver(f, CacheConfig{}, time.Hour)
	require.NoError(t, err)
	defer r.Close()

	mint := solana.NewWallet().PublicKey()
	for i := 0; i < 3; i++ {
		d, err := r.Resolve(context.Background(), mint)
		require.NoError(t, err)
		assert.Equal(t, uint8(9), d)
	}
	assert.Equal(t, 1, f.calls)
}

func TestNewEndpoints(t *testing.T) {
	tip := solana.NewWallet().PublicKey()
	eps, err := NewEndpoints([]EndpointConfig{
		{Name: "helius", URL: "http://127.0.0.1:8899"},
		{Name: "jito-ny", Kind: "jito", URL: "http://127.0.0.1:9999/api/v1/bundles", TipAccount: tip.String(), TipLamports: 10000},
		{Name: "triton", Kind: "RPC", URL: "http://127.0.0.1:8898"},
	})
	require.NoError(t, err)
	require.Len(t, eps, 3)
	assert.Equal(t, model.ChannelPlain, eps[0].Channel)
	assert.Equal(t, model.ChannelPriority, eps[1].Channel)
	require.NotNil(t, eps[1].Tip)
	assert.Equal(t, tip, eps[1].Tip.Account)

	channels := Channels(eps)
	require.Len(t, channels, 2)
	assert.Equal(t, model.ChannelPlain, channels[0].Kind)
	assert.Equal(t, uint64(10000), channels[1].Tip.Lamports)

	_, err = NewEndpoints([]EndpointConfig{{Name: "a", URL: "x"}, {Name: "a", URL: "y"}})
	assert.Error(t, err)
	_, err = NewEndpoints([]EndpointConfig{{Name: "j", Kind: "jito", URL: "x"}})
	assert.Error(t, err)
	_, err = NewEndpoints([]EndpointConfig{{Name: "q", Kind: "quic", URL: "x"}})
	assert.Error(t, err)

	set := NewEndpointSet(eps)
	loaded := set.Load()
	loaded[0].Name = "mutated"
	assert.Equal(t, "helius", set.Load()[0].Name)
	set.Store(eps[:1])
	assert.Len(t, set.Load(), 1)
}

func TestToTxUpdate(t *testing.T) {
	tx, payer := signedTx(t)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	loadedW := solana.NewWallet().PublicKey()
	loadedR := solana.NewWallet().PublicKey()
	body := fmt.Sprintf(`{
		"slot": 321,
		"blockTime": 1700000000,
		"transaction": [%q, "base64"],
		"meta": {
			"err": null,
			"fee": 5000,
			"preBalances": [],
			"postBalances": [],
			"logMessages": ["Program log: hello"],
			"loadedAddresses": {"writable": [%q], "readonly": [%q]}
		}
	}`, base64.StdEncoding.EncodeToString(raw), loadedW, loadedR)

	var out rpc.GetTransactionResult
	require.NoError(t, json.Unmarshal([]byte(body), &out))

	update, err := ToTxUpdate(tx.Signatures[0], &out)
	require.NoError(t, err)
	assert.Equal(t, uint64(321), update.Slot)
	assert.Equal(t, int64(1700000000), update.BlockTime.Unix())
	assert.Equal(t, []string{"Program log: hello"}, update.Logs)
	assert.Empty(t, update.Err)
	assert.Equal(t, payer.PublicKey(), update.AccountKeys[0])
	assert.Equal(t, loadedW, update.AccountKeys[len(update.AccountKeys)-2])
	assert.Equal(t, loadedR, update.AccountKeys[len(update.AccountKeys)-1])
	require.Len(t, update.Instructions, 1)

	pid, ok := update.ProgramID(update.Instructions[0])
	require.True(t, ok)
	assert.Equal(t, common.SystemProgram, pid)

	_, err = ToTxUpdate(tx.Signatures[0], nil)
	assert.Error(t, err)
}
