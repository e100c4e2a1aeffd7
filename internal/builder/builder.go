// Package builder 构建并签名买卖交易
package builder

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/model"
)

var ErrNoBlockhash = errors.New("recent blockhash unavailable")

const (
	defaultRaydiumComputeUnits uint32 = 120_000
	defaultPumpComputeUnits    uint32 = 80_000
)

// Tip 优先通道附加的小费
type Tip struct {
	Account  solana.PublicKey
	Lamports uint64
}

// Channel 一种提交通道，Tip 只在 priority 通道生效
type Channel struct {
	Kind model.ChannelKind
	Tip  *Tip
}

// Prepared 一次提交所需的全部交易，每种通道一笔
type Prepared struct {
	Side         model.Side
	Quote        Quote
	Instructions map[model.ChannelKind][]solana.Instruction
	Transactions map[model.ChannelKind]*solana.Transaction
	// Tips 每种通道实际附加的小费，未附加时为 0
	Tips map[model.ChannelKind]uint64
}

// Builder 持有签名钱包
type Builder struct {
	payer solana.PrivateKey
}

func New(payer solana.PrivateKey) *Builder {
	return &Builder{payer: payer}
}

func (b *Builder) Payer() solana.PublicKey {
	return b.payer.PublicKey()
}

// Build 为每种通道构建指令并用同一个 blockhash 签名
func (b *Builder) Build(t *model.Trade, side model.Side, channels []Channel, blockhash solana.Hash) (*Prepared, error) {
	if blockhash == (solana.Hash{}) {
		return nil, ErrNoBlockhash
	}
	if len(channels) == 0 {
		return nil, errors.New("no submission channel configured")
	}

	q, err := QuoteFor(t, side)
	if err != nil {
		return nil, err
	}
	swap, err := b.swapInstructions(t, q)
	if err != nil {
		return nil, err
	}

	p := &Prepared{
		Side:         side,
		Quote:        q,
		Instructions: make(map[model.ChannelKind][]solana.Instruction, len(channels)),
		Transactions: make(map[model.ChannelKind]*solana.Transaction, len(channels)),
		Tips:         make(map[model.ChannelKind]uint64, len(channels)),
	}
	for _, ch := range channels {
		if _, ok := p.Transactions[ch.Kind]; ok {
			continue
		}
		ixs := append(b.computeBudget(t), swap...)
		if ch.Kind == model.ChannelPriority && ch.Tip != nil && ch.Tip.Lamports > 0 {
			ixs = append(ixs, Transfer(ch.Tip.Lamports, b.Payer(), ch.Tip.Account))
			p.Tips[ch.Kind] = ch.Tip.Lamports
		}
		tx, err := b.sign(ixs, blockhash)
		if err != nil {
			return nil, errors.Wrapf(err, "sign %s transaction", ch.Kind)
		}
		p.Instructions[ch.Kind] = ixs
		p.Transactions[ch.Kind] = tx
	}
	return p, nil
}

func (b *Builder) computeBudget(t *model.Trade) []solana.Instruction {
	units := t.Risk.RaydiumComputeUnits
	if units == 0 {
		units = defaultRaydiumComputeUnits
	}
	if t.Amm.Kind() == model.AmmPump {
		units = t.Risk.PumpComputeUnits
		if units == 0 {
			units = defaultPumpComputeUnits
		}
	}
	ixs := []solana.Instruction{ComputeUnitLimit(units)}
	if t.Risk.PriorityFeeMicroLamports > 0 {
		ixs = append(ixs, ComputeUnitPrice(t.Risk.PriorityFeeMicroLamports))
	}
	return ixs
}

func (b *Builder) swapInstructions(t *model.Trade, q Quote) ([]solana.Instruction, error) {
	switch t.Amm.Kind() {
	case model.AmmRaydium:
		pool, err := t.Amm.RaydiumPool()
		if err != nil {
			return nil, err
		}
		return b.raydiumSwap(pool, t.Asset(), q)
	case model.AmmPump:
		curve, err := t.Amm.PumpCurve()
		if err != nil {
			return nil, err
		}
		return b.pumpSwap(curve, q)
	default:
		return nil, errors.Wrapf(model.ErrAmmVariantMismatch, "trade %d pool unresolved", t.ID)
	}
}

// raydiumSwap WSOL 通过临时 ATA 充值，交易结束后关闭
func (b *Builder) raydiumSwap(pool *model.RaydiumPool, mint solana.PublicKey, q Quote) ([]solana.Instruction, error) {
	owner := b.Payer()
	createWsol, wsolATA, err := CreateATAIdempotent(owner, owner, common.WSOLMint)
	if err != nil {
		return nil, err
	}
	createToken, tokenATA, err := CreateATAIdempotent(owner, owner, mint)
	if err != nil {
		return nil, err
	}

	ixs := []solana.Instruction{createWsol}
	switch q.Side {
	case model.SideBuy:
		ixs = append(ixs,
			Transfer(q.AmountIn, owner, wsolATA),
			SyncNative(wsolATA),
			createToken,
			RaydiumSwapBaseIn(pool, wsolATA, tokenATA, owner, q.AmountIn, q.MinOut),
		)
	default:
		ixs = append(ixs, RaydiumSwapBaseIn(pool, tokenATA, wsolATA, owner, q.AmountIn, q.MinOut))
	}
	return append(ixs, CloseAccount(wsolATA, owner, owner)), nil
}

func (b *Builder) pumpSwap(curve *model.PumpCurve, q Quote) ([]solana.Instruction, error) {
	owner := b.Payer()
	createToken, tokenATA, err := CreateATAIdempotent(owner, owner, curve.Mint)
	if err != nil {
		return nil, err
	}
	if q.Side == model.SideBuy {
		return []solana.Instruction{createToken, PumpBuy(curve, tokenATA, owner, q.MinOut, q.AmountIn)}, nil
	}
	return []solana.Instruction{PumpSell(curve, tokenATA, owner, q.AmountIn, q.MinOut)}, nil
}

func (b *Builder) sign(ixs []solana.Instruction, blockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(b.Payer()))
	if err != nil {
		return nil, errors.Wrap(err, "new transaction")
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(b.Payer()) {
			return &b.payer
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}
