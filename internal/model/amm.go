package model

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/common"
)

var ErrAmmVariantMismatch = errors.New("amm variant mismatch")

// AmmKind 交易目标池子类型
type AmmKind int32

const (
	AmmGeneric AmmKind = iota // 仅知道代币地址
	AmmRaydium
	AmmPump
)

func (k AmmKind) String() string {
	switch k {
	case AmmRaydium:
		return "raydium"
	case AmmPump:
		return "pump"
	default:
		return "generic"
	}
}

// RaydiumPool Raydium AMM v4 池子账户
type RaydiumPool struct {
	ID            solana.PublicKey
	Authority     solana.PublicKey
	OpenOrders    solana.PublicKey
	TargetOrders  solana.PublicKey
	LpMint        solana.PublicKey
	CoinMint      solana.PublicKey
	PcMint        solana.PublicKey
	CoinVault     solana.PublicKey
	PcVault       solana.PublicKey
	Market        solana.PublicKey
	MarketProgram solana.PublicKey
	TokenProgram  solana.PublicKey
}

// SolSide PC 侧是否为 WSOL，两侧 mint 都不是 WSOL 时 known 为 false
func (p *RaydiumPool) SolSide() (pcIsSol bool, known bool) {
	switch {
	case p.PcMint.Equals(common.WSOLMint):
		return true, true
	case p.CoinMint.Equals(common.WSOLMint):
		return false, true
	default:
		return false, false
	}
}

// TokenMint 非 WSOL 一侧的代币
func (p *RaydiumPool) TokenMint() solana.PublicKey {
	if pcIsSol, known := p.SolSide(); known && !pcIsSol {
		return p.PcMint
	}
	return p.CoinMint
}

// PumpCurve pump.fun bonding curve 账户
type PumpCurve struct {
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	TokenProgram           solana.PublicKey
}

// Amm 交易目标，协议相关字段只能通过对应的访问方法取得
type Amm struct {
	kind     AmmKind
	mint     solana.PublicKey
	decimals *uint8
	raydium  *RaydiumPool
	pump     *PumpCurve
}

func NewGenericAmm(mint solana.PublicKey) Amm {
	return Amm{kind: AmmGeneric, mint: mint}
}

func NewRaydiumAmm(pool RaydiumPool) Amm {
	return Amm{kind: AmmRaydium, mint: pool.TokenMint(), raydium: &pool}
}

func NewPumpAmm(curve PumpCurve) Amm {
	return Amm{kind: AmmPump, mint: curve.Mint, pump: &curve}
}

func (a Amm) Kind() AmmKind {
	return a.kind
}

// Mint 交易的代币地址
func (a Amm) Mint() solana.PublicKey {
	return a.mint
}

// Decimals 代币精度，未解析时 ok 为 false
func (a Amm) Decimals() (uint8, bool) {
	if a.decimals == nil {
		return 0, false
	}
	return *a.decimals, true
}

func (a Amm) WithDecimals(d uint8) Amm {
	a.decimals = &d
	return a
}

// Resolve 用具体池子替换通用引用，保留已解析的精度
func (a Amm) Resolve(resolved Amm) Amm {
	if resolved.decimals == nil && a.decimals != nil {
		resolved = resolved.WithDecimals(*a.decimals)
	}
	return resolved
}

func (a Amm) RaydiumPool() (*RaydiumPool, error) {
	if a.kind != AmmRaydium || a.raydium == nil {
		return nil, errors.Wrapf(ErrAmmVariantMismatch, "want raydium, got %s", a.kind)
	}
	p := *a.raydium
	return &p, nil
}

func (a Amm) PumpCurve() (*PumpCurve, error) {
	if a.kind != AmmPump || a.pump == nil {
		return nil, errors.Wrapf(ErrAmmVariantMismatch, "want pump, got %s", a.kind)
	}
	c := *a.pump
	return &c, nil
}

// PoolAddress 池子地址，通用引用返回零值
func (a Amm) PoolAddress() solana.PublicKey {
	switch a.kind {
	case AmmRaydium:
		return a.raydium.ID
	case AmmPump:
		return a.pump.BondingCurve
	default:
		return solana.PublicKey{}
	}
}

// PcIsSol 储备中 PC 侧是否为 SOL，无法判断时返回 nil
func (a Amm) PcIsSol() *bool {
	var v bool
	switch a.kind {
	case AmmRaydium:
		pcIsSol, known := a.raydium.SolSide()
		if !known {
			return nil
		}
		v = pcIsSol
	case AmmPump:
		v = true
	default:
		return nil
	}
	return &v
}

func (a Amm) clone() Amm {
	c := a
	if a.decimals != nil {
		d := *a.decimals
		c.decimals = &d
	}
	if a.raydium != nil {
		p := *a.raydium
		c.raydium = &p
	}
	if a.pump != nil {
		p := *a.pump
		c.pump = &p
	}
	return c
}
