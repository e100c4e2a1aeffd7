package fragment

import (
	"github.com/gagliardetto/solana-go"
)

// RaydiumPoolFragment Raydium initialize2 指令的账户布局
type RaydiumPoolFragment struct {
	instNumber

	Amm           solana.PublicKey
	Authority     solana.PublicKey
	OpenOrders    solana.PublicKey
	LpMint        solana.PublicKey
	CoinMint      solana.PublicKey
	PcMint        solana.PublicKey
	CoinVault     solana.PublicKey
	PcVault       solana.PublicKey
	TargetOrders  solana.PublicKey
	MarketProgram solana.PublicKey
	Market        solana.PublicKey
	UserWallet    solana.PublicKey
	TokenProgram  solana.PublicKey
}

func (*RaydiumPoolFragment) Type() FragmentType {
	return RaydiumPoolType
}

// RaydiumSwapFragment Raydium swap 指令的账户布局
type RaydiumSwapFragment struct {
	instNumber

	Amm             solana.PublicKey
	Authority       solana.PublicKey
	OpenOrders      solana.PublicKey
	TargetOrders    solana.PublicKey // 17 个账户的版本没有
	CoinVault       solana.PublicKey
	PcVault         solana.PublicKey
	MarketProgram   solana.PublicKey
	Market          solana.PublicKey
	UserSource      solana.PublicKey
	UserDestination solana.PublicKey
	UserWallet      solana.PublicKey
	TokenProgram    solana.PublicKey
}

func (*RaydiumSwapFragment) Type() FragmentType {
	return RaydiumSwapType
}

// PumpCreateFragment pump.fun create 指令的账户布局
type PumpCreateFragment struct {
	instNumber

	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	Metadata               solana.PublicKey
	UserWallet             solana.PublicKey
	TokenProgram           solana.PublicKey
}

func (*PumpCreateFragment) Type() FragmentType {
	return PumpCreateType
}

// PumpSwapFragment pump.fun buy/sell 指令的账户布局
type PumpSwapFragment struct {
	instNumber

	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	AssociatedUser         solana.PublicKey
	UserWallet             solana.PublicKey
	TokenProgram           solana.PublicKey
}

func (*PumpSwapFragment) Type() FragmentType {
	return PumpSwapType
}
