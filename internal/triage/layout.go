package triage

import (
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/common/fragment"
	"github.com/ninja0404/meme-sniper/internal/decoder"
	"github.com/ninja0404/meme-sniper/internal/model"
)

const (
	raydiumInitAccounts      = 21
	raydiumSwapAccounts      = 17
	raydiumSwapAccountsLarge = 18
	pumpCreateAccounts       = 14
	pumpSwapAccounts         = 12

	raydiumSwapBaseIn  byte = 9
	raydiumSwapBaseOut byte = 11
)

var (
	raydiumInitExpected = []solana.PublicKey{
		common.TokenProgram,
		common.AssociatedTokenProgram,
		common.SystemProgram,
		common.RentSysvar,
		common.RaydiumAuthority,
		common.RaydiumAmmConfig,
		common.RaydiumCreateFeeDst,
		common.OpenBookProgram,
	}
	raydiumSwapExpected = []solana.PublicKey{
		common.TokenProgram,
		common.RaydiumAuthority,
	}
	pumpCreateExpected = []solana.PublicKey{
		common.PumpMintAuthority,
		common.PumpGlobal,
		common.MetaplexProgram,
		common.SystemProgram,
		common.TokenProgram,
		common.AssociatedTokenProgram,
		common.RentSysvar,
		common.PumpEventAuthority,
		common.PumpProgram,
	}
	pumpSwapExpected = []solana.PublicKey{
		common.PumpGlobal,
		common.SystemProgram,
		common.TokenProgram,
		common.PumpEventAuthority,
		common.PumpProgram,
	}
)

func containsAll(accounts []solana.PublicKey, expected []solana.PublicKey) bool {
	set := make(map[solana.PublicKey]struct{}, len(accounts))
	for _, a := range accounts {
		set[a] = struct{}{}
	}
	for _, e := range expected {
		if _, ok := set[e]; !ok {
			return false
		}
	}
	return true
}

// programInstructions 依次返回目标程序的顶层指令及其账户列表
func programInstructions(tx *common.TxUpdate, program solana.PublicKey, fn func(idx int, ix common.CompiledInstruction, accounts []solana.PublicKey) bool) {
	if tx == nil {
		return
	}
	for i, ix := range tx.Instructions {
		pid, ok := tx.ProgramID(ix)
		if !ok || !pid.Equals(program) {
			continue
		}
		accounts, ok := tx.InstructionAccounts(ix)
		if !ok {
			continue
		}
		if fn(i, ix, accounts) {
			return
		}
	}
}

// MatchRaydiumInit 匹配 Raydium initialize2 的 21 个账户布局
func MatchRaydiumInit(tx *common.TxUpdate) (*fragment.RaydiumPoolFragment, bool) {
	var out *fragment.RaydiumPoolFragment
	programInstructions(tx, common.RaydiumAMMProgram, func(idx int, _ common.CompiledInstruction, a []solana.PublicKey) bool {
		if len(a) != raydiumInitAccounts || !containsAll(a, raydiumInitExpected) {
			return false
		}
		out = &fragment.RaydiumPoolFragment{
			TokenProgram:  a[0],
			Amm:           a[4],
			Authority:     a[5],
			OpenOrders:    a[6],
			LpMint:        a[7],
			CoinMint:      a[8],
			PcMint:        a[9],
			CoinVault:     a[10],
			PcVault:       a[11],
			TargetOrders:  a[12],
			MarketProgram: a[15],
			Market:        a[16],
			UserWallet:    a[17],
		}
		out.SetInstNumber(idx)
		return true
	})
	return out, out != nil
}

// MatchRaydiumSwap 匹配 Raydium swap 的 17/18 个账户布局
func MatchRaydiumSwap(tx *common.TxUpdate) (*fragment.RaydiumSwapFragment, bool) {
	var out *fragment.RaydiumSwapFragment
	programInstructions(tx, common.RaydiumAMMProgram, func(idx int, ix common.CompiledInstruction, a []solana.PublicKey) bool {
		if len(ix.Data) == 0 || (ix.Data[0] != raydiumSwapBaseIn && ix.Data[0] != raydiumSwapBaseOut) {
			return false
		}
		if len(a) != raydiumSwapAccounts && len(a) != raydiumSwapAccountsLarge {
			return false
		}
		if !containsAll(a, raydiumSwapExpected) || !a[0].Equals(common.TokenProgram) || !a[2].Equals(common.RaydiumAuthority) {
			return false
		}
		switch len(a) {
		case raydiumSwapAccountsLarge:
			out = &fragment.RaydiumSwapFragment{
				TokenProgram:    a[0],
				Amm:             a[1],
				Authority:       a[2],
				OpenOrders:      a[3],
				TargetOrders:    a[4],
				CoinVault:       a[5],
				PcVault:         a[6],
				MarketProgram:   a[7],
				Market:          a[8],
				UserSource:      a[15],
				UserDestination: a[16],
				UserWallet:      a[17],
			}
		default:
			out = &fragment.RaydiumSwapFragment{
				TokenProgram:    a[0],
				Amm:             a[1],
				Authority:       a[2],
				OpenOrders:      a[3],
				CoinVault:       a[4],
				PcVault:         a[5],
				MarketProgram:   a[6],
				Market:          a[7],
				UserSource:      a[14],
				UserDestination: a[15],
				UserWallet:      a[16],
			}
		}
		out.SetInstNumber(idx)
		return true
	})
	return out, out != nil
}

// MatchPumpCreate 匹配 pump create 的 14 个账户布局
func MatchPumpCreate(tx *common.TxUpdate) (*fragment.PumpCreateFragment, bool) {
	var out *fragment.PumpCreateFragment
	programInstructions(tx, common.PumpProgram, func(idx int, _ common.CompiledInstruction, a []solana.PublicKey) bool {
		if len(a) != pumpCreateAccounts || !containsAll(a, pumpCreateExpected) {
			return false
		}
		if !a[12].Equals(common.PumpEventAuthority) || !a[13].Equals(common.PumpProgram) {
			return false
		}
		out = &fragment.PumpCreateFragment{
			Mint:                   a[0],
			BondingCurve:           a[2],
			AssociatedBondingCurve: a[3],
			Metadata:               a[6],
			UserWallet:             a[7],
			TokenProgram:           a[9],
		}
		out.SetInstNumber(idx)
		return true
	})
	return out, out != nil
}

// MatchPumpSwap 匹配 pump buy/sell 的 12 个账户布局
func MatchPumpSwap(tx *common.TxUpdate) (*fragment.PumpSwapFragment, bool) {
	var out *fragment.PumpSwapFragment
	programInstructions(tx, common.PumpProgram, func(idx int, _ common.CompiledInstruction, a []solana.PublicKey) bool {
		if len(a) != pumpSwapAccounts || !containsAll(a, pumpSwapExpected) {
			return false
		}
		if !a[10].Equals(common.PumpEventAuthority) || !a[11].Equals(common.PumpProgram) {
			return false
		}
		out = &fragment.PumpSwapFragment{
			Mint:                   a[2],
			BondingCurve:           a[3],
			AssociatedBondingCurve: a[4],
			AssociatedUser:         a[5],
			UserWallet:             a[6],
			TokenProgram:           common.TokenProgram,
		}
		out.SetInstNumber(idx)
		return true
	})
	return out, out != nil
}

// RaydiumAmmFromInit 由建池布局构造交易目标
func RaydiumAmmFromInit(f *fragment.RaydiumPoolFragment) model.Amm {
	return model.NewRaydiumAmm(model.RaydiumPool{
		ID:            f.Amm,
		Authority:     f.Authority,
		OpenOrders:    f.OpenOrders,
		TargetOrders:  f.TargetOrders,
		LpMint:        f.LpMint,
		CoinMint:      f.CoinMint,
		PcMint:        f.PcMint,
		CoinVault:     f.CoinVault,
		PcVault:       f.PcVault,
		Market:        f.Market,
		MarketProgram: f.MarketProgram,
		TokenProgram:  f.TokenProgram,
	})
}

// PumpAmmFromCreate 由 create 布局构造交易目标
func PumpAmmFromCreate(f *fragment.PumpCreateFragment) model.Amm {
	return model.NewPumpAmm(model.PumpCurve{
		Mint:                   f.Mint,
		BondingCurve:           f.BondingCurve,
		AssociatedBondingCurve: f.AssociatedBondingCurve,
		TokenProgram:           f.TokenProgram,
	})
}

// ResolveAmm 为只知道代币地址的仓位从交易中还原池子
func ResolveAmm(mint solana.PublicKey, tx *common.TxUpdate) (model.Amm, bool) {
	if f, ok := MatchPumpSwap(tx); ok && f.Mint.Equals(mint) {
		return model.NewPumpAmm(model.PumpCurve{
			Mint:                   f.Mint,
			BondingCurve:           f.BondingCurve,
			AssociatedBondingCurve: f.AssociatedBondingCurve,
			TokenProgram:           f.TokenProgram,
		}), true
	}
	if f, ok := MatchPumpCreate(tx); ok && f.Mint.Equals(mint) {
		return PumpAmmFromCreate(f), true
	}
	if f, ok := MatchRaydiumInit(tx); ok {
		// 只接受与 WSOL 配对且代币一侧正是该代币的池子
		if amm := RaydiumAmmFromInit(f); amm.PcIsSol() != nil && amm.Mint().Equals(mint) {
			return amm, true
		}
	}
	if f, ok := MatchRaydiumSwap(tx); ok {
		if pool, ok := raydiumPoolFromSwap(mint, f, swapDirection(tx)); ok {
			return model.NewRaydiumAmm(pool), true
		}
	}
	return model.Amm{}, false
}

// raydiumPoolFromSwap 由 swap 布局还原池子
//
// 用户一侧必须是该代币的 ATA，另一侧必须是 WSOL 的 ATA，否则无法确认池子交易的就是该代币。
// coin/pc 两侧由 ray_log 中的方向决定。
func raydiumPoolFromSwap(mint solana.PublicKey, f *fragment.RaydiumSwapFragment, direction uint64) (model.RaydiumPool, bool) {
	tokenATA, _, err := solana.FindAssociatedTokenAddress(f.UserWallet, mint)
	if err != nil {
		return model.RaydiumPool{}, false
	}
	wsolATA, _, err := solana.FindAssociatedTokenAddress(f.UserWallet, common.WSOLMint)
	if err != nil {
		return model.RaydiumPool{}, false
	}

	var sourceIsToken bool
	switch {
	case f.UserSource.Equals(tokenATA) && f.UserDestination.Equals(wsolATA):
		sourceIsToken = true
	case f.UserSource.Equals(wsolATA) && f.UserDestination.Equals(tokenATA):
		sourceIsToken = false
	default:
		return model.RaydiumPool{}, false
	}

	var tokenIsCoin bool
	switch direction {
	case decoder.DirectionCoin2PC:
		tokenIsCoin = sourceIsToken
	case decoder.DirectionPC2Coin:
		tokenIsCoin = !sourceIsToken
	default:
		return model.RaydiumPool{}, false
	}

	pool := model.RaydiumPool{
		ID:            f.Amm,
		Authority:     f.Authority,
		OpenOrders:    f.OpenOrders,
		TargetOrders:  f.TargetOrders,
		CoinMint:      common.WSOLMint,
		PcMint:        mint,
		CoinVault:     f.CoinVault,
		PcVault:       f.PcVault,
		Market:        f.Market,
		MarketProgram: f.MarketProgram,
		TokenProgram:  f.TokenProgram,
	}
	if tokenIsCoin {
		pool.CoinMint, pool.PcMint = mint, common.WSOLMint
	}
	return pool, true
}

// swapDirection 交易中第一条 Raydium swap 日志的方向，没有时返回 0
func swapDirection(tx *common.TxUpdate) uint64 {
	for _, line := range tx.Logs {
		if !strings.Contains(line, RaydiumMarker) {
			continue
		}
		ev, err := decoder.Decode(line)
		if err != nil {
			continue
		}
		switch v := ev.(type) {
		case *decoder.RaydiumSwapBaseIn:
			return v.Log.Direction
		case *decoder.RaydiumSwapBaseOut:
			return v.Log.Direction
		}
	}
	return 0
}
