// Package triagetest 构造符合各协议账户布局的测试交易
package triagetest

import (
	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/meme-sniper/internal/common"
)

func RandKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

// BuildTx 以单条指令构造交易，账户按出现顺序写入 AccountKeys
func BuildTx(program solana.PublicKey, accounts []solana.PublicKey, data []byte, logs ...string) *common.TxUpdate {
	keys := make([]solana.PublicKey, 0, len(accounts)+1)
	index := map[solana.PublicKey]uint16{}
	add := func(k solana.PublicKey) uint16 {
		if i, ok := index[k]; ok {
			return i
		}
		index[k] = uint16(len(keys))
		keys = append(keys, k)
		return index[k]
	}
	ix := common.CompiledInstruction{Data: data}
	for _, a := range accounts {
		ix.Accounts = append(ix.Accounts, add(a))
	}
	ix.ProgramIDIndex = add(program)
	return &common.TxUpdate{
		Signature:    solana.Signature{byte(len(keys)), 1},
		AccountKeys:  keys,
		Instructions: []common.CompiledInstruction{ix},
		Logs:         logs,
	}
}

// RaydiumInitAccounts initialize2 的 21 个账户
func RaydiumInitAccounts(coinMint, pcMint solana.PublicKey) []solana.PublicKey {
	return []solana.PublicKey{
		common.TokenProgram, common.AssociatedTokenProgram, common.SystemProgram, common.RentSysvar,
		RandKey(), common.RaydiumAuthority, RandKey(), RandKey(),
		coinMint, pcMint, RandKey(), RandKey(), RandKey(),
		common.RaydiumAmmConfig, common.RaydiumCreateFeeDst, common.OpenBookProgram, RandKey(),
		RandKey(), RandKey(), RandKey(), RandKey(),
	}
}

// RaydiumSwapAccounts 17 个账户的 swap 布局
func RaydiumSwapAccounts() []solana.PublicKey {
	return []solana.PublicKey{
		common.TokenProgram, RandKey(), common.RaydiumAuthority, RandKey(), RandKey(), RandKey(),
		common.OpenBookProgram, RandKey(), RandKey(), RandKey(), RandKey(), RandKey(), RandKey(), RandKey(),
		RandKey(), RandKey(), RandKey(),
	}
}

// RaydiumUserSwapAccounts 17 个账户的 swap 布局，用户两侧是代币与 WSOL 的 ATA
//
// sell 为 true 时代币账户在 source 一侧。
func RaydiumUserSwapAccounts(mint solana.PublicKey, sell bool) []solana.PublicKey {
	a := RaydiumSwapAccounts()
	tokenATA := mustATA(a[16], mint)
	wsolATA := mustATA(a[16], common.WSOLMint)
	a[14], a[15] = wsolATA, tokenATA
	if sell {
		a[14], a[15] = tokenATA, wsolATA
	}
	return a
}

func mustATA(owner, mint solana.PublicKey) solana.PublicKey {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		panic(err)
	}
	return ata
}

func PumpCreateAccounts(mint solana.PublicKey) []solana.PublicKey {
	return []solana.PublicKey{
		mint, common.PumpMintAuthority, RandKey(), RandKey(), common.PumpGlobal, common.MetaplexProgram,
		RandKey(), RandKey(), common.SystemProgram, common.TokenProgram, common.AssociatedTokenProgram,
		common.RentSysvar, common.PumpEventAuthority, common.PumpProgram,
	}
}

func PumpSwapAccounts(mint solana.PublicKey) []solana.PublicKey {
	return []solana.PublicKey{
		common.PumpGlobal, common.PumpFeeRecipient, mint, RandKey(), RandKey(), RandKey(), RandKey(),
		common.SystemProgram, common.TokenProgram, common.RentSysvar, common.PumpEventAuthority, common.PumpProgram,
	}
}
