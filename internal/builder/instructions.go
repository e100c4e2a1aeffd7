package builder

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/model"
)

// 指令判别码
const (
	computeBudgetSetLimit byte = 2
	computeBudgetSetPrice byte = 3

	ataCreateIdempotent byte = 1

	tokenCloseAccount byte = 9
	tokenSyncNative   byte = 17

	raydiumSwapBaseIn byte = 9
)

var (
	pumpBuyDiscriminator  = [8]byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	pumpSellDiscriminator = [8]byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

func encode(prefix []byte, v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(prefix)
	if v != nil {
		if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
			return nil, errors.Wrap(err, "encode instruction data")
		}
	}
	return buf.Bytes(), nil
}

func mustEncode(prefix []byte, v interface{}) []byte {
	data, err := encode(prefix, v)
	if err != nil {
		// 固定宽度整数编码不会失败
		panic(err)
	}
	return data
}

// ComputeUnitLimit SetComputeUnitLimit
func ComputeUnitLimit(units uint32) solana.Instruction {
	return solana.NewInstruction(common.ComputeBudgetProgram, solana.AccountMetaSlice{},
		mustEncode([]byte{computeBudgetSetLimit}, units))
}

// ComputeUnitPrice SetComputeUnitPrice，单位 micro-lamports
func ComputeUnitPrice(microLamports uint64) solana.Instruction {
	return solana.NewInstruction(common.ComputeBudgetProgram, solana.AccountMetaSlice{},
		mustEncode([]byte{computeBudgetSetPrice}, microLamports))
}

// CreateATAIdempotent 账户已存在时不报错的 ATA 创建
func CreateATAIdempotent(payer, owner, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, solana.PublicKey{}, errors.Wrapf(err, "derive ata for %s", mint)
	}
	ix := solana.NewInstruction(common.AssociatedTokenProgram, solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(ata, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(common.SystemProgram, false, false),
		solana.NewAccountMeta(common.TokenProgram, false, false),
	}, []byte{ataCreateIdempotent})
	return ix, ata, nil
}

func SyncNative(account solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(common.TokenProgram, solana.AccountMetaSlice{
		solana.NewAccountMeta(account, true, false),
	}, []byte{tokenSyncNative})
}

func CloseAccount(account, dest, owner solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(common.TokenProgram, solana.AccountMetaSlice{
		solana.NewAccountMeta(account, true, false),
		solana.NewAccountMeta(dest, true, false),
		solana.NewAccountMeta(owner, false, true),
	}, []byte{tokenCloseAccount})
}

// Transfer 系统转账，用于 WSOL 充值与小费
func Transfer(lamports uint64, from, to solana.PublicKey) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}

type raydiumSwapArgs struct {
	AmountIn     uint64
	MinAmountOut uint64
}

// RaydiumSwapBaseIn Raydium AMM v4 swap_base_in
//
// OpenBook 市场相关账户使用池子地址占位，池子未设置 target orders 时使用 17 个账户的版本。
func RaydiumSwapBaseIn(pool *model.RaydiumPool, source, dest, owner solana.PublicKey, amountIn, minOut uint64) solana.Instruction {
	marketProgram := pool.MarketProgram
	if marketProgram == (solana.PublicKey{}) {
		marketProgram = common.OpenBookProgram
	}
	market := pool.Market
	if market == (solana.PublicKey{}) {
		market = pool.ID
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(common.TokenProgram, false, false),
		solana.NewAccountMeta(pool.ID, true, false),
		solana.NewAccountMeta(common.RaydiumAuthority, false, false),
		solana.NewAccountMeta(pool.OpenOrders, true, false),
	}
	if pool.TargetOrders != (solana.PublicKey{}) {
		accounts = append(accounts, solana.NewAccountMeta(pool.TargetOrders, true, false))
	}
	accounts = append(accounts,
		solana.NewAccountMeta(pool.CoinVault, true, false),
		solana.NewAccountMeta(pool.PcVault, true, false),
		solana.NewAccountMeta(marketProgram, false, false),
		solana.NewAccountMeta(market, true, false),
		solana.NewAccountMeta(pool.ID, true, false),  // bids
		solana.NewAccountMeta(pool.ID, true, false),  // asks
		solana.NewAccountMeta(pool.ID, true, false),  // event queue
		solana.NewAccountMeta(pool.ID, true, false),  // coin vault
		solana.NewAccountMeta(pool.ID, true, false),  // pc vault
		solana.NewAccountMeta(pool.ID, false, false), // vault signer
		solana.NewAccountMeta(source, true, false),
		solana.NewAccountMeta(dest, true, false),
		solana.NewAccountMeta(owner, false, true),
	)
	data := mustEncode([]byte{raydiumSwapBaseIn}, raydiumSwapArgs{AmountIn: amountIn, MinAmountOut: minOut})
	return solana.NewInstruction(common.RaydiumAMMProgram, accounts, data)
}

type pumpBuyArgs struct {
	Amount     uint64
	MaxSolCost uint64
}

type pumpSellArgs struct {
	Amount       uint64
	MinSolOutput uint64
}

// PumpBuy 以不超过 maxSolCost 的 SOL 买入 amount 个代币
func PumpBuy(curve *model.PumpCurve, userATA, user solana.PublicKey, amount, maxSolCost uint64) solana.Instruction {
	return solana.NewInstruction(common.PumpProgram, solana.AccountMetaSlice{
		solana.NewAccountMeta(common.PumpGlobal, false, false),
		solana.NewAccountMeta(common.PumpFeeRecipient, true, false),
		solana.NewAccountMeta(curve.Mint, false, false),
		solana.NewAccountMeta(curve.BondingCurve, true, false),
		solana.NewAccountMeta(curve.AssociatedBondingCurve, true, false),
		solana.NewAccountMeta(userATA, true, false),
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(common.SystemProgram, false, false),
		solana.NewAccountMeta(common.TokenProgram, false, false),
		solana.NewAccountMeta(common.RentSysvar, false, false),
		solana.NewAccountMeta(common.PumpEventAuthority, false, false),
		solana.NewAccountMeta(common.PumpProgram, false, false),
	}, mustEncode(pumpBuyDiscriminator[:], pumpBuyArgs{Amount: amount, MaxSolCost: maxSolCost}))
}

// PumpSell 卖出 amount 个代币，至少得到 minSolOutput
func PumpSell(curve *model.PumpCurve, userATA, user solana.PublicKey, amount, minSolOutput uint64) solana.Instruction {
	return solana.NewInstruction(common.PumpProgram, solana.AccountMetaSlice{
		solana.NewAccountMeta(common.PumpGlobal, false, false),
		solana.NewAccountMeta(common.PumpFeeRecipient, true, false),
		solana.NewAccountMeta(curve.Mint, false, false),
		solana.NewAccountMeta(curve.BondingCurve, true, false),
		solana.NewAccountMeta(curve.AssociatedBondingCurve, true, false),
		solana.NewAccountMeta(userATA, true, false),
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(common.SystemProgram, false, false),
		solana.NewAccountMeta(common.AssociatedTokenProgram, false, false),
		solana.NewAccountMeta(common.TokenProgram, false, false),
		solana.NewAccountMeta(common.PumpEventAuthority, false, false),
		solana.NewAccountMeta(common.PumpProgram, false, false),
	}, mustEncode(pumpSellDiscriminator[:], pumpSellArgs{Amount: amount, MinSolOutput: minSolOutput}))
}
