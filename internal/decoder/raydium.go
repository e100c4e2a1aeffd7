package decoder

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// ray_log 类型标识
const (
	RayLogInit        uint8 = 0
	RayLogDeposit     uint8 = 1
	RayLogWithdraw    uint8 = 2
	RayLogSwapBaseIn  uint8 = 3
	RayLogSwapBaseOut uint8 = 4
)

// 交易方向
const (
	DirectionCoin2PC uint64 = 1
	DirectionPC2Coin uint64 = 2
)

type InitLog struct {
	LogType      uint8
	Time         uint64
	PcDecimals   uint8
	CoinDecimals uint8
	PcLotSize    uint64
	CoinLotSize  uint64
	PcAmount     uint64
	CoinAmount   uint64
	Market       solana.PublicKey
}

type DepositLog struct {
	LogType    uint8
	MaxCoin    uint64
	MaxPc      uint64
	Base       uint64
	PoolCoin   uint64
	PoolPc     uint64
	PoolLp     uint64
	CalcPnlX   bin.Uint128
	CalcPnlY   bin.Uint128
	DeductCoin uint64
	DeductPc   uint64
	MintLp     uint64
}

type WithdrawLog struct {
	LogType    uint8
	WithdrawLp uint64
	UserLp     uint64
	PoolCoin   uint64
	PoolPc     uint64
	PoolLp     uint64
	CalcPnlX   bin.Uint128
	CalcPnlY   bin.Uint128
	OutCoin    uint64
	OutPc      uint64
}

type SwapBaseInLog struct {
	LogType    uint8
	AmountIn   uint64
	MinimumOut uint64
	Direction  uint64
	UserSource uint64
	PoolCoin   uint64
	PoolPc     uint64
	OutAmount  uint64
}

type SwapBaseOutLog struct {
	LogType    uint8
	MaxIn      uint64
	AmountOut  uint64
	Direction  uint64
	UserSource uint64
	PoolCoin   uint64
	PoolPc     uint64
	DeductIn   uint64
}

// swapReserves 按方向推导交易后储备
func swapReserves(direction, pc, coin, in, out uint64) (Reserves, error) {
	pre := Reserves{PC: pc, Coin: coin}
	switch direction {
	case DirectionPC2Coin:
		return Reserves{PC: pc + in, Coin: subSat(coin, out)}, nil
	case DirectionCoin2PC:
		return Reserves{PC: subSat(pc, out), Coin: coin + in}, nil
	default:
		return pre, errors.Wrapf(ErrDecode, "unknown swap direction %d", direction)
	}
}

func decodeRayLog(data []byte) (PoolEvent, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrDecode, "empty ray_log payload")
	}

	switch data[0] {
	case RayLogInit:
		var l InitLog
		if err := bin.NewBorshDecoder(data).Decode(&l); err != nil {
			return nil, errors.Wrapf(ErrDecode, "init log: %v", err)
		}
		r := Reserves{PC: l.PcAmount, Coin: l.CoinAmount}
		return &RaydiumInit{reserves: reserves{pre: r, next: r}, Log: l}, nil

	case RayLogDeposit:
		var l DepositLog
		if err := bin.NewBorshDecoder(data).Decode(&l); err != nil {
			return nil, errors.Wrapf(ErrDecode, "deposit log: %v", err)
		}
		pre := Reserves{PC: l.PoolPc, Coin: l.PoolCoin}
		next := Reserves{PC: l.PoolPc + l.DeductPc, Coin: l.PoolCoin + l.DeductCoin}
		return &RaydiumDeposit{reserves: reserves{pre: pre, next: next}, Log: l}, nil

	case RayLogWithdraw:
		var l WithdrawLog
		if err := bin.NewBorshDecoder(data).Decode(&l); err != nil {
			return nil, errors.Wrapf(ErrDecode, "withdraw log: %v", err)
		}
		pre := Reserves{PC: l.PoolPc, Coin: l.PoolCoin}
		next := Reserves{PC: subSat(l.PoolPc, l.OutPc), Coin: subSat(l.PoolCoin, l.OutCoin)}
		return &RaydiumWithdraw{reserves: reserves{pre: pre, next: next}, Log: l}, nil

	case RayLogSwapBaseIn:
		var l SwapBaseInLog
		if err := bin.NewBorshDecoder(data).Decode(&l); err != nil {
			return nil, errors.Wrapf(ErrDecode, "swap base in log: %v", err)
		}
		next, err := swapReserves(l.Direction, l.PoolPc, l.PoolCoin, l.AmountIn, l.OutAmount)
		if err != nil {
			return nil, err
		}
		pre := Reserves{PC: l.PoolPc, Coin: l.PoolCoin}
		return &RaydiumSwapBaseIn{reserves: reserves{pre: pre, next: next}, Log: l}, nil

	case RayLogSwapBaseOut:
		var l SwapBaseOutLog
		if err := bin.NewBorshDecoder(data).Decode(&l); err != nil {
			return nil, errors.Wrapf(ErrDecode, "swap base out log: %v", err)
		}
		next, err := swapReserves(l.Direction, l.PoolPc, l.PoolCoin, l.DeductIn, l.AmountOut)
		if err != nil {
			return nil, err
		}
		pre := Reserves{PC: l.PoolPc, Coin: l.PoolCoin}
		return &RaydiumSwapBaseOut{reserves: reserves{pre: pre, next: next}, Log: l}, nil

	default:
		return nil, errors.Wrapf(ErrUnknownDiscriminator, "ray_log type %d", data[0])
	}
}
