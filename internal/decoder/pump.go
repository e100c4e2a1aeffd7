package decoder

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// TradeEventDiscriminator anchor 事件 TradeEvent 的前 8 字节
var TradeEventDiscriminator = [8]byte{189, 219, 127, 211, 78, 230, 97, 238}

// TradeEventLog pump.fun TradeEvent，只解析固定前缀，新版本追加的字段忽略
type TradeEventLog struct {
	Mint                 solana.PublicKey
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                bool
	User                 solana.PublicKey
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

func decodePumpLog(data []byte) (PoolEvent, error) {
	if len(data) < len(TradeEventDiscriminator) {
		return nil, errors.Wrap(ErrDecode, "pump event shorter than discriminator")
	}
	if !bytes.Equal(data[:8], TradeEventDiscriminator[:]) {
		return nil, errors.Wrap(ErrUnknownDiscriminator, "not a pump trade event")
	}

	var l TradeEventLog
	if err := bin.NewBorshDecoder(data[8:]).Decode(&l); err != nil {
		return nil, errors.Wrapf(ErrDecode, "pump trade event: %v", err)
	}

	pre := Reserves{PC: l.VirtualSolReserves, Coin: l.VirtualTokenReserves}
	var next Reserves
	if l.IsBuy {
		next = Reserves{PC: pre.PC + l.SolAmount, Coin: subSat(pre.Coin, l.TokenAmount)}
	} else {
		next = Reserves{PC: subSat(pre.PC, l.SolAmount), Coin: pre.Coin + l.TokenAmount}
	}
	return &PumpTrade{reserves: reserves{pre: pre, next: next}, Log: l}, nil
}
