package decoder

import (
	"bytes"
	"encoding/base64"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeLog(t *testing.T, prefix []byte, v interface{}) string {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(prefix)
	require.NoError(t, bin.NewBorshEncoder(buf).Encode(v))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func rayLogLine(t *testing.T, v interface{}) string {
	return RayLogPrefix + encodeLog(t, nil, v)
}

func TestDecodeInitResolvesDecimals(t *testing.T) {
	line := rayLogLine(t, &InitLog{
		LogType:      RayLogInit,
		Time:         1700000000,
		PcDecimals:   9,
		CoinDecimals: 6,
		PcLotSize:    1,
		CoinLotSize:  1,
		PcAmount:     150000000,
		CoinAmount:   9000000000000000000,
		Market:       solana.NewWallet().PublicKey(),
	})

	ev, err := Decode(line)
	require.NoError(t, err)

	init, ok := ev.(*RaydiumInit)
	require.True(t, ok)
	assert.Equal(t, uint8(6), init.Decimals())
	assert.Equal(t, init.Pre(), init.Next())

	sol, token := SolSide(init.Next(), nil)
	m := Quote(sol, token, init.Decimals())
	assert.Greater(t, m.Price, 0.0)
	assert.Greater(t, m.Tvl, 0.0)
}

func TestDecodeSwapBaseInPC2Coin(t *testing.T) {
	l := &SwapBaseInLog{
		LogType:   RayLogSwapBaseIn,
		AmountIn:  670000000000,
		Direction: DirectionPC2Coin,
		PoolPc:    150000000,
		PoolCoin:  9000000000000000000,
		OutAmount: 8997980477953550992,
	}
	line := rayLogLine(t, l)

	ev, err := Decode(line)
	require.NoError(t, err)
	require.Equal(t, KindSwapBaseIn, ev.Kind())

	assert.Equal(t, Reserves{PC: l.PoolPc, Coin: l.PoolCoin}, ev.Pre())
	assert.Equal(t, l.PoolPc+l.AmountIn, ev.Next().PC)
	assert.Equal(t, l.PoolCoin-l.OutAmount, ev.Next().Coin)
	assert.Equal(t, l.OutAmount, ev.AmountOut())
	assert.NotEqual(t, ev.Pre().Product(), ev.Next().Product())

	again, err := Decode(line)
	require.NoError(t, err)
	assert.Equal(t, ev, again)
}

func TestDecodeSwapBaseOutUsesDeductIn(t *testing.T) {
	l := &SwapBaseOutLog{
		LogType:   RayLogSwapBaseOut,
		MaxIn:     1_000_000,
		AmountOut: 5_000,
		Direction: DirectionCoin2PC,
		PoolCoin:  2_000_000,
		PoolPc:    90_000,
		DeductIn:  990_000,
	}
	ev, err := Decode(rayLogLine(t, l))
	require.NoError(t, err)

	assert.Equal(t, l.PoolCoin+l.DeductIn, ev.Next().Coin)
	assert.Equal(t, l.PoolPc-l.AmountOut, ev.Next().PC)
	assert.Equal(t, l.AmountOut, ev.AmountOut())
}

func TestDecodeWithdrawAndDeposit(t *testing.T) {
	w := &WithdrawLog{
		LogType:  RayLogWithdraw,
		PoolCoin: 1_000,
		PoolPc:   500,
		OutCoin:  100,
		OutPc:    50,
	}
	ev, err := Decode(rayLogLine(t, w))
	require.NoError(t, err)
	assert.Equal(t, KindWithdraw, ev.Kind())
	assert.Equal(t, Reserves{PC: 450, Coin: 900}, ev.Next())

	d := &DepositLog{
		LogType:    RayLogDeposit,
		PoolCoin:   1_000,
		PoolPc:     500,
		DeductCoin: 10,
		DeductPc:   5,
		MintLp:     7,
	}
	ev, err = Decode(rayLogLine(t, d))
	require.NoError(t, err)
	assert.Equal(t, KindDeposit, ev.Kind())
	assert.Equal(t, Reserves{PC: 505, Coin: 1010}, ev.Next())
}

func TestDecodePumpTrade(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	l := &TradeEventLog{
		Mint:                 mint,
		SolAmount:            1_000_000_000,
		TokenAmount:          30_000_000_000,
		IsBuy:                true,
		User:                 solana.NewWallet().PublicKey(),
		Timestamp:            1700000000,
		VirtualSolReserves:   30_000_000_000,
		VirtualTokenReserves: 1_073_000_000_000_000,
	}
	line := ProgramDataPrefix + encodeLog(t, TradeEventDiscriminator[:], l)
	assert.Contains(t, line, "Program data: vdt/007mYe")

	ev, err := Decode(line)
	require.NoError(t, err)

	trade, ok := ev.(*PumpTrade)
	require.True(t, ok)
	assert.Equal(t, ProtocolPump, trade.Protocol())
	assert.Equal(t, mint, trade.Mint())
	assert.Equal(t, l.TokenAmount, trade.AmountOut())
	assert.Equal(t, l.VirtualSolReserves+l.SolAmount, trade.Next().PC)
	assert.Equal(t, l.VirtualTokenReserves-l.TokenAmount, trade.Next().Coin)
}

func TestDecodeErrors(t *testing.T) {
	full := encodeLog(t, nil, &SwapBaseInLog{LogType: RayLogSwapBaseIn, Direction: DirectionPC2Coin})
	raw, err := base64.StdEncoding.DecodeString(full)
	require.NoError(t, err)
	truncated := RayLogPrefix + base64.StdEncoding.EncodeToString(raw[:20])

	tests := []struct {
		name string
		line string
	}{
		{"no prefix", "Program log: Instruction: Transfer"},
		{"bad base64", RayLogPrefix + "!!!"},
		{"unknown ray discriminator", RayLogPrefix + base64.StdEncoding.EncodeToString([]byte{9, 1, 2})},
		{"truncated swap", truncated},
		{"foreign anchor event", ProgramDataPrefix + base64.StdEncoding.EncodeToString(make([]byte, 40))},
		{"bad direction", rayLogLine(t, &SwapBaseInLog{LogType: RayLogSwapBaseIn, Direction: 7})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.line)
			require.Error(t, err)
			assert.True(t, IsDecodeError(err))
		})
	}
}

func TestSolSide(t *testing.T) {
	r := Reserves{PC: 10, Coin: 1_000}

	sol, token := SolSide(r, nil)
	assert.Equal(t, uint64(10), sol)
	assert.Equal(t, uint64(1_000), token)

	pcIsSol := false
	sol, token = SolSide(r, &pcIsSol)
	assert.Equal(t, uint64(1_000), sol)
	assert.Equal(t, uint64(10), token)
}

func TestQuoteZeroToken(t *testing.T) {
	m := Quote(2_000_000_000, 0, 6)
	assert.Equal(t, 0.0, m.Price)
	assert.Equal(t, 2.0, m.Tvl)
}
