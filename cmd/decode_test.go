package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/meme-sniper/internal/decoder"
	"github.com/ninja0404/meme-sniper/internal/decoder/decodertest"
)

func TestDecodeCommand(t *testing.T) {
	line := decodertest.RaydiumSwapBaseIn(t, decoder.SwapBaseInLog{
		AmountIn:  1_000,
		Direction: 1,
		PoolCoin:  50_000,
		PoolPc:    10_000,
		OutAmount: 4_000,
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"decode", line})
	require.NoError(t, rootCmd.Execute())

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "raydium", got["protocol"])
	assert.Equal(t, float64(4_000), got["amount_out"])
}

func TestDescribeRejectsUnknownLine(t *testing.T) {
	_, err := describe("Program log: Instruction: Transfer")
	assert.ErrorIs(t, err, decoder.ErrUnknownPrefix)
}
