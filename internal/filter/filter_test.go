package filter

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/meme-sniper/internal/decoder"
)

func candidate(p decoder.Protocol, sol float64) *Candidate {
	return &Candidate{
		Protocol:     p,
		SolLiquidity: decimal.NewFromFloat(sol),
		Tvl:          decimal.NewFromFloat(sol * 2),
		Decimals:     6,
	}
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		in   *Candidate
		want bool
	}{
		{"empty config accepts both", Config{}, candidate(decoder.ProtocolPump, 0.1), true},
		{"unknown protocol rejected", Config{}, candidate(decoder.ProtocolUnknown, 10), false},
		{"below min", Config{MinSolLiquidity: 5}, candidate(decoder.ProtocolRaydium, 4.99), false},
		{"at min", Config{MinSolLiquidity: 5}, candidate(decoder.ProtocolRaydium, 5), true},
		{"above max", Config{MaxSolLiquidity: 100}, candidate(decoder.ProtocolRaydium, 101), false},
		{"inside band", Config{MinSolLiquidity: 5, MaxSolLiquidity: 100}, candidate(decoder.ProtocolRaydium, 50), true},
		{"protocol filtered", Config{Protocols: []string{"raydium"}}, candidate(decoder.ProtocolPump, 50), false},
		{"protocol allowed", Config{Protocols: []string{"Pump"}}, candidate(decoder.ProtocolPump, 50), true},
		{"tvl floor", Config{MinTvl: 30}, candidate(decoder.ProtocolPump, 10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := FromConfig(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Evaluate(tt.in))
		})
	}
}

func TestFromConfigErrors(t *testing.T) {
	_, err := FromConfig(Config{Protocols: []string{"orca"}})
	assert.Error(t, err)

	_, err = FromConfig(Config{MinSolLiquidity: 10, MaxSolLiquidity: 1})
	assert.Error(t, err)
}

func TestCompositeOperators(t *testing.T) {
	f := NewConditionFactory()
	big := f.CreateLiquidityCondition("big", "", ">", 10)
	pump := f.CreateProtocolCondition("pump", "", decoder.ProtocolPump)

	or := NewBuilder().Or(big).Or(pump).Build()
	assert.True(t, or.Evaluate(candidate(decoder.ProtocolPump, 1)))
	assert.True(t, or.Evaluate(candidate(decoder.ProtocolRaydium, 11)))
	assert.False(t, or.Evaluate(candidate(decoder.ProtocolRaydium, 1)))

	not := NewBuilder().Not(pump).Build()
	assert.False(t, not.Evaluate(candidate(decoder.ProtocolPump, 1)))
	assert.True(t, not.Evaluate(candidate(decoder.ProtocolRaydium, 1)))

	single := NewBuilder().And(big).Build()
	assert.Equal(t, big, single)

	assert.False(t, (&CompositeCondition{Operator: AND}).Evaluate(candidate(decoder.ProtocolPump, 1)))

	dec := f.CreateDecimalsCondition("dec", "", "==", 6)
	assert.True(t, dec.Evaluate(candidate(decoder.ProtocolPump, 1)))
}
