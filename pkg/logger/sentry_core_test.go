package logger

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestFieldToSentryMeta(t *testing.T) {
	var nilKey *solana.PublicKey
	meta := fieldToSentryMeta([]zapcore.Field{
		Int64("trade_id", 42),
		String("mint", "So11111111111111111111111111111111111111112"),
		Bool("auto_buy", true),
		Duration("latency", 250*time.Millisecond),
		Float64("pct", 0.5),
		FieldErr(errors.New("blockhash not found")),
		zap.Stringer("payer", solana.PublicKey{}),
		zap.Stringer("nil_key", nilKey),
	})

	assert.Equal(t, int64(42), meta["trade_id"])
	assert.Equal(t, true, meta["auto_buy"])
	assert.Equal(t, 250*time.Millisecond, meta["latency"])
	assert.Equal(t, 0.5, meta["pct"])
	assert.Equal(t, "blockhash not found", meta["error"])
	assert.Equal(t, solana.PublicKey{}.String(), meta["payer"])
	assert.NotContains(t, meta, "nil_key")

	tags := sentryTags(meta)
	assert.Equal(t, map[string]string{
		"trade_id": "42",
		"mint":     "So11111111111111111111111111111111111111112",
	}, tags)
}

func TestSentryCoreLevel(t *testing.T) {
	core := NewSentryCore(zapcore.ErrorLevel)
	assert.False(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
	assert.Equal(t, sentry.LevelWarning, sentryLevel(zapcore.WarnLevel))
	assert.Equal(t, sentry.LevelFatal, sentryLevel(zapcore.DPanicLevel))
}
