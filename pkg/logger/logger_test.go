package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfigFilename(t *testing.T) {
	c := defaultConfig()
	c.Name = "meme-sniper"
	assert.Equal(t, "logs/meme-sniper.log", c.Filename())

	c.Dir = "/var/log/sniper"
	c.Name = "sniper.json"
	assert.Equal(t, "/var/log/sniper/sniper.json", c.Filename())
}

func TestBuildDiscard(t *testing.T) {
	c := defaultConfig()
	c.Discard = true
	c.DisableSentry = true
	c.Level = "warn"

	l := c.Build()
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))
}

func TestBuildRejectsBadLevel(t *testing.T) {
	c := defaultConfig()
	c.Discard = true
	c.DisableSentry = true
	c.Level = "loud"
	assert.Panics(t, func() { c.Build() })
}

func TestLogFromContext(t *testing.T) {
	assert.Same(t, Default(), LogFromContext(context.Background()))

	l := zap.NewNop().Named("req")
	ctx := ContextWithLog(context.Background(), l)
	assert.Same(t, l, LogFromContext(ctx))
	assert.Equal(t, context.Background(), ContextWithLog(context.Background(), nil))
}
