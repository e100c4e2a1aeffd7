package mse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SNIPER_MSE_SERVER_ADDR", "nacos.local")
	t.Setenv("SNIPER_MSE_NAMESPACE", "ns")
	t.Setenv("SNIPER_MSE_ACCESSKEY", "ak")
	t.Setenv("SNIPER_MSE_SECRETKEY", "sk")
	t.Setenv("SNIPER_MSE_GROUP", "sniper")
	t.Setenv("SNIPER_MSE_DATAID", "meme-sniper.yaml")
	t.Setenv("SNIPER_MSE_LOG_DIR", "/tmp/nacos")

	conf, err := ConfigFromEnv("SNIPER_")
	require.NoError(t, err)
	assert.Equal(t, "nacos.local", conf.ServerAddr)
	assert.Equal(t, "meme-sniper.yaml", conf.DataID)
	assert.Equal(t, "/tmp/nacos", conf.LogDir)
	assert.Empty(t, conf.CacheDir)
}

func TestConfigFromEnvMissing(t *testing.T) {
	t.Setenv("X_MSE_SERVER_ADDR", "nacos.local")

	_, err := ConfigFromEnv("X_")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "X_MSE_DATAID")
	assert.NotContains(t, err.Error(), "X_MSE_SERVER_ADDR")
}

func TestNewSourceRequiresConfig(t *testing.T) {
	_, err := NewSource()
	assert.Error(t, err)
}
