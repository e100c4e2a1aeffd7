package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvPrefix(t *testing.T) {
	t.Cleanup(func() { SetEnvPrefix("") })

	t.Setenv("SNIPER_ENV", ENV_LOCAL)
	t.Setenv("SNIPER_CONFIG_TYPE", "mse")
	t.Setenv("SNIPER_CONFIG_FILE_PATH", "/etc/sniper/config.yaml")

	assert.True(t, IsFileConfig())
	assert.False(t, IsLocalEnv())

	SetEnvPrefix("SNIPER_")
	assert.True(t, IsLocalEnv())
	assert.False(t, IsFileConfig())
	assert.Equal(t, "/etc/sniper/config.yaml", GetConfigFilePath())
}
