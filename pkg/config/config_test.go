package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/meme-sniper/pkg/config/source"
	"github.com/ninja0404/meme-sniper/pkg/config/source/file"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadYamlWithEnv(t *testing.T) {
	t.Setenv("SNIPER_RPC", "https://rpc.example")
	p := writeFile(t, "config.yaml", `
solana:
  rpc_url: ${SNIPER_RPC}
  ws_url: ${SNIPER_WS:wss://fallback.example}
engine:
  max_open_positions: 3
  blockhash_refresh: 2s
endpoints:
  - name: a
    kind: rpc
`)

	c, err := NewConfig(WithSource(file.NewSource(file.WithPath(p), source.WithFormat("yaml"))))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "https://rpc.example", c.Get("solana", "rpc_url").String(""))
	assert.Equal(t, "wss://fallback.example", c.Get("solana", "ws_url").String(""))
	assert.Equal(t, 3, c.Get("engine", "max_open_positions").Int(0))
	assert.Equal(t, int64(3), c.Get("engine", "max_open_positions").Int64(0))
	assert.Equal(t, 2*time.Second, c.Get("engine", "blockhash_refresh").Duration(0))
	assert.Equal(t, "fallback", c.Get("missing").String("fallback"))

	var out struct {
		Endpoints []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"endpoints"`
	}
	require.NoError(t, c.Scan(&out))
	require.Len(t, out.Endpoints, 1)
	assert.Equal(t, "rpc", out.Endpoints[0].Kind)
	var engine struct {
		MaxOpen int           `json:"max_open_positions" yaml:"max_open_positions"`
		Refresh time.Duration `json:"blockhash_refresh" yaml:"blockhash_refresh"`
	}
	require.NoError(t, c.Get("engine").Scan(&engine))
	assert.Equal(t, 3, engine.MaxOpen)
	assert.Equal(t, 2*time.Second, engine.Refresh)
}

func TestLaterSourceOverrides(t *testing.T) {
	base := writeFile(t, "base.json", `{"engine":{"auto_buy":false,"max_open_positions":5}}`)
	override := writeFile(t, "override.toml", "[engine]\nauto_buy = true\n")

	c, err := NewConfig(
		WithSource(file.NewSource(file.WithPath(base), source.WithFormat("json"))),
		WithSource(file.NewSource(file.WithPath(override), source.WithFormat(".toml"))),
	)
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.Get("engine", "auto_buy").Bool(false))
	assert.Equal(t, 5, c.Get("engine", "max_open_positions").Int(0))
}

func TestFileWatcherEmitsChanges(t *testing.T) {
	p := writeFile(t, "watch.json", `{"v":1}`)
	src := file.NewSource(file.WithPath(p), source.WithFormat("json"))

	w, err := src.Watch()
	require.NoError(t, err)
	defer w.Stop()

	got := make(chan *source.ChangeSet, 1)
	go func() {
		cs, err := w.Next()
		if err == nil {
			got <- cs
		}
	}()

	require.NoError(t, os.WriteFile(p, []byte(`{"v":2}`), 0o644))

	select {
	case cs := <-got:
		assert.Equal(t, "file", cs.Source)
		assert.NotEmpty(t, cs.Checksum)
	case <-time.After(3 * time.Second):
		t.Fatal("no change observed")
	}

	require.NoError(t, w.Stop())
	_, err = w.Next()
	assert.ErrorIs(t, err, source.ErrWatcherStopped)
}
