package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/meme-sniper/internal/chain"
)

const sampleConfig = `
solana:
  rpc_url: https://rpc.example
  ws_url: wss://ws.example
  keypair: ${SNIPER_TEST_KEYPAIR:/etc/sniper/id.json}
  confirm:
    timeout: 30s
endpoints:
  - name: main
    kind: rpc
    url: https://rpc.example
  - name: jito
    kind: jito
    url: https://jito.example/api/v1/bundles
    tip_account: 96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5
    tip_lamports: 100000
engine:
  max_open_positions: 5
sniper:
  auto_buy: true
  default_risk:
    take_profit: 0.5
    stop_loss: 0.3
    max_spend_lamports: 100000000
    slippage_bps: 500
  filter:
    min_sol_liquidity: 5
    protocols: [raydium, pump]
`

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sampleConfig), 0o644))

	m := NewManager()
	require.NoError(t, m.Load(p))
	c := m.GetAppConfig()

	assert.Equal(t, "https://rpc.example", c.Solana.RPCURL)
	assert.Equal(t, "/etc/sniper/id.json", c.Solana.Keypair)
	assert.Equal(t, 30*time.Second, c.Solana.Confirm.Timeout)
	assert.Equal(t, 2*time.Second, c.Solana.BlockhashRefresh)
	require.Len(t, c.Endpoints, 2)
	assert.Equal(t, uint64(100000), c.Endpoints[1].TipLamports)
	assert.Equal(t, 5, c.Engine.MaxOpenPositions)
	assert.True(t, c.Sniper.AutoBuy)
	assert.Equal(t, 0.3, c.Sniper.DefaultRisk.StopLoss)
	assert.Equal(t, uint64(500), c.Sniper.DefaultRisk.SlippageBps)

	// websocket 源默认使用 solana.ws_url
	assert.Equal(t, []string{SourceWebsocket}, c.Source.Enabled)
	assert.Equal(t, "wss://ws.example", c.Source.Websocket.URL)
	assert.Equal(t, ":9090", c.Metrics.Addr)
}

func TestValidate(t *testing.T) {
	valid := func() *AppConfig {
		c := &AppConfig{
			Solana: SolanaConfig{RPCURL: "https://rpc", WSURL: "wss://ws", Keypair: "k"},
		}
		c.applyDefaults()
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"missing rpc", func(c *AppConfig) { c.Solana.RPCURL = "" }},
		{"missing keypair", func(c *AppConfig) { c.Solana.Keypair = "" }},
		{"bad endpoint", func(c *AppConfig) { c.Endpoints[0].Kind = "carrier-pigeon" }},
		{"bad protocol", func(c *AppConfig) { c.Sniper.Filter.Protocols = []string{"orca"} }},
		{"unknown source", func(c *AppConfig) { c.Source.Enabled = []string{"grpc"} }},
		{"kafka without topic", func(c *AppConfig) { c.Source.Enabled = []string{SourceKafka} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			c.Endpoints = append(c.Endpoints, endpointConfig("main"))
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	assert.Error(t, NewManager().Load(filepath.Join(t.TempDir(), "nope.yaml")))
}

func endpointConfig(name string) chain.EndpointConfig {
	return chain.EndpointConfig{Name: name, Kind: "rpc", URL: "https://rpc"}
}
