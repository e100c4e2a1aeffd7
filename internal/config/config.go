// Package config 应用配置：加载、校验与节点列表热更新
package config

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/chain"
	"github.com/ninja0404/meme-sniper/internal/filter"
	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/internal/publisher"
	"github.com/ninja0404/meme-sniper/internal/source/kafka"
	"github.com/ninja0404/meme-sniper/internal/source/websocket"
	"github.com/ninja0404/meme-sniper/pkg/config"
	"github.com/ninja0404/meme-sniper/pkg/config/source"
	"github.com/ninja0404/meme-sniper/pkg/config/source/file"
	"github.com/ninja0404/meme-sniper/pkg/config/source/mse"
	"github.com/ninja0404/meme-sniper/pkg/logger"
	"github.com/ninja0404/meme-sniper/pkg/utils"
)

const (
	SourceWebsocket = "websocket"
	SourceKafka     = "kafka"
)

// AppConfig 应用配置结构，logger 与 polarx 段由各自的包直接读取
type AppConfig struct {
	Solana    SolanaConfig           `yaml:"solana" json:"solana"`
	Endpoints []chain.EndpointConfig `yaml:"endpoints" json:"endpoints"`
	Engine    EngineConfig           `yaml:"engine" json:"engine"`
	Sniper    SniperConfig           `yaml:"sniper" json:"sniper"`
	Publisher publisher.Config       `yaml:"publisher" json:"publisher"`
	Metrics   MetricsConfig          `yaml:"metrics" json:"metrics"`
	Source    SourceConfig           `yaml:"source" json:"source"`
}

// SolanaConfig 节点与钱包
type SolanaConfig struct {
	RPCURL           string              `yaml:"rpc_url" json:"rpc_url"`
	WSURL            string              `yaml:"ws_url" json:"ws_url"`
	Commitment       string              `yaml:"commitment" json:"commitment"`
	RequestTimeout   time.Duration       `yaml:"request_timeout" json:"request_timeout"`
	BlockhashRefresh time.Duration       `yaml:"blockhash_refresh" json:"blockhash_refresh"`
	Confirm          chain.ConfirmConfig `yaml:"confirm" json:"confirm"`
	DecimalsTTL      time.Duration       `yaml:"decimals_ttl" json:"decimals_ttl"`
	DecimalsCache    chain.CacheConfig   `yaml:"decimals_cache" json:"decimals_cache"`
	// Keypair 私钥文件路径或 base58 私钥，支持 ${ENV} 替换
	Keypair string `yaml:"keypair" json:"keypair"`
}

// EngineConfig 主循环与持久化参数
type EngineConfig struct {
	CommandQueueSize int           `yaml:"command_queue_size" json:"command_queue_size"`
	MaxOpenPositions int           `yaml:"max_open_positions" json:"max_open_positions"`
	PersistTimeout   time.Duration `yaml:"persist_timeout" json:"persist_timeout"`
	IDBlockSize      int64         `yaml:"id_block_size" json:"id_block_size"`
}

// SniperConfig 新池策略
type SniperConfig struct {
	AutoBuy     bool          `yaml:"auto_buy" json:"auto_buy"`
	DefaultRisk model.Risk    `yaml:"default_risk" json:"default_risk"`
	Filter      filter.Config `yaml:"filter" json:"filter"`
}

// MetricsConfig 指标与管理接口
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// SourceConfig 交易数据源
type SourceConfig struct {
	Enabled   []string           `yaml:"enabled" json:"enabled"`
	Websocket websocket.Config   `yaml:"websocket" json:"websocket"`
	Kafka     kafka.SourceConfig `yaml:"kafka" json:"kafka"`
}

func (c *AppConfig) applyDefaults() {
	if c.Solana.Commitment == "" {
		c.Solana.Commitment = "confirmed"
	}
	if c.Solana.BlockhashRefresh <= 0 {
		c.Solana.BlockhashRefresh = 2 * time.Second
	}
	if c.Solana.DecimalsTTL <= 0 {
		c.Solana.DecimalsTTL = 24 * time.Hour
	}
	if c.Source.Websocket.URL == "" {
		c.Source.Websocket.URL = c.Solana.WSURL
	}
	if c.Source.Websocket.Commitment == "" {
		c.Source.Websocket.Commitment = c.Solana.Commitment
	}
	if len(c.Source.Enabled) == 0 {
		c.Source.Enabled = []string{SourceWebsocket}
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

// Validate 校验启动必需的配置
func (c *AppConfig) Validate() error {
	if c.Solana.RPCURL == "" {
		return errors.New("solana.rpc_url is required")
	}
	if c.Solana.Keypair == "" {
		return errors.New("solana.keypair is required")
	}
	if _, err := chain.NewEndpoints(c.Endpoints); err != nil {
		return errors.Wrap(err, "endpoints")
	}
	if _, err := filter.FromConfig(c.Sniper.Filter); err != nil {
		return errors.Wrap(err, "sniper.filter")
	}
	for _, name := range c.Source.Enabled {
		switch name {
		case SourceWebsocket:
			if c.Source.Websocket.URL == "" {
				return errors.New("source.websocket.url or solana.ws_url is required")
			}
		case SourceKafka:
			if c.Source.Kafka.Topic == "" || len(c.Source.Kafka.Brokers) == 0 {
				return errors.New("source.kafka requires topic and brokers")
			}
		default:
			return errors.Errorf("unknown source %q", name)
		}
	}
	return nil
}

// Manager 配置管理器
type Manager struct {
	config *AppConfig
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	return &Manager{}
}

// Load 加载配置，CONFIG_TYPE=MSE 时从 nacos 读取，否则读文件
//
// configPath 为空时使用 CONFIG_FILE_PATH 环境变量。
func (m *Manager) Load(configPath string) error {
	src, err := newSource(configPath)
	if err != nil {
		return err
	}
	if err := config.Load(src); err != nil {
		return errors.Wrap(err, "load config")
	}

	var appConfig AppConfig
	if err := config.Scan(&appConfig); err != nil {
		return errors.Wrap(err, "scan config")
	}
	appConfig.applyDefaults()
	if err := appConfig.Validate(); err != nil {
		return err
	}

	m.config = &appConfig
	return nil
}

func newSource(configPath string) (source.Source, error) {
	if !utils.IsFileConfig() {
		conf, err := mse.ConfigFromEnv("")
		if err != nil {
			return nil, err
		}
		return mse.NewSource(mse.WithMseConfig(conf), source.WithFormat("yaml"))
	}

	if configPath == "" {
		configPath = utils.GetConfigFilePath()
	}
	if configPath == "" {
		return nil, errors.New("config file path is empty")
	}
	if _, err := os.Stat(configPath); err != nil {
		return nil, errors.Wrap(err, "config file")
	}
	return file.NewSource(file.WithPath(configPath), source.WithFormat("yaml")), nil
}

// GetAppConfig 获取应用配置
func (m *Manager) GetAppConfig() *AppConfig {
	return m.config
}

// InitLogger 初始化日志系统
func (m *Manager) InitLogger() error {
	loggerConfig := logger.FromConfig("logger")
	if utils.IsLocalEnv() {
		loggerConfig.OUTPUT = "stdout"
		loggerConfig.DisableSentry = true
	}
	loggerInstance := loggerConfig.Build()
	logger.SetDefault(loggerInstance)
	logger.SetDefaultL1(loggerInstance)
	return nil
}

// WatchEndpoints 监听 endpoints 段，变更且校验通过后回调，ctx 结束时退出
func (m *Manager) WatchEndpoints(ctx context.Context, apply func([]chain.Endpoint)) error {
	w, err := config.Watch("endpoints")
	if err != nil {
		return errors.Wrap(err, "watch endpoints")
	}

	go func() {
		<-ctx.Done()
		_ = w.Stop()
	}()

	go func() {
		for {
			v, err := w.Next()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("⚠️ 节点配置监听结束", logger.FieldErr(err))
				}
				return
			}

			var cfgs []chain.EndpointConfig
			if err := v.Scan(&cfgs); err != nil {
				logger.Error("❌ 解析节点配置失败", logger.FieldErr(err))
				continue
			}
			endpoints, err := chain.NewEndpoints(cfgs)
			if err != nil {
				logger.Error("❌ 节点配置无效，保留旧配置", logger.FieldErr(err))
				continue
			}
			apply(endpoints)
			logger.Info("🔄 提交节点已热更新", logger.Int("endpoints", len(endpoints)))
		}
	}()
	return nil
}
