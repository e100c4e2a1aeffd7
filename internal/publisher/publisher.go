// Package publisher 把仓位成交与终态事件推送给下游
package publisher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/pkg/logger"
	"github.com/ninja0404/meme-sniper/pkg/mq/kafka"
	"github.com/ninja0404/meme-sniper/pkg/utils"
)

// Config 发布器配置
type Config struct {
	Lark      LarkConfig    `yaml:"lark" json:"lark"`
	Kafka     KafkaConfig   `yaml:"kafka" json:"kafka"`
	QueueSize int           `yaml:"queue_size" json:"queue_size"`
	Cooldown  time.Duration `yaml:"cooldown" json:"cooldown"`
}

// LarkConfig 飞书机器人配置
type LarkConfig struct {
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

// KafkaConfig 仓位事件主题配置
type KafkaConfig struct {
	Enabled  bool                      `yaml:"enabled" json:"enabled"`
	Topic    string                    `yaml:"topic" json:"topic"`
	Brokers  []string                  `yaml:"brokers" json:"brokers"`
	Producer kafka.KafkaProducerConfig `yaml:"producer" json:"producer"`
}

// Publisher 仓位事件发布器接口
type Publisher interface {
	// Publish 发布事件
	Publish(event *common.TradeEvent) error

	// GetType 获取发布器类型
	GetType() string

	// Close 关闭发布器
	Close() error
}

// Manager 仓位事件发布管理器
//
// Notify 只入队，发布在独立协程中进行，任何发布器失败都不影响其他发布器。
type Manager struct {
	publishers []Publisher
	config     Config
	events     chan *common.TradeEvent
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	// 事件去重，key: tradeID-state
	sentEvents map[string]time.Time
	cooldown   time.Duration
	mutex      sync.RWMutex

	started atomic.Bool
	dropped atomic.Int64
}

// NewManager 创建发布管理器
func NewManager(config Config) *Manager {
	if config.QueueSize <= 0 {
		config.QueueSize = 1024
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		publishers: make([]Publisher, 0),
		config:     config,
		events:     make(chan *common.TradeEvent, config.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		sentEvents: make(map[string]time.Time),
		cooldown:   config.Cooldown,
	}
}

// RegisterDefaultPublishers 按配置注册日志、飞书和Kafka发布器，本地环境额外输出完整事件
func (m *Manager) RegisterDefaultPublishers() error {
	if utils.IsLocalEnv() {
		m.AddPublisher(&ConsolePublisher{})
	} else {
		m.AddPublisher(&LogPublisher{})
	}

	if m.config.Lark.WebhookURL != "" {
		m.AddPublisher(NewLarkPublisher(m.config.Lark.WebhookURL))
	} else {
		logger.Warn("⚠️ 飞书发布器缺少webhook URL配置")
	}

	if m.config.Kafka.Enabled {
		p, err := NewKafkaPublisher(m.config.Kafka)
		if err != nil {
			return err
		}
		m.AddPublisher(p)
	}
	return nil
}

// AddPublisher 添加发布器
func (m *Manager) AddPublisher(publisher Publisher) {
	m.publishers = append(m.publishers, publisher)
}

// Notify 实现 engine.Notifier，队列满时丢弃并告警
func (m *Manager) Notify(t *model.Trade) {
	ev := NewTradeEvent(t)
	select {
	case <-m.ctx.Done():
		return
	default:
	}
	select {
	case m.events <- ev:
	default:
		m.dropped.Add(1)
		logger.Warn("⚠️ 发布队列已满，丢弃仓位事件",
			logger.Int64("trade_id", ev.TradeID),
			logger.String("state", ev.State))
	}
}

// shouldSend 检查是否应该发送（去重检查）
func (m *Manager) shouldSend(ev *common.TradeEvent) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if last, exists := m.sentEvents[ev.GetKey()]; exists {
		if time.Since(last) < m.cooldown {
			return false
		}
	}
	return true
}

func (m *Manager) recordSent(ev *common.TradeEvent) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sentEvents[ev.GetKey()] = time.Now()
}

// cleanupExpired 清理过期的去重记录
func (m *Manager) cleanupExpired() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	for key, sent := range m.sentEvents {
		if now.Sub(sent) > m.cooldown {
			delete(m.sentEvents, key)
		}
	}
	return len(m.sentEvents)
}

// publish 发布到所有发布器
func (m *Manager) publish(ev *common.TradeEvent) {
	if !m.shouldSend(ev) {
		logger.Debug("⏭️ 仓位事件已发送过，跳过",
			logger.Int64("trade_id", ev.TradeID),
			logger.String("state", ev.State))
		return
	}

	for _, publisher := range m.publishers {
		if err := publisher.Publish(ev); err != nil {
			logger.Error("发布仓位事件失败",
				logger.String("publisher", publisher.GetType()),
				logger.Int64("trade_id", ev.TradeID),
				logger.FieldErr(err))
			continue
		}
		logger.Debug("✅ 仓位事件发布成功",
			logger.String("publisher", publisher.GetType()),
			logger.Int64("trade_id", ev.TradeID),
			logger.String("state", ev.State))
	}
	m.recordSent(ev)
}

// Start 启动发布管理器
func (m *Manager) Start() error {
	for _, publisher := range m.publishers {
		logger.Info("✅ 已加载仓位事件发布器", logger.String("type", publisher.GetType()))
	}

	m.started.Store(true)
	go m.run()
	go m.startCleanupTask()

	logger.Info("📡 仓位事件发布管理器已启动")
	return nil
}

func (m *Manager) run() {
	defer close(m.done)
	for {
		select {
		case ev := <-m.events:
			m.publish(ev)
		case <-m.ctx.Done():
			// 发完已入队的事件再退出
			for {
				select {
				case ev := <-m.events:
					m.publish(ev)
				default:
					return
				}
			}
		}
	}
}

// startCleanupTask 定期清理去重记录
func (m *Manager) startCleanupTask() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if remaining := m.cleanupExpired(); remaining > 0 {
				logger.Debug("🧹 清理过期仓位事件记录完成", logger.Int("sent_events", remaining))
			}
		}
	}
}

// Stop 停止发布管理器并关闭所有发布器
func (m *Manager) Stop() error {
	m.cancel()
	if m.started.Load() {
		<-m.done
	}

	var merr error
	for _, publisher := range m.publishers {
		if err := publisher.Close(); err != nil {
			logger.Error("关闭发布器失败",
				logger.String("type", publisher.GetType()),
				logger.FieldErr(err))
			merr = multierror.Append(merr, err)
		}
	}

	logger.Info("仓位事件发布管理器已停止", logger.Int64("dropped", m.dropped.Load()))
	return merr
}

// LogPublisher 日志发布器 - 将仓位事件输出到日志
type LogPublisher struct{}

func (p *LogPublisher) GetType() string {
	return "log"
}

func (p *LogPublisher) Publish(ev *common.TradeEvent) error {
	logger.Info("🚨 仓位事件",
		logger.Int64("trade_id", ev.TradeID),
		logger.String("state", ev.State),
		logger.String("mint", ev.Mint),
		logger.String("amm", ev.AmmKind),
		logger.String("price", ev.Price.String()),
		logger.String("pct", ev.Pct.String()),
		logger.String("signature", ev.Signature))
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}

// ConsolePublisher 控制台发布器 - 格式化输出完整事件
type ConsolePublisher struct{}

func (p *ConsolePublisher) GetType() string {
	return "console"
}

func (p *ConsolePublisher) Publish(ev *common.TradeEvent) error {
	logger.Info("🚨 仓位事件详情", logger.String("event", utils.ConvertToJsonString(ev)))
	return nil
}

func (p *ConsolePublisher) Close() error {
	return nil
}
