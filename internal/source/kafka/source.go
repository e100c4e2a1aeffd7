// Package kafka 从上游 Kafka 主题消费编码后的链上交易
package kafka

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/pkg/logger"
	"github.com/ninja0404/meme-sniper/pkg/mq/kafka"
)

// Source Kafka数据源实现
type Source struct {
	txChan       chan *common.TxUpdate
	errChan      chan error
	ctx          context.Context
	cancel       context.CancelFunc
	config       SourceConfig
	consumerName string

	received atomic.Int64
	skipped  atomic.Int64
}

// SourceConfig Kafka数据源配置
type SourceConfig struct {
	Topic       string                    `yaml:"topic" json:"topic"`
	Brokers     []string                  `yaml:"brokers" json:"brokers"`
	KafkaConfig kafka.KafkaConsumerConfig `yaml:"consumer" json:"consumer"`
}

// NewSource 创建Kafka数据源
func NewSource(config SourceConfig) *Source {
	ctx, cancel := context.WithCancel(context.Background())

	return &Source{
		txChan:       make(chan *common.TxUpdate, 1000),
		errChan:      make(chan error, 100),
		ctx:          ctx,
		cancel:       cancel,
		config:       config,
		consumerName: fmt.Sprintf("meme-sniper-%s", config.KafkaConfig.GroupId),
	}
}

// Start 启动Kafka数据源
func (s *Source) Start(ctx context.Context) error {
	kafkaConfig := s.config.KafkaConfig
	kafkaConfig.Topics = []string{s.config.Topic}

	if err := kafka.SetupNamedKafkaConsumer(s.consumerName, s.config.Brokers, kafkaConfig); err != nil {
		return errors.Wrap(err, "设置Kafka消费者失败")
	}

	if err := kafka.RegisterTopicHandlerForConsumer(s.consumerName, s.config.Topic, s.handleMessage); err != nil {
		return errors.Wrap(err, "注册消息处理器失败")
	}

	if err := kafka.StartNamedConsumer(s.consumerName); err != nil {
		return errors.Wrap(err, "启动Kafka消费者失败")
	}

	logger.Info("✅ Kafka数据源已启动",
		logger.String("topic", s.config.Topic),
		logger.String("group_id", s.config.KafkaConfig.GroupId),
		logger.String("consumer_name", s.consumerName))

	return nil
}

// Stop 停止Kafka数据源
func (s *Source) Stop() error {
	logger.Info("🛑 停止Kafka数据源",
		logger.Int64("received", s.received.Load()),
		logger.Int64("skipped", s.skipped.Load()))
	s.cancel()

	err := kafka.CloseNamedConsumer(s.consumerName)
	if err != nil {
		logger.Error("关闭Kafka消费者失败", logger.FieldErr(err))
	}

	close(s.txChan)
	close(s.errChan)

	return err
}

// Subscribe 获取交易数据通道
func (s *Source) Subscribe() <-chan *common.TxUpdate {
	return s.txChan
}

// Errors 获取错误通道
func (s *Source) Errors() <-chan error {
	return s.errChan
}

// handleMessage 处理Kafka消息，只接受交易事件
func (s *Source) handleMessage(data []byte) error {
	select {
	case <-s.ctx.Done():
		return errors.New("上下文已取消")
	default:
	}

	update, err := decodeTxUpdate(data)
	if err != nil {
		// 无法解析的消息重试也不会成功，上报后提交位点跳过
		s.skipped.Add(1)
		select {
		case s.errChan <- err:
		default:
		}
		return nil
	}
	if update == nil {
		s.skipped.Add(1)
		return nil
	}
	s.received.Add(1)

	select {
	case s.txChan <- update:
		logger.Debug("📨 收到链上交易",
			logger.String("signature", update.Signature.String()),
			logger.Uint64("slot", update.Slot))
	case <-s.ctx.Done():
		return errors.New("上下文已取消")
	}
	return nil
}

// decodeTxUpdate 其他事件类型返回 nil
func decodeTxUpdate(data []byte) (*common.TxUpdate, error) {
	event, err := common.DecodeEvent(data)
	if err != nil {
		return nil, errors.Wrap(err, "解析事件数据失败")
	}
	if event.Type != common.TxUpdateEventType {
		return nil, nil
	}
	update, ok := event.InnerEvent.(*common.TxUpdate)
	if !ok || update == nil {
		return nil, errors.Errorf("交易事件内容类型错误: %T", event.InnerEvent)
	}
	return update, nil
}

// String 数据源名称
func (s *Source) String() string {
	return fmt.Sprintf("kafka(%s)", s.config.Topic)
}

// GetStats 获取数据源统计信息
func (s *Source) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"topic":            s.config.Topic,
		"group_id":         s.config.KafkaConfig.GroupId,
		"consumer_name":    s.consumerName,
		"received":         s.received.Load(),
		"skipped":          s.skipped.Load(),
		"tx_channel_size":  len(s.txChan),
		"err_channel_size": len(s.errChan),
	}
}
