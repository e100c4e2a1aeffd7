package publisher

import (
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/pkg/logger"
	"github.com/ninja0404/meme-sniper/pkg/mq/kafka"
)

const defaultTradeEventTopic = "trade_events"

// eventProducer kafka 生产者中发布器用到的部分
type eventProducer interface {
	SendMessageWithKey(topic string, key string, value []byte) error
	Close() error
}

// KafkaPublisher 把仓位事件写入 Kafka，以代币地址为 key 保证同一代币有序
type KafkaPublisher struct {
	producer eventProducer
	topic    string
}

// NewKafkaPublisher 创建Kafka发布器
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka发布器缺少broker配置")
	}
	producer, err := kafka.NewKafkaProducer(cfg.Brokers, cfg.Producer)
	if err != nil {
		return nil, err
	}
	return newKafkaPublisher(producer, cfg.Topic), nil
}

func newKafkaPublisher(producer eventProducer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = defaultTradeEventTopic
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) GetType() string {
	return "kafka"
}

func (p *KafkaPublisher) Publish(ev *common.TradeEvent) error {
	data, err := common.EncodeEvent(&common.Event{Type: common.TradeEventType, InnerEvent: ev})
	if err != nil {
		return errors.Wrap(err, "编码仓位事件失败")
	}
	if err := p.producer.SendMessageWithKey(p.topic, ev.Mint, data); err != nil {
		return err
	}
	logger.Debug("📨 仓位事件已写入kafka",
		logger.String("topic", p.topic),
		logger.Int64("trade_id", ev.TradeID),
		logger.String("state", ev.State))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
