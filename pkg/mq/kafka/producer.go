package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/pkg/logger"
)

func newProducerConfig(brokers []string, cfg KafkaProducerConfig) *kafka.ConfigMap {
	var kafkaconf = &kafka.ConfigMap{
		"api.version.request":           "true",
		"message.max.bytes":             10 * MB,
		"linger.ms":                     5,
		"sticky.partitioning.linger.ms": 0,
		"retries":                       3,
		"retry.backoff.ms":              1000,
		"acks":                          "1",
		"compression.type":              "snappy",
		"go.logs.channel.enable":        true,
	}
	if cfg.MessageMaxBytes != 0 {
		kafkaconf.SetKey("message.max.bytes", cfg.MessageMaxBytes)
	}
	if cfg.LingerMs != 0 {
		kafkaconf.SetKey("linger.ms", cfg.LingerMs)
	}
	if cfg.PartitionLingerMs != 0 {
		kafkaconf.SetKey("sticky.partitioning.linger.ms", cfg.PartitionLingerMs)
	}
	if cfg.RetryBackoffMs != 0 {
		kafkaconf.SetKey("retry.backoff.ms", cfg.RetryBackoffMs)
	}
	if cfg.RequiredAcks != 0 {
		kafkaconf.SetKey("acks", cfg.RequiredAcks)
	}

	if cfg.ClientID != "" {
		kafkaconf.SetKey("client.id", cfg.ClientID+getClientID())
	}
	bootstrapServers := strings.Join(brokers, ",")
	kafkaconf.SetKey("bootstrap.servers", bootstrapServers)

	switch cfg.SecurityProtocol {
	case "PLAINTEXT", "":
		kafkaconf.SetKey("security.protocol", "plaintext")
	case "SASL_SSL":
		kafkaconf.SetKey("security.protocol", "sasl_ssl")
		//kafkaconf.SetKey("sasl.mechanism", cfg.SaslMechanism) // 或 SCRAM-SHA-256, SCRAM-SHA-512
		kafkaconf.SetKey("sasl.username", cfg.SaslUsername)
		kafkaconf.SetKey("sasl.password", cfg.SaslPassword)
		kafkaconf.SetKey("ssl.ca.location", cfg.SslCaLocation)
		kafkaconf.SetKey("ssl.certificate.location", cfg.SslCertificateLocation)
		kafkaconf.SetKey("ssl.key.location", cfg.SslKeyLocation)

		// hostname校验改成空,
		kafkaconf.SetKey("enable.ssl.certificate.verification", "false")
		kafkaconf.SetKey("ssl.endpoint.identification.algorithm", "None")
	case "SSL":
		kafkaconf.SetKey("security.protocol", "ssl")
		kafkaconf.SetKey("ssl.ca.location", cfg.SslCaLocation)
		kafkaconf.SetKey("ssl.certificate.location", cfg.SslCertificateLocation)
		kafkaconf.SetKey("ssl.key.location", cfg.SslKeyLocation)
		kafkaconf.SetKey("enable.ssl.certificate.verification", "false")
	case "SASL_PLAINTEXT":
		kafkaconf.SetKey("security.protocol", "sasl_plaintext")
		kafkaconf.SetKey("sasl.username", cfg.SaslUsername)
		kafkaconf.SetKey("sasl.password", cfg.SaslPassword)
		kafkaconf.SetKey("sasl.mechanism", cfg.SaslMechanism)
	default:
		panic(kafka.NewError(kafka.ErrUnknownProtocol, "unknown protocol", true))
	}

	return kafkaconf
}

// KafkaProducer 异步生产者，投递结果在事件协程中记录
type KafkaProducer struct {
	producer   *kafka.Producer
	eventsDone chan struct{}
	cancelLogs context.CancelFunc
}

func NewKafkaProducer(brokers []string, cfg KafkaProducerConfig) (*KafkaProducer, error) {
	initKafka()
	producer, err := kafka.NewProducer(newProducerConfig(brokers, cfg))
	if err != nil {
		return nil, errors.Wrap(err, "创建kafka生产者失败")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &KafkaProducer{
		producer:   producer,
		eventsDone: make(chan struct{}),
		cancelLogs: cancel,
	}
	go forwardLogs(ctx, producer.Logs(), "producer")
	go p.handleEvents()
	return p, nil
}

func (p *KafkaProducer) handleEvents() {
	defer close(p.eventsDone)
	for event := range p.producer.Events() {
		switch ev := event.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logger.Error("❌ kafka消息投递失败",
					logger.FieldErr(ev.TopicPartition.Error),
					logger.String("topic", *ev.TopicPartition.Topic),
					logger.ByteString("key", ev.Key))
			}
		case kafka.Error:
			logger.Error("kafka生产者错误",
				logger.String("code", ev.Code().String()),
				logger.String("message", ev.Error()))
		default:
			logger.Debug("kafka生产者事件", logger.String("event", ev.String()))
		}
	}
}

func (p *KafkaProducer) SendMessage(topic string, value []byte) error {
	return p.produce(topic, nil, value)
}

func (p *KafkaProducer) SendMessageWithKey(topic string, key string, value []byte) error {
	return p.produce(topic, []byte(key), value)
}

func (p *KafkaProducer) produce(topic string, key, value []byte) error {
	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          value,
	}, nil)
	return errors.Wrapf(err, "produce to %s", topic)
}

// Close 刷出剩余消息后关闭，最多等待 10 秒
func (p *KafkaProducer) Close() error {
	defer p.cancelLogs()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		if remaining := p.producer.Flush(5 * 1000); remaining > 0 {
			done <- errors.Errorf("flush incomplete: %d messages remaining", remaining)
			return
		}
		p.producer.Close()
		<-p.eventsDone
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, "关闭kafka生产者失败")
		}
		logger.Info("✅ kafka生产者已关闭")
		return nil
	case <-ctx.Done():
		return errors.New("关闭kafka生产者超时")
	}
}
