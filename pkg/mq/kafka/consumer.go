package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/pkg/logger"
	"github.com/ninja0404/meme-sniper/pkg/utils"
)

const defaultReadTimeout = time.Second

// MessageHandler 处理一条消息，返回错误时回退位点重新消费
type MessageHandler func(message []byte) error

type wrapperMessageHandler func(message *kafka.Message) error

// KafkaConsumer 按主题分发消息的消费者，处理成功后逐条提交位点
type KafkaConsumer struct {
	consumer    *kafka.Consumer
	topics      []string
	groupId     string
	readTimeout time.Duration

	handlers map[string]wrapperMessageHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewKafkaConsumer(brokers []string, cfg KafkaConsumerConfig) (*KafkaConsumer, error) {
	consumer, err := kafka.NewConsumer(newConsumerConfig(brokers, cfg))
	if err != nil {
		return nil, errors.Wrap(err, "创建kafka消费者失败")
	}

	readTimeout := time.Duration(cfg.ReadTimeout) * time.Millisecond
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	kc := &KafkaConsumer{
		consumer:    consumer,
		topics:      cfg.Topics,
		groupId:     cfg.GroupId,
		readTimeout: readTimeout,
		handlers:    make(map[string]wrapperMessageHandler),
		ctx:         ctx,
		cancel:      cancel,
	}
	kc.wg.Add(1)
	go func() {
		defer kc.wg.Done()
		forwardLogs(ctx, consumer.Logs(), "consumer")
	}()
	return kc, nil
}

// RegisterTopicHandler 注册主题处理器，主题必须在订阅列表中
func (kc *KafkaConsumer) RegisterTopicHandler(t string, h MessageHandler) error {
	wrapperHandler := func(msg *kafka.Message) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("💥 kafka消息处理器panic",
					logger.String("topic", *msg.TopicPartition.Topic),
					logger.Int32("partition", msg.TopicPartition.Partition),
					logger.String("offset", msg.TopicPartition.Offset.String()),
					logger.FieldStack(utils.GetStack()))
				err = errors.Errorf("panic in message handler: %v", r)
			}
		}()

		if err = h(msg.Value); err != nil {
			logger.Error("kafka消息处理失败",
				logger.FieldErr(err),
				logger.String("topic", *msg.TopicPartition.Topic))
		}
		return err
	}
	for _, topic := range kc.topics {
		if topic == t {
			kc.handlers[t] = wrapperHandler
			return nil
		}
	}
	return errors.Errorf("topic %s not in consumer list", t)
}

// Start 订阅主题并在后台消费
func (kc *KafkaConsumer) Start() error {
	if err := kc.consumer.SubscribeTopics(kc.topics, nil); err != nil {
		return errors.Wrap(err, "订阅kafka主题失败")
	}

	kc.wg.Add(1)
	go func() {
		defer kc.wg.Done()
		kc.consume()
	}()
	return nil
}

func (kc *KafkaConsumer) consume() {
	for kc.ctx.Err() == nil {
		msg, ok := kc.read()
		if !ok {
			continue
		}

		topic := *msg.TopicPartition.Topic
		h, ok := kc.handlers[topic]
		if !ok {
			logger.Warn("⚠️ kafka主题没有处理器", logger.String("topic", topic))
			continue
		}

		// 处理失败时回退到当前位点重读，直到成功或关闭
		for {
			if err := h(msg); err == nil {
				if _, cErr := kc.consumer.CommitMessage(msg); cErr != nil {
					logger.Error("提交kafka位点失败", logger.FieldErr(cErr))
				}
				break
			}
			if kc.ctx.Err() != nil {
				return
			}
			if sErr := kc.consumer.Seek(msg.TopicPartition, -1); sErr != nil {
				logger.Error("回退kafka位点失败", logger.FieldErr(sErr))
				select {
				case <-kc.ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
			if msg, ok = kc.read(); !ok {
				break
			}
		}
	}
}

// read 读超时不算错误
func (kc *KafkaConsumer) read() (*kafka.Message, bool) {
	msg, err := kc.consumer.ReadMessage(kc.readTimeout)
	if err == nil {
		return msg, true
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
		return nil, false
	}
	if kc.ctx.Err() == nil {
		logger.Error("读取kafka消息失败", logger.FieldErr(err), logger.String("group_id", kc.groupId))
	}
	return nil, false
}

// Close 停止消费并关闭消费者
func (kc *KafkaConsumer) Close() error {
	kc.cancel()
	err := kc.consumer.Close()
	kc.wg.Wait()
	if err != nil {
		return errors.Wrap(err, "关闭kafka消费者失败")
	}
	logger.Info("✅ kafka消费者已关闭", logger.String("group_id", kc.groupId))
	return nil
}
