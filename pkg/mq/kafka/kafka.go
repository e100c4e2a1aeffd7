// Package kafka confluent-kafka-go 的生产者与按名字管理的消费者
package kafka

import (
	"sync"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/pkg/logger"
)

var consumers = make(map[string]*KafkaConsumer)
var consumerMutex sync.RWMutex

var (
	startOnce   sync.Once
	infoLogger  *LoggerKafka
	debugLogger *LoggerKafka
)

func initKafka() {
	startOnce.Do(func() {
		infoLogger = NewLoggerKafka(logger.DefaultL1().Named("kafka-core"), LOGGER_INFO)
		debugLogger = NewLoggerKafka(logger.DefaultL1().Named("kafka-core-debug"), LOGGER_DEBUG)
		sarama.Logger = infoLogger
		sarama.DebugLogger = debugLogger
	})
}

// SetupNamedKafkaConsumer 创建消费者并按名字登记，同名覆盖
func SetupNamedKafkaConsumer(name string, brokers []string, cfg KafkaConsumerConfig) error {
	initKafka()
	instance, err := NewKafkaConsumer(brokers, cfg)
	if err != nil {
		return err
	}

	consumerMutex.Lock()
	consumers[name] = instance
	consumerMutex.Unlock()
	return nil
}

func GetNamedConsumer(name string) *KafkaConsumer {
	consumerMutex.RLock()
	defer consumerMutex.RUnlock()
	return consumers[name]
}

func namedConsumer(name string) (*KafkaConsumer, error) {
	consumer := GetNamedConsumer(name)
	if consumer == nil {
		logger.Error("命名消费者不存在", logger.String("consumer", name))
		return nil, errors.Errorf("命名消费者不存在: %s", name)
	}
	return consumer, nil
}

func StartNamedConsumer(name string) error {
	consumer, err := namedConsumer(name)
	if err != nil {
		return err
	}
	return consumer.Start()
}

// CloseNamedConsumer 关闭并注销消费者
func CloseNamedConsumer(name string) error {
	consumer, err := namedConsumer(name)
	if err != nil {
		return err
	}

	consumerMutex.Lock()
	delete(consumers, name)
	consumerMutex.Unlock()
	return consumer.Close()
}

func RegisterTopicHandlerForConsumer(name string, topic string, handler MessageHandler) error {
	consumer, err := namedConsumer(name)
	if err != nil {
		return err
	}
	return consumer.RegisterTopicHandler(topic, handler)
}
