package kafka

import (
	"context"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/ninja0404/meme-sniper/pkg/logger"
)

var _ sarama.StdLogger = (*LoggerKafka)(nil)

const (
	LOGGER_DEBUG = iota + 1
	LOGGER_INFO
)

// syslog 等级，数值越大越不重要
const (
	syslogWarning = 4
	syslogInfo    = 6
)

// LoggerKafka 把kafka客户端日志转到 zap
type LoggerKafka struct {
	l     *logger.Logger
	level int
}

func NewLoggerKafka(l *logger.Logger, level int) *LoggerKafka {
	return &LoggerKafka{l: l, level: level}
}

func (l *LoggerKafka) write(msg string) {
	if l.level == LOGGER_DEBUG {
		l.l.Debug(msg)
	} else {
		l.l.Info(msg)
	}
}

func (l *LoggerKafka) Print(v ...interface{}) {
	l.write(strings.TrimSpace(fmt.Sprint(v...)))
}

func (l *LoggerKafka) Printf(format string, v ...interface{}) {
	l.write(fmt.Sprintf(format, v...))
}

func (l *LoggerKafka) Println(v ...interface{}) {
	l.write(strings.TrimSpace(fmt.Sprintln(v...)))
}

// forwardLogs 转发 librdkafka 的日志事件，直到通道关闭或 ctx 结束
func forwardLogs(ctx context.Context, logs chan kafka.LogEvent, role string) {
	initKafka()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-logs:
			if !ok {
				return
			}
			l := infoLogger
			if ev.Level > syslogInfo {
				l = debugLogger
			}
			if ev.Level <= syslogWarning {
				logger.Warn("⚠️ kafka客户端告警",
					logger.String("role", role),
					logger.String("tag", ev.Tag),
					logger.String("message", ev.Message))
				continue
			}
			l.Printf("[%s] %s %s: %s", role, ev.Name, ev.Tag, ev.Message)
		}
	}
}
