package logger

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newRotate 按大小切割日志文件，保留天数与副本数由配置决定
func newRotate(config *Config) io.Writer {
	return &lumberjack.Logger{
		Filename:   config.Filename(),
		MaxSize:    config.MaxSize, // MB
		MaxAge:     config.MaxAge,  // days
		MaxBackups: config.MaxBackup,
		LocalTime:  true,
		Compress:   false,
	}
}
