package polardbx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	gormUtils "gorm.io/gorm/utils"

	"github.com/ninja0404/meme-sniper/pkg/logger"
)

var _ gormLogger.Interface = (*MysqlLogger)(nil)

// MysqlLogger 把 gorm 日志转成结构化字段，找不到记录不算错误
type MysqlLogger struct {
	logger        *logger.Logger
	level         gormLogger.LogLevel
	slowThreshold time.Duration
}

func NewMysqlLogger(l *logger.Logger, level gormLogger.LogLevel, slowThreshold time.Duration) *MysqlLogger {
	return &MysqlLogger{
		logger:        l,
		level:         level,
		slowThreshold: slowThreshold,
	}
}

func (l *MysqlLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *MysqlLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *MysqlLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *MysqlLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *MysqlLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	fields := func() []logger.Field {
		sql, rows := fc()
		return []logger.Field{
			logger.String("sql", sql),
			logger.Int64("rows", rows),
			logger.FieldCost(elapsed),
			logger.String("caller", gormUtils.FileWithLineNum()),
		}
	}

	switch {
	case err != nil && l.level >= gormLogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		l.logger.Error("❌ sql执行失败", append(fields(), logger.FieldErr(err))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormLogger.Warn:
		l.logger.Warn("🐢 慢sql", append(fields(), logger.Duration("threshold", l.slowThreshold))...)
	case l.level >= gormLogger.Info:
		l.logger.Info("sql", fields()...)
	}
}

// mappingLoggerLevel open_debug 时输出全部sql，否则最多到慢sql告警
func mappingLoggerLevel(level string, openDebug bool) gormLogger.LogLevel {
	if openDebug {
		return gormLogger.Info
	}
	switch strings.ToLower(level) {
	case "", "debug", "info", "warn":
		return gormLogger.Warn
	case "error", "dpanic", "panic", "fatal":
		return gormLogger.Error
	default:
		return gormLogger.Silent
	}
}
