package polardbx

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func TestValidateConfigDefaults(t *testing.T) {
	c := validateConfig(&MysqlConfig{Host: "db", MaxPoolSize: 50})
	assert.Equal(t, 3306, c.Port)
	assert.Equal(t, 50, c.MaxPoolSize)
	assert.Equal(t, 10, c.MaxIdleSize)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, 30*time.Minute, c.MaxLifetime)
	assert.Equal(t, time.Second, c.SlowThreshold)
}

func TestGetDsn(t *testing.T) {
	c := validateConfig(&MysqlConfig{
		User:     "sniper",
		Password: "p@ss:word",
		Host:     "10.0.0.2",
		Port:     3307,
		Database: "meme_sniper",
	})

	parsed, err := mysql.ParseDSN(getDsn(c))
	require.NoError(t, err)
	assert.Equal(t, "sniper", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "10.0.0.2:3307", parsed.Addr)
	assert.Equal(t, "meme_sniper", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
}

func TestMappingLoggerLevel(t *testing.T) {
	assert.Equal(t, gormLogger.Info, mappingLoggerLevel("error", true))
	assert.Equal(t, gormLogger.Warn, mappingLoggerLevel("", false))
	assert.Equal(t, gormLogger.Warn, mappingLoggerLevel("INFO", false))
	assert.Equal(t, gormLogger.Error, mappingLoggerLevel("fatal", false))
	assert.Equal(t, gormLogger.Silent, mappingLoggerLevel("off", false))
}

func TestMysqlLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewMysqlLogger(zap.New(core), gormLogger.Warn, 100*time.Millisecond)
	fc := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	l.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
	l.Trace(ctx, time.Now(), fc, nil)
	assert.Zero(t, logs.Len())

	l.Trace(ctx, time.Now(), fc, errors.New("deadlock"))
	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestGetDbNotInitialized(t *testing.T) {
	_, err := GetDbWithName("missing")
	assert.Error(t, err)
	assert.NoError(t, Stop())
}
