package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	Field  = zap.Field
	Logger = zap.Logger
	Option = zap.Option
)

var (
	// String ...
	String = zap.String
	// Any ...
	Any = zap.Any
	// Int64 ...
	Int64 = zap.Int64
	// Int ...
	Int = zap.Int
	// Int32 ...
	Int32 = zap.Int32
	//Uint64
	Uint64 = zap.Uint64
	Uint8  = zap.Uint8
	// Uint ...
	Uint = zap.Uint
	//Uint32
	Uint32 = zap.Uint32
	//Bool
	Bool = zap.Bool
	//Time
	Time = zap.Time
	// Duration ...
	Duration = zap.Duration
	// ByteString ...
	ByteString = zap.ByteString

	Float64 = zap.Float64
)

func newLogger(c *Config) *zap.Logger {
	// 控制台格式下按级别着色，管道输出时也保留颜色
	if c.Debug {
		color.NoColor = false
	}

	zapOptions := []zap.Option{zap.AddStacktrace(zap.DPanicLevel)}
	if c.AddCaller {
		zapOptions = append(zapOptions, zap.AddCaller(), zap.AddCallerSkip(c.CallerSkip))
	}

	var ws zapcore.WriteSyncer = os.Stdout
	switch {
	case c.Discard:
		ws = zapcore.AddSync(io.Discard)
	case c.OUTPUT == "file":
		ws = zapcore.AddSync(newRotate(c))
	}
	if c.Async {
		ws = &zapcore.BufferedWriteSyncer{
			WS:            ws,
			FlushInterval: c.FlushInterval,
			Size:          c.FlushBufferSize,
		}
	}

	lv := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if err := lv.UnmarshalText([]byte(c.Level)); err != nil {
		panic(fmt.Sprintf("logger level %q not valid", c.Level))
	}

	if !c.DisableSentry {
		sentryLevel := zapcore.ErrorLevel
		if err := sentryLevel.UnmarshalText([]byte(c.SentryLevel)); err != nil {
			panic(fmt.Sprintf("sentry level %q not valid", c.SentryLevel))
		}
		sentryCore := NewSentryCore(sentryLevel)
		zapOptions = append(zapOptions, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, sentryCore)
		}))
	}

	encoderConfig := defaultZapConfig()
	encoder := zapcore.NewJSONEncoder(*encoderConfig)
	if c.Debug {
		encoderConfig.EncodeLevel = debugEncodeLevel
		encoder = zapcore.NewConsoleEncoder(*encoderConfig)
	}

	return zap.New(zapcore.NewCore(encoder, ws, lv), zapOptions...).Named(c.Name)
}

func defaultZapConfig() *zapcore.EncoderConfig {
	return &zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func debugEncodeLevel(lv zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var colorize = color.RedString
	switch lv {
	case zapcore.DebugLevel:
		colorize = color.BlueString
	case zapcore.InfoLevel:
		colorize = color.GreenString
	case zapcore.WarnLevel:
		colorize = color.YellowString
	case zapcore.ErrorLevel, zapcore.PanicLevel, zapcore.DPanicLevel, zapcore.FatalLevel:
		colorize = color.RedString
	default:
	}
	enc.AppendString(colorize(fmt.Sprintf("[%s]", lv.CapitalString())))
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Local().Format("2006-01-02 15:04:05.000"))
}
