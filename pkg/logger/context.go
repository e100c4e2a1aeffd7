package logger

import "context"

type ctxKey struct{}

// ContextWithLog 把带请求字段的 logger 放入 ctx
func ContextWithLog(ctx context.Context, l *Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, l)
}

// LogFromContext 取 ctx 中的 logger，没有时返回默认 logger
func LogFromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return defaultLogger
}
