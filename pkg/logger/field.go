package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

func FieldErr(err error) Field {
	return zap.Error(err)
}

// FieldCost 耗时，单位毫秒保留三位小数
func FieldCost(value time.Duration) Field {
	return String("cost", fmt.Sprintf("%.3f", float64(value.Round(time.Microsecond))/float64(time.Millisecond)))
}

func FieldStack(value []byte) Field {
	return ByteString("stack", value)
}
