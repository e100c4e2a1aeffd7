package utils

import (
	"runtime"
)

// GetStack 当前协程的调用栈，最多 10KB
func GetStack() []byte {
	buf := make([]byte, 10240)
	stackSize := runtime.Stack(buf, false)
	return buf[:stackSize]
}
