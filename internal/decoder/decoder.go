// Package decoder 解析 Raydium ray_log 与 pump.fun TradeEvent 程序日志
package decoder

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

const (
	// RayLogPrefix Raydium AMM v4 日志前缀
	RayLogPrefix = "Program log: ray_log: "
	// ProgramDataPrefix anchor 事件日志前缀
	ProgramDataPrefix = "Program data: "
)

var (
	ErrDecode               = errors.New("decode pool event")
	ErrUnknownPrefix        = errors.New("unrecognized log prefix")
	ErrUnknownDiscriminator = errors.New("unrecognized discriminator")
)

// Decode 将一行程序日志解码为池子事件
func Decode(line string) (PoolEvent, error) {
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, RayLogPrefix):
		data, err := decodeBase64(line[len(RayLogPrefix):])
		if err != nil {
			return nil, err
		}
		return decodeRayLog(data)

	case strings.HasPrefix(line, ProgramDataPrefix):
		data, err := decodeBase64(line[len(ProgramDataPrefix):])
		if err != nil {
			return nil, err
		}
		return decodePumpLog(data)

	default:
		return nil, ErrUnknownPrefix
	}
}

func decodeBase64(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "base64: %v", err)
	}
	return data, nil
}

// IsDecodeError 是否为可忽略的解码错误
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrUnknownPrefix) || errors.Is(err, ErrUnknownDiscriminator)
}
