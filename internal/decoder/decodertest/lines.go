// Package decodertest 构造测试用的协议日志行
package decodertest

import (
	"bytes"
	"encoding/base64"
	"testing"

	bin "github.com/gagliardetto/binary"

	"github.com/ninja0404/meme-sniper/internal/decoder"
)

func encode(t testing.TB, prefix []byte, v interface{}) string {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(prefix)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		t.Fatalf("encode log: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func RaydiumInit(t testing.TB, l decoder.InitLog) string {
	l.LogType = decoder.RayLogInit
	return decoder.RayLogPrefix + encode(t, nil, &l)
}

func RaydiumWithdraw(t testing.TB, l decoder.WithdrawLog) string {
	l.LogType = decoder.RayLogWithdraw
	return decoder.RayLogPrefix + encode(t, nil, &l)
}

func RaydiumSwapBaseIn(t testing.TB, l decoder.SwapBaseInLog) string {
	l.LogType = decoder.RayLogSwapBaseIn
	return decoder.RayLogPrefix + encode(t, nil, &l)
}

func PumpTrade(t testing.TB, l decoder.TradeEventLog) string {
	return decoder.ProgramDataPrefix + encode(t, decoder.TradeEventDiscriminator[:], &l)
}

// MustDecode 解码失败时终止测试
func MustDecode(t testing.TB, line string) decoder.PoolEvent {
	t.Helper()
	ev, err := decoder.Decode(line)
	if err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return ev
}
