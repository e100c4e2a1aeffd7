package builder

import (
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// LoadKeypair 读取钱包私钥，支持 solana-keygen 生成的 json 文件或 base58 字符串
func LoadKeypair(value string) (solana.PrivateKey, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("empty keypair")
	}
	if _, err := os.Stat(value); err == nil {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(value)
		if err != nil {
			return nil, errors.Wrapf(err, "load keypair file %s", value)
		}
		return key, nil
	}

	raw, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrap(err, "decode base58 keypair")
	}
	if len(raw) != 64 {
		return nil, errors.Errorf("keypair must be 64 bytes, got %d", len(raw))
	}
	return solana.PrivateKey(raw), nil
}
