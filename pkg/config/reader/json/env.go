package json

import (
	"os"
	"regexp"
)

// ${NAME} 或 ${NAME:default}
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// ReplaceEnvVars 用环境变量替换占位符，变量为空时使用默认值
func ReplaceEnvVars(raw []byte) ([]byte, error) {
	out := envPattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		sub := envPattern.FindSubmatch(m)
		if v, ok := os.LookupEnv(string(sub[1])); ok && v != "" {
			return []byte(v)
		}
		return sub[2]
	})
	return out, nil
}
