package mse

import (
	"context"
	"os"
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/pkg/config/source"
)

type mseConfigKey struct{}

// MseConfig nacos 连接参数，env 标签为环境变量名及是否必填
type MseConfig struct {
	ServerAddr  string `env:"MSE_SERVER_ADDR,required"`
	NamespaceID string `env:"MSE_NAMESPACE,required"`
	AccessKey   string `env:"MSE_ACCESSKEY,required"`
	SecretKey   string `env:"MSE_SECRETKEY,required"`
	Group       string `env:"MSE_GROUP,required"`
	DataID      string `env:"MSE_DATAID,required"`
	LogDir      string `env:"MSE_LOG_DIR,empty"`
	CacheDir    string `env:"MSE_CACHE_DIR,empty"`
}

// ConfigFromEnv 按 env 标签读取环境变量，prefix 加在变量名前
func ConfigFromEnv(prefix string) (*MseConfig, error) {
	conf := &MseConfig{}
	v := reflect.ValueOf(conf).Elem()
	t := v.Type()

	var missing []string
	for i := 0; i < t.NumField(); i++ {
		name, opt, _ := strings.Cut(t.Field(i).Tag.Get("env"), ",")
		value := os.Getenv(prefix + name)
		if value == "" && opt == "required" {
			missing = append(missing, prefix+name)
			continue
		}
		v.Field(i).SetString(value)
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("missing mse env: %s", strings.Join(missing, ","))
	}
	if conf.Group == "" {
		conf.Group = DEFAULT_GROUP
	}
	return conf, nil
}

func WithMseConfig(conf *MseConfig) source.Option {
	return func(o *source.Options) {
		if o.Context == nil {
			o.Context = context.Background()
		}
		o.Context = context.WithValue(o.Context, mseConfigKey{}, conf)
	}
}
