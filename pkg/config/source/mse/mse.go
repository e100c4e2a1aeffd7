// Package mse 以 nacos(MSE) 配置中心为来源，监听推送实现热更新
package mse

import (
	"time"

	"github.com/nacos-group/nacos-sdk-go/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/vo"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/pkg/config/source"
)

const DEFAULT_GROUP string = "DEFAULT_GROUP"

type mse struct {
	client config_client.IConfigClient
	config *MseConfig
	opts   source.Options
}

func (s *mse) param() vo.ConfigParam {
	return vo.ConfigParam{Group: s.config.Group, DataId: s.config.DataID}
}

func (s *mse) changeSet(data string) *source.ChangeSet {
	cs := &source.ChangeSet{
		Format:    s.opts.Format,
		Source:    s.String(),
		Timestamp: time.Now(),
		Data:      []byte(data),
	}
	cs.Checksum = cs.Sum()
	return cs
}

func (s *mse) Read() (*source.ChangeSet, error) {
	content, err := s.client.GetConfig(s.param())
	if err != nil {
		return nil, errors.Wrapf(err, "get mse config %s/%s", s.config.Group, s.config.DataID)
	}
	return s.changeSet(content), nil
}

func (s *mse) String() string {
	return "mse"
}

func (s *mse) Watch() (source.Watcher, error) {
	return newWatcher(s)
}

func (s *mse) Write(cs *source.ChangeSet) error {
	return nil
}

// NewSource 创建 nacos 来源，必须通过 WithMseConfig 提供连接参数
func NewSource(opts ...source.Option) (source.Source, error) {
	options := source.NewOptions(opts...)
	mseConfig, ok := options.Context.Value(mseConfigKey{}).(*MseConfig)
	if !ok || mseConfig == nil {
		return nil, errors.New("mse config not provided")
	}

	client, err := createClient(mseConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create nacos config client")
	}
	return &mse{opts: options, client: client, config: mseConfig}, nil
}
