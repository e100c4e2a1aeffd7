package chain

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/builder"
	"github.com/ninja0404/meme-sniper/internal/model"
)

// EndpointConfig 提交节点配置
type EndpointConfig struct {
	Name        string        `json:"name" yaml:"name"`
	Kind        string        `json:"kind" yaml:"kind"` // rpc 或 jito
	URL         string        `json:"url" yaml:"url"`
	TipAccount  string        `json:"tip_account" yaml:"tip_account"`
	TipLamports uint64        `json:"tip_lamports" yaml:"tip_lamports"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// Endpoint 一个可用的提交节点
type Endpoint struct {
	Name      string
	URL       string
	Channel   model.ChannelKind
	Tip       *builder.Tip
	Submitter Submitter
}

// NewEndpoint 按配置构造节点，jito 节点使用 priority 通道
func NewEndpoint(cfg EndpointConfig) (Endpoint, error) {
	if cfg.Name == "" || cfg.URL == "" {
		return Endpoint{}, errors.Errorf("endpoint name and url are required: %+v", cfg)
	}

	ep := Endpoint{Name: cfg.Name, URL: cfg.URL}
	switch strings.ToLower(cfg.Kind) {
	case "", "rpc":
		ep.Channel = model.ChannelPlain
		ep.Submitter = NewRPCSubmitter(NewRPCClient(cfg.URL, cfg.Timeout))
	case "jito":
		ep.Channel = model.ChannelPriority
		ep.Submitter = NewJitoSubmitter(newJSONRPCClient(cfg.URL, cfg.Timeout))
		if cfg.TipAccount == "" {
			return Endpoint{}, errors.Errorf("endpoint %s: jito requires tip_account", cfg.Name)
		}
		tip, err := solana.PublicKeyFromBase58(cfg.TipAccount)
		if err != nil {
			return Endpoint{}, errors.Wrapf(err, "endpoint %s: tip_account", cfg.Name)
		}
		ep.Tip = &builder.Tip{Account: tip, Lamports: cfg.TipLamports}
	default:
		return Endpoint{}, errors.Errorf("endpoint %s: unknown kind %q", cfg.Name, cfg.Kind)
	}
	return ep, nil
}

// NewEndpoints 构造全部节点，名称不能重复
func NewEndpoints(cfgs []EndpointConfig) ([]Endpoint, error) {
	seen := make(map[string]struct{}, len(cfgs))
	out := make([]Endpoint, 0, len(cfgs))
	for _, c := range cfgs {
		if _, ok := seen[c.Name]; ok {
			return nil, errors.Errorf("duplicate endpoint name %s", c.Name)
		}
		seen[c.Name] = struct{}{}
		ep, err := NewEndpoint(c)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, nil
}

// Channels 节点集合涉及的通道，每种通道取第一个节点的小费配置
func Channels(endpoints []Endpoint) []builder.Channel {
	seen := make(map[model.ChannelKind]struct{})
	var out []builder.Channel
	for _, ep := range endpoints {
		if _, ok := seen[ep.Channel]; ok {
			continue
		}
		seen[ep.Channel] = struct{}{}
		out = append(out, builder.Channel{Kind: ep.Channel, Tip: ep.Tip})
	}
	return out
}

// EndpointSet 可被配置热更新整体替换的节点列表
type EndpointSet struct {
	p atomic.Pointer[[]Endpoint]
}

func NewEndpointSet(endpoints []Endpoint) *EndpointSet {
	s := &EndpointSet{}
	s.Store(endpoints)
	return s
}

// Load 返回当前列表的副本
func (s *EndpointSet) Load() []Endpoint {
	p := s.p.Load()
	if p == nil {
		return nil
	}
	return append([]Endpoint(nil), (*p)...)
}

func (s *EndpointSet) Store(endpoints []Endpoint) {
	cp := append([]Endpoint(nil), endpoints...)
	s.p.Store(&cp)
}
