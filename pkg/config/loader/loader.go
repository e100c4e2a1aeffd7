// Package loader 从数据源加载配置并维护快照
package loader

import (
	"context"

	"github.com/ninja0404/meme-sniper/pkg/config/reader"
	"github.com/ninja0404/meme-sniper/pkg/config/source"
)

type Loader interface {
	Close() error
	Load(...source.Source) error
	Snapshot() (*Snapshot, error)
	Sync() error
	Watch(...string) (Watcher, error)
	String() string
}

// Watcher 监听某个路径下配置的变化
type Watcher interface {
	Next() (*Snapshot, error)
	Stop() error
}

// Snapshot 合并后的配置快照
type Snapshot struct {
	ChangeSet *source.ChangeSet
	Version   string
}

type Options struct {
	Reader reader.Reader
	Source []source.Source

	Context context.Context
}

type Option func(o *Options)

// Copy snapshot
func Copy(s *Snapshot) *Snapshot {
	cs := *(s.ChangeSet)

	return &Snapshot{
		ChangeSet: &cs,
		Version:   s.Version,
	}
}
