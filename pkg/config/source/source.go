// Package source 配置数据源
package source

import (
	"crypto/md5"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWatcherStopped 监听已停止
	ErrWatcherStopped = errors.New("watcher stopped")
)

// Source 配置数据源，例如文件或 mse
type Source interface {
	Read() (*ChangeSet, error)
	Write(*ChangeSet) error
	Watch() (Watcher, error)
	String() string
}

// ChangeSet 数据源的一次完整内容
type ChangeSet struct {
	Data      []byte
	Checksum  string
	Format    string
	Source    string
	Timestamp time.Time
}

// Watcher 监听数据源变化
type Watcher interface {
	Next() (*ChangeSet, error)
	Stop() error
}

// Sum 内容的 md5 校验值
func (c *ChangeSet) Sum() string {
	h := md5.New()
	h.Write(c.Data)
	return fmt.Sprintf("%x", h.Sum(nil))
}
