package file

import (
	"context"

	"github.com/ninja0404/meme-sniper/pkg/config/source"
)

type filePathKey struct{}

// WithPath 指定配置文件路径
func WithPath(p string) source.Option {
	return func(o *source.Options) {
		if o.Context == nil {
			o.Context = context.Background()
		}
		o.Context = context.WithValue(o.Context, filePathKey{}, p)
	}
}
