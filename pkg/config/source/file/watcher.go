package file

import (
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/ninja0404/meme-sniper/pkg/config/source"
)

type watcher struct {
	f *file

	fw   *fsnotify.Watcher
	exit chan bool
}

func newWatcher(f *file) (source.Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(f.path); err != nil {
		fw.Close()
		return nil, err
	}

	return &watcher{
		f:    f,
		fw:   fw,
		exit: make(chan bool),
	}, nil
}

func (w *watcher) Next() (*source.ChangeSet, error) {
	// is it closed?
	select {
	case <-w.exit:
		return nil, source.ErrWatcherStopped
	default:
	}

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return nil, source.ErrWatcherStopped
			}
			// 编辑器保存时常见 rename/remove 后重建，需要重新加入监听
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if _, err := os.Stat(event.Name); err == nil {
					_ = w.fw.Add(event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			return w.f.Read()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil, source.ErrWatcherStopped
			}
			return nil, err
		case <-w.exit:
			return nil, source.ErrWatcherStopped
		}
	}
}

func (w *watcher) Stop() error {
	select {
	case <-w.exit:
		return nil
	default:
		close(w.exit)
	}
	return w.fw.Close()
}
