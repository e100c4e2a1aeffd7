package mse

import (
	"sync"

	"github.com/ninja0404/meme-sniper/pkg/config/source"
)

type watcher struct {
	mse      *mse
	contents chan string
	exit     chan struct{}
	once     sync.Once
}

func newWatcher(m *mse) (source.Watcher, error) {
	w := &watcher{
		mse:      m,
		contents: make(chan string, 1),
		exit:     make(chan struct{}),
	}

	param := m.param()
	param.OnChange = func(namespace, group, dataId, data string) {
		select {
		case w.contents <- data:
		case <-w.exit:
		}
	}
	if err := m.client.ListenConfig(param); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *watcher) Next() (*source.ChangeSet, error) {
	select {
	case <-w.exit:
		return nil, source.ErrWatcherStopped
	default:
	}

	select {
	case data := <-w.contents:
		return w.mse.changeSet(data), nil
	case <-w.exit:
		return nil, source.ErrWatcherStopped
	}
}

func (w *watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.exit)
		err = w.mse.client.CancelListenConfig(w.mse.param())
	})
	return err
}
