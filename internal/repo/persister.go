package repo

import (
	"context"
	"sync"
	"time"

	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

// SnapshotStore 快照落库接口
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, t *model.Trade) error
}

// AsyncPersister 异步快照写入器
//
// Persist 只登记仓位的最新版本，同一仓位未落库的旧版本直接被覆盖，
// 后台协程按登记顺序写库。调用方永远不会被数据库阻塞。
type AsyncPersister struct {
	store   SnapshotStore
	timeout time.Duration

	mu      sync.Mutex
	pending map[int64]*model.Trade
	order   []int64

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAsyncPersister(store SnapshotStore, timeout time.Duration) *AsyncPersister {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncPersister{
		store:   store,
		timeout: timeout,
		pending: make(map[int64]*model.Trade),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start 启动后台写入协程
func (p *AsyncPersister) Start() {
	go p.loop()
	logger.Info("💾 仓位快照写入器已启动")
}

// Persist 实现 engine.Persister
func (p *AsyncPersister) Persist(t *model.Trade) {
	p.mu.Lock()
	if _, ok := p.pending[t.ID]; !ok {
		p.order = append(p.order, t.ID)
	}
	p.pending[t.ID] = t
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending 尚未落库的仓位数
func (p *AsyncPersister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Close 停止后台协程并写完剩余快照
func (p *AsyncPersister) Close() error {
	p.cancel()
	<-p.done
	logger.Info("💾 仓位快照写入器已停止")
	return nil
}

func (p *AsyncPersister) loop() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.flush()
		case <-p.ctx.Done():
			p.flush()
			return
		}
	}
}

func (p *AsyncPersister) flush() {
	p.mu.Lock()
	order, pending := p.order, p.pending
	p.order = nil
	p.pending = make(map[int64]*model.Trade)
	p.mu.Unlock()

	for _, id := range order {
		t := pending[id]
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.store.UpsertSnapshot(ctx, t)
		cancel()
		if err != nil {
			logger.Error("❌ 保存仓位快照失败",
				logger.Int64("trade_id", id),
				logger.String("state", t.State.String()),
				logger.FieldErr(err))
		}
	}
}
