// Package engine 单写者主循环：消费交易流与命令，驱动仓位状态机并派发提交
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/builder"
	"github.com/ninja0404/meme-sniper/internal/chain"
	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/filter"
	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/internal/position"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

// IDAllocator 分配全局唯一的仓位 id
type IDAllocator interface {
	AllocateNextID(ctx context.Context) (int64, error)
}

// Persister 保存仓位快照，调用不能阻塞主循环
type Persister interface {
	Persist(t *model.Trade)
}

// Notifier 发布成交与终态通知
type Notifier interface {
	Notify(t *model.Trade)
}

// BlockhashSource 最近的 blockhash，没有可用值时返回零值
type BlockhashSource interface {
	Latest() solana.Hash
}

// DecimalsResolver 查询代币精度
type DecimalsResolver interface {
	Resolve(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

// Config 引擎参数
type Config struct {
	CommandQueueSize int        `json:"command_queue_size" yaml:"command_queue_size"`
	MaxOpenPositions int        `json:"max_open_positions" yaml:"max_open_positions"` // 0 表示不限制
	AutoBuy          bool       `json:"auto_buy" yaml:"auto_buy"`
	DefaultRisk      model.Risk `json:"default_risk" yaml:"default_risk"`
}

// Deps 引擎依赖，Entry 为空时不过滤新池
type Deps struct {
	Builder   *builder.Builder
	Endpoints *chain.EndpointSet
	Blockhash BlockhashSource
	Confirmer chain.Confirmer
	Decimals  DecimalsResolver
	IDs       IDAllocator
	Persister Persister
	Notifier  Notifier
	Entry     filter.Condition
}

// Engine 仓位缓存的唯一写者
type Engine struct {
	cfg   Config
	deps  Deps
	cache *position.Cache
	cmds  chan Command

	// 正在查询精度的代币，只由主循环访问
	resolving map[solana.PublicKey]struct{}

	workers sync.WaitGroup
	now     func() time.Time
}

func New(cfg Config, deps Deps) *Engine {
	if cfg.CommandQueueSize <= 0 {
		cfg.CommandQueueSize = 1024
	}
	return &Engine{
		cfg:       cfg,
		deps:      deps,
		cache:     position.NewCache(),
		cmds:      make(chan Command, cfg.CommandQueueSize),
		resolving: make(map[solana.PublicKey]struct{}),
		now:       time.Now,
	}
}

// Send 投递命令，队列满时阻塞直到 ctx 结束
func (e *Engine) Send(ctx context.Context, cmd Command) error {
	select {
	case e.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "send %s", cmd.Type())
	}
}

// Open 以代币地址开仓，返回请求 id
func (e *Engine) Open(ctx context.Context, mint solana.PublicKey, risk *model.Risk) (string, error) {
	cmd := OpenPosition{
		RequestID: uuid.NewString(),
		Mint:      mint,
		Risk:      e.cfg.DefaultRisk,
	}
	if risk != nil {
		cmd.Risk = *risk
	}
	if err := e.Send(ctx, cmd); err != nil {
		return "", err
	}
	return cmd.RequestID, nil
}

// Restore 把重启前未结束的仓位放回缓存，只能在 Run 之前调用
func (e *Engine) Restore(trades []*model.Trade) int {
	n := 0
	for _, t := range trades {
		if t.State.Terminal() {
			continue
		}
		e.cache.Upsert(t)
		n++
	}
	OpenPositions.Set(float64(e.cache.Len()))
	logger.Info("♻️ 已恢复未结束仓位", logger.Int("restored", n))
	return n
}

// Run 主循环，阻塞直到 ctx 结束
func (e *Engine) Run(ctx context.Context, stream <-chan *common.TxUpdate) error {
	logger.Info("🚀 交易引擎启动",
		logger.Int("command_queue_size", e.cfg.CommandQueueSize),
		logger.Int("max_open_positions", e.cfg.MaxOpenPositions),
		logger.Bool("auto_buy", e.cfg.AutoBuy))

	defer func() {
		e.workers.Wait()
		logger.Info("🛑 交易引擎已停止", logger.Int("open_positions", e.cache.Len()))
	}()

	for {
		var ok bool
		if stream, ok = e.tick(ctx, stream); !ok {
			return nil
		}
	}
}

// tick 执行一轮循环，ctx 结束时返回 false
//
// 交易流优先：有待处理交易时先处理交易，之后至多非阻塞地处理一条命令。
// 只有交易流空闲时才阻塞等待命令，提交结果最多落后一条交易。
func (e *Engine) tick(ctx context.Context, stream <-chan *common.TxUpdate) (<-chan *common.TxUpdate, bool) {
	select {
	case <-ctx.Done():
		return stream, false
	case update, ok := <-stream:
		return e.onUpdate(ctx, stream, update, ok), true
	default:
	}

	select {
	case <-ctx.Done():
		return stream, false
	case update, ok := <-stream:
		return e.onUpdate(ctx, stream, update, ok), true
	case cmd := <-e.cmds:
		e.handleCommand(ctx, cmd)
		return stream, true
	}
}

func (e *Engine) onUpdate(ctx context.Context, stream <-chan *common.TxUpdate, update *common.TxUpdate, ok bool) <-chan *common.TxUpdate {
	if !ok {
		logger.Warn("⚠️ 交易流已关闭，仅继续处理命令")
		return nil
	}
	e.HandleTxUpdate(ctx, update)
	select {
	case cmd := <-e.cmds:
		e.handleCommand(ctx, cmd)
	default:
	}
	return stream
}

func (e *Engine) openSlots() bool {
	return e.cfg.MaxOpenPositions <= 0 || e.cache.Len() < e.cfg.MaxOpenPositions
}
