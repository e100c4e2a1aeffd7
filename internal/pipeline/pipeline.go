// Package pipeline 把数据源汇聚后的交易流接入交易引擎
package pipeline

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/publisher"
	"github.com/ninja0404/meme-sniper/internal/source"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

// Runner 消费交易流的主循环
type Runner interface {
	Run(ctx context.Context, stream <-chan *common.TxUpdate) error
}

// Pipeline 数据处理管道
type Pipeline struct {
	sourceManager    *source.Manager
	runner           Runner
	publisherManager *publisher.Manager
	ctx              context.Context
	cancel           context.CancelFunc
	started          bool
	done             chan struct{}
	runErr           error
}

// NewPipeline 创建数据处理管道
func NewPipeline(sources *source.Manager, runner Runner, publishers *publisher.Manager) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		sourceManager:    sources,
		runner:           runner,
		publisherManager: publishers,
		ctx:              ctx,
		cancel:           cancel,
		done:             make(chan struct{}),
	}
}

// GetSourceManager 获取数据源管理器
func (p *Pipeline) GetSourceManager() *source.Manager {
	return p.sourceManager
}

// Start 先启动发布器再启动数据源，最后启动主循环
func (p *Pipeline) Start() error {
	logger.Info("启动数据处理管道")

	if p.publisherManager != nil {
		if err := p.publisherManager.Start(); err != nil {
			return err
		}
	}
	if err := p.sourceManager.Start(); err != nil {
		return err
	}

	p.started = true
	go func() {
		defer close(p.done)
		p.runErr = p.runner.Run(p.ctx, p.sourceManager.Transactions())
	}()

	logger.Info("数据处理管道已启动", logger.Int("sources", len(p.sourceManager.Sources())))
	return nil
}

// Done 主循环退出时关闭
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Stop 按数据源、主循环、发布器的顺序停止
func (p *Pipeline) Stop() error {
	logger.Info("停止数据处理管道")

	var merr error
	if err := p.sourceManager.Stop(); err != nil {
		logger.Error("停止数据源管理器失败", logger.FieldErr(err))
		merr = multierror.Append(merr, err)
	}

	p.cancel()
	if p.started {
		<-p.done
		if p.runErr != nil {
			merr = multierror.Append(merr, p.runErr)
		}
	}

	if p.publisherManager != nil {
		if err := p.publisherManager.Stop(); err != nil {
			logger.Error("停止发布管理器失败", logger.FieldErr(err))
			merr = multierror.Append(merr, err)
		}
	}

	logger.Info("数据处理管道已停止")
	return merr
}
