// Package source 链上交易数据源及其汇聚
package source

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

// TransactionSource 交易数据源接口
type TransactionSource interface {
	// Start 启动数据源
	Start(ctx context.Context) error

	// Stop 停止数据源
	Stop() error

	// Subscribe 订阅交易数据流，同一数据源内保持链上顺序
	Subscribe() <-chan *common.TxUpdate

	// Errors 错误通道
	Errors() <-chan error

	// String 数据源名称
	String() string
}

// Manager 数据源管理器，把所有数据源汇入一个通道
type Manager struct {
	sources   []TransactionSource
	txChan    chan *common.TxUpdate
	errorChan chan error
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewManager 创建数据源管理器
func NewManager(bufferSize int) *Manager {
	if bufferSize <= 0 {
		bufferSize = 100_000
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sources:   make([]TransactionSource, 0),
		txChan:    make(chan *common.TxUpdate, bufferSize),
		errorChan: make(chan error, 100),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// AddSource 添加数据源
func (m *Manager) AddSource(source TransactionSource) {
	m.sources = append(m.sources, source)
}

// Sources 已注册的数据源
func (m *Manager) Sources() []TransactionSource {
	return m.sources
}

// Start 启动所有数据源
func (m *Manager) Start() error {
	for _, source := range m.sources {
		if err := source.Start(m.ctx); err != nil {
			return err
		}

		// 每个数据源一个转发协程，保证单个数据源内的顺序
		m.wg.Add(1)
		go m.listenSource(source)
		logger.Info("📡 数据源已启动", logger.String("source", source.String()))
	}

	go m.drainErrors()
	return nil
}

// Stop 停止所有数据源
func (m *Manager) Stop() error {
	m.cancel()

	var merr error
	for _, source := range m.sources {
		if err := source.Stop(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	m.wg.Wait()
	close(m.txChan)
	close(m.errorChan)

	return merr
}

// Transactions 获取交易数据流
func (m *Manager) Transactions() <-chan *common.TxUpdate {
	return m.txChan
}

// Errors 获取错误流
func (m *Manager) Errors() <-chan error {
	return m.errorChan
}

// drainErrors 数据源错误只记录日志，由数据源自行重连
func (m *Manager) drainErrors() {
	for err := range m.errorChan {
		logger.Warn("⚠️ 数据源错误", logger.FieldErr(err))
	}
}

// listenSource 监听单个数据源
func (m *Manager) listenSource(source TransactionSource) {
	defer m.wg.Done()

	txChan := source.Subscribe()
	errChan := source.Errors()

	for {
		select {
		case <-m.ctx.Done():
			return
		case tx, ok := <-txChan:
			if !ok {
				return
			}
			select {
			case m.txChan <- tx:
			case <-m.ctx.Done():
				return
			}
		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			select {
			case m.errorChan <- err:
			default:
			}
		}
	}
}
