// Package websocket 通过 logsSubscribe 订阅程序日志，再按签名拉取完整交易
package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/ristretto"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/pkg/errors"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/triage"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

const seenTTL = 2 * time.Minute

// Config websocket 数据源配置
type Config struct {
	URL          string        `yaml:"url" json:"url"`
	Programs     []string      `yaml:"programs" json:"programs"` // 为空时订阅 Raydium AMM 与 pump.fun
	Commitment   string        `yaml:"commitment" json:"commitment"`
	FetchWorkers int           `yaml:"fetch_workers" json:"fetch_workers"`
	FetchRetries uint64        `yaml:"fetch_retries" json:"fetch_retries"`
	ReconnectMin time.Duration `yaml:"reconnect_min" json:"reconnect_min"`
	ReconnectMax time.Duration `yaml:"reconnect_max" json:"reconnect_max"`
}

func (c Config) withDefaults() Config {
	if c.Commitment == "" {
		c.Commitment = string(rpc.CommitmentConfirmed)
	}
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = 16
	}
	if c.FetchRetries == 0 {
		c.FetchRetries = 5
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = 500 * time.Millisecond
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 30 * time.Second
	}
	return c
}

// TxFetcher 按签名拉取完整交易
type TxFetcher interface {
	Fetch(ctx context.Context, sig solana.Signature) (*common.TxUpdate, error)
}

type logStream interface {
	Recv(ctx context.Context) (*ws.LogResult, error)
	Unsubscribe()
}

type logClient interface {
	Subscribe(program solana.PublicKey, commitment rpc.CommitmentType) (logStream, error)
	Close()
}

type dialFunc func(ctx context.Context, url string) (logClient, error)

type wsClient struct {
	c *ws.Client
}

func dialWS(ctx context.Context, url string) (logClient, error) {
	c, err := ws.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return wsClient{c: c}, nil
}

func (w wsClient) Subscribe(program solana.PublicKey, commitment rpc.CommitmentType) (logStream, error) {
	sub, err := w.c.LogsSubscribeMentions(program, commitment)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (w wsClient) Close() {
	w.c.Close()
}

// Source websocket 数据源
//
// 日志先按协议标记预筛，只有相关交易才会去拉取。拉取并发执行，
// 但结果按收到通知的顺序输出。
type Source struct {
	cfg      Config
	programs []solana.PublicKey
	fetcher  TxFetcher
	dial     dialFunc

	txChan  chan *common.TxUpdate
	errChan chan error
	pending chan chan *common.TxUpdate
	seen    *ristretto.Cache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	notified atomic.Int64
	filtered atomic.Int64
	fetched  atomic.Int64
}

// NewSource 创建websocket数据源
func NewSource(cfg Config, fetcher TxFetcher) (*Source, error) {
	return newSource(cfg, fetcher, dialWS)
}

func newSource(cfg Config, fetcher TxFetcher, dial dialFunc) (*Source, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, errors.New("websocket url is empty")
	}

	programs := []solana.PublicKey{common.RaydiumAMMProgram, common.PumpProgram}
	if len(cfg.Programs) > 0 {
		programs = programs[:0]
		for _, p := range cfg.Programs {
			key, err := solana.PublicKeyFromBase58(p)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid program %s", p)
			}
			programs = append(programs, key)
		}
	}

	seen, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1_000_000,
		MaxCost:     100_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "new signature cache")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		cfg:      cfg,
		programs: programs,
		fetcher:  fetcher,
		dial:     dial,
		txChan:   make(chan *common.TxUpdate, 1000),
		errChan:  make(chan error, 100),
		pending:  make(chan chan *common.TxUpdate, cfg.FetchWorkers),
		seen:     seen,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start 每个程序一条订阅
func (s *Source) Start(ctx context.Context) error {
	for _, program := range s.programs {
		s.wg.Add(1)
		go s.subscribeLoop(program)
	}
	s.wg.Add(1)
	go s.emit()

	logger.Info("✅ websocket数据源已启动",
		logger.String("url", s.cfg.URL),
		logger.Int("programs", len(s.programs)),
		logger.Int("fetch_workers", s.cfg.FetchWorkers))
	return nil
}

// Stop 停止订阅，等待转发协程退出
func (s *Source) Stop() error {
	s.cancel()
	s.wg.Wait()
	s.seen.Close()

	logger.Info("🛑 websocket数据源已停止",
		logger.Int64("notified", s.notified.Load()),
		logger.Int64("filtered", s.filtered.Load()),
		logger.Int64("fetched", s.fetched.Load()))

	close(s.txChan)
	close(s.errChan)
	return nil
}

func (s *Source) Subscribe() <-chan *common.TxUpdate {
	return s.txChan
}

func (s *Source) Errors() <-chan error {
	return s.errChan
}

func (s *Source) String() string {
	return fmt.Sprintf("websocket(%s)", s.cfg.URL)
}

// subscribeLoop 断线后指数退避重连，收到过消息的连接断开时重置退避
func (s *Source) subscribeLoop(program solana.PublicKey) {
	defer s.wg.Done()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.ReconnectMin
	b.MaxInterval = s.cfg.ReconnectMax
	b.MaxElapsedTime = 0

	for {
		received, err := s.runSubscription(program)
		if s.ctx.Err() != nil {
			return
		}
		if received > 0 {
			b.Reset()
		}
		wait := b.NextBackOff()
		s.reportErr(errors.Wrapf(err, "logsSubscribe %s", program))
		logger.Warn("⚠️ websocket订阅断开，准备重连",
			logger.String("program", program.String()),
			logger.Duration("wait", wait),
			logger.FieldErr(err))

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *Source) runSubscription(program solana.PublicKey) (int, error) {
	client, err := s.dial(s.ctx, s.cfg.URL)
	if err != nil {
		return 0, errors.Wrap(err, "dial")
	}
	defer client.Close()

	stream, err := client.Subscribe(program, rpc.CommitmentType(s.cfg.Commitment))
	if err != nil {
		return 0, errors.Wrap(err, "subscribe")
	}
	defer stream.Unsubscribe()

	logger.Info("🔌 已订阅程序日志", logger.String("program", program.String()))

	received := 0
	for {
		res, err := stream.Recv(s.ctx)
		if err != nil {
			return received, err
		}
		received++
		s.onLog(res.Value.Signature, res.Value.Err, res.Value.Logs)
	}
}

// onLog 预筛并排队拉取
func (s *Source) onLog(sig solana.Signature, txErr interface{}, logs []string) {
	s.notified.Add(1)
	if txErr != nil {
		s.filtered.Add(1)
		return
	}

	key := sig.String()
	if _, ok := s.seen.Get(key); ok {
		return
	}
	s.seen.SetWithTTL(key, struct{}{}, 1, seenTTL)
	s.seen.Wait()

	if triage.Interest(&common.TxUpdate{Signature: sig, Logs: logs}) == nil {
		s.filtered.Add(1)
		return
	}

	res := make(chan *common.TxUpdate, 1)
	select {
	case s.pending <- res:
	case <-s.ctx.Done():
		return
	}
	go func() {
		res <- s.fetch(sig)
	}()
}

func (s *Source) fetch(sig solana.Signature) *common.TxUpdate {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	var update *common.TxUpdate
	err := backoff.Retry(func() error {
		out, err := s.fetcher.Fetch(s.ctx, sig)
		if err != nil {
			return err
		}
		update = out
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(b, s.cfg.FetchRetries), s.ctx))
	if err != nil {
		if s.ctx.Err() == nil {
			s.reportErr(errors.Wrapf(err, "fetch %s", sig))
		}
		return nil
	}
	s.fetched.Add(1)
	return update
}

// emit 按排队顺序输出拉取结果，失败的拉取直接跳过
func (s *Source) emit() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case res := <-s.pending:
			var update *common.TxUpdate
			select {
			case update = <-res:
			case <-s.ctx.Done():
				return
			}
			if update == nil {
				continue
			}
			select {
			case s.txChan <- update:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

func (s *Source) reportErr(err error) {
	select {
	case s.errChan <- err:
	default:
	}
}
