// Package app 组装并运行交易服务
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ninja0404/meme-sniper/internal/builder"
	"github.com/ninja0404/meme-sniper/internal/chain"
	"github.com/ninja0404/meme-sniper/internal/config"
	"github.com/ninja0404/meme-sniper/internal/engine"
	"github.com/ninja0404/meme-sniper/internal/filter"
	"github.com/ninja0404/meme-sniper/internal/httpserver"
	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/internal/pipeline"
	"github.com/ninja0404/meme-sniper/internal/publisher"
	"github.com/ninja0404/meme-sniper/internal/repo"
	"github.com/ninja0404/meme-sniper/internal/source"
	"github.com/ninja0404/meme-sniper/internal/source/kafka"
	"github.com/ninja0404/meme-sniper/internal/source/websocket"
	"github.com/ninja0404/meme-sniper/pkg/database/polardbx"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

// 重启后直接恢复的状态，Pending 状态的链上结果未知，只告警
var (
	restorableStates = []string{model.StateBuy.String(), model.StateBuySuccess.String()}
	inFlightStates   = []string{model.StatePendingBuy.String(), model.StatePendingSell.String()}
)

// Application 交易服务
type Application struct {
	configManager *config.Manager
	cfg           *config.AppConfig

	db        *gorm.DB
	tradeRepo repo.TradeRepo
	persister *repo.AsyncPersister

	rpcClient  *rpc.Client
	commitment rpc.CommitmentType
	blockhash  *chain.BlockhashCache
	decimals   *chain.DecimalsResolver
	endpoints  *chain.EndpointSet

	publishers *publisher.Manager
	engine     *engine.Engine
	pipeline   *pipeline.Pipeline
	http       *httpserver.Server

	// 后台任务：blockhash 刷新与节点配置监听
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建应用实例
func New() *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		configManager: config.NewManager(),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Initialize 加载配置并组装所有组件
func (app *Application) Initialize(configPath string) error {
	if err := app.configManager.Load(configPath); err != nil {
		return err
	}
	if err := app.configManager.InitLogger(); err != nil {
		return err
	}
	app.cfg = app.configManager.GetAppConfig()
	logger.Info("🚀 狙击服务初始化开始", logger.String("config_path", configPath))

	if err := app.initDatabase(); err != nil {
		return err
	}
	if err := app.initChain(); err != nil {
		return err
	}
	if err := app.initEngine(); err != nil {
		return err
	}
	if err := app.restorePositions(); err != nil {
		return err
	}
	sources, err := app.setupSources()
	if err != nil {
		return err
	}

	app.pipeline = pipeline.NewPipeline(sources, app.engine, app.publishers)
	app.http = httpserver.New(app.cfg.Metrics.Addr, app.engine)

	logger.Info("✅ 狙击服务初始化完成")
	return nil
}

func (app *Application) initDatabase() error {
	if err := polardbx.SetupDatabaseFromDefaultConfig(repo.Models()...); err != nil {
		return errors.Wrap(err, "setup database")
	}
	db, err := polardbx.GetDb()
	if err != nil {
		return err
	}
	app.db = db
	app.tradeRepo = repo.NewTradeRepo(db)

	logger.Info("📊 数据库连接已建立")
	return nil
}

func (app *Application) initChain() error {
	sol := app.cfg.Solana
	app.rpcClient = chain.NewRPCClient(sol.RPCURL, sol.RequestTimeout)
	app.commitment = rpc.CommitmentType(sol.Commitment)

	blockhash, err := chain.NewBlockhashCache(app.rpcClient, app.commitment, sol.BlockhashRefresh)
	if err != nil {
		return err
	}
	app.blockhash = blockhash

	decimals, err := chain.NewDecimalsResolver(app.rpcClient, sol.DecimalsCache, sol.DecimalsTTL)
	if err != nil {
		return err
	}
	app.decimals = decimals

	endpoints, err := chain.NewEndpoints(app.cfg.Endpoints)
	if err != nil {
		return err
	}
	app.endpoints = chain.NewEndpointSet(endpoints)

	logger.Info("🔗 链上组件已就绪",
		logger.String("rpc", sol.RPCURL),
		logger.String("commitment", sol.Commitment),
		logger.Int("endpoints", len(endpoints)))
	return nil
}

func (app *Application) initEngine() error {
	key, err := builder.LoadKeypair(app.cfg.Solana.Keypair)
	if err != nil {
		return err
	}
	signer := builder.New(key)

	entry, err := filter.FromConfig(app.cfg.Sniper.Filter)
	if err != nil {
		return err
	}

	app.publishers = publisher.NewManager(app.cfg.Publisher)
	if err := app.publishers.RegisterDefaultPublishers(); err != nil {
		return err
	}

	ids := repo.NewIDAllocator(app.db, repo.TradeSequenceName, app.cfg.Engine.IDBlockSize)
	app.persister = repo.NewAsyncPersister(app.tradeRepo, app.cfg.Engine.PersistTimeout)
	app.persister.Start()

	app.engine = engine.New(engine.Config{
		CommandQueueSize: app.cfg.Engine.CommandQueueSize,
		MaxOpenPositions: app.cfg.Engine.MaxOpenPositions,
		AutoBuy:          app.cfg.Sniper.AutoBuy,
		DefaultRisk:      app.cfg.Sniper.DefaultRisk,
	}, engine.Deps{
		Builder:   signer,
		Endpoints: app.endpoints,
		Blockhash: app.blockhash,
		Confirmer: chain.NewRPCConfirmer(app.rpcClient, app.cfg.Solana.Confirm),
		Decimals:  app.decimals,
		IDs:       ids,
		Persister: app.persister,
		Notifier:  app.publishers,
		Entry:     entry,
	})

	logger.Info("🔑 交易钱包已加载",
		logger.String("payer", signer.Payer().String()),
		logger.Bool("auto_buy", app.cfg.Sniper.AutoBuy))
	return nil
}

// restorePositions 从快照表恢复未结束的仓位
func (app *Application) restorePositions() error {
	ctx, cancel := context.WithTimeout(app.ctx, 30*time.Second)
	defer cancel()

	snapshots, err := app.tradeRepo.ListByState(ctx, restorableStates, 0)
	if err != nil {
		return errors.Wrap(err, "list open trades")
	}
	trades := make([]*model.Trade, 0, len(snapshots))
	for _, s := range snapshots {
		t, err := model.TradeFromSnapshot(s)
		if err != nil {
			logger.Error("❌ 仓位快照无法恢复", logger.Int64("trade_id", s.ID), logger.FieldErr(err))
			continue
		}
		trades = append(trades, t)
	}
	app.engine.Restore(trades)

	inFlight, err := app.tradeRepo.ListByState(ctx, inFlightStates, 0)
	if err != nil {
		return errors.Wrap(err, "list in-flight trades")
	}
	for _, s := range inFlight {
		logger.Warn("⚠️ 重启前有未确认的提交，需人工核对",
			logger.Int64("trade_id", s.ID),
			logger.String("mint", s.Mint),
			logger.String("state", s.State))
	}
	return nil
}

func (app *Application) setupSources() (*source.Manager, error) {
	sources := source.NewManager(0)
	for _, name := range app.cfg.Source.Enabled {
		switch name {
		case config.SourceWebsocket:
			fetcher := chain.NewTxFetcher(app.rpcClient, app.commitment)
			ws, err := websocket.NewSource(app.cfg.Source.Websocket, fetcher)
			if err != nil {
				return nil, err
			}
			sources.AddSource(ws)
		case config.SourceKafka:
			sources.AddSource(kafka.NewSource(app.cfg.Source.Kafka))
		}
		logger.Info("📡 已配置交易数据源", logger.String("source", name))
	}
	return sources, nil
}

// Run 启动所有组件，阻塞到收到终止信号或主循环退出
func (app *Application) Run() error {
	go app.blockhash.Run(app.ctx)

	if err := app.configManager.WatchEndpoints(app.ctx, app.endpoints.Store); err != nil {
		logger.Warn("⚠️ 节点配置热更新不可用", logger.FieldErr(err))
	}

	if err := app.pipeline.Start(); err != nil {
		return err
	}
	go func() {
		if err := app.http.Start(); err != nil {
			logger.Error("❌ 管理接口退出", logger.FieldErr(err))
		}
	}()

	logger.Info("🔥 狙击服务已启动", logger.String("metrics_addr", app.cfg.Metrics.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("📤 收到终止信号，开始优雅关闭", logger.String("signal", sig.String()))
	case <-app.pipeline.Done():
		logger.Warn("⚠️ 交易主循环意外退出，开始关闭")
	}
	return app.Shutdown()
}

// Shutdown 依次停止管理接口、管道、持久化与链上组件
func (app *Application) Shutdown() error {
	logger.Info("🛑 开始关闭狙击服务")
	var merr error

	if app.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := app.http.Shutdown(ctx); err != nil {
			merr = multierror.Append(merr, errors.Wrap(err, "http shutdown"))
		}
		cancel()
	}
	if app.pipeline != nil {
		if err := app.pipeline.Stop(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if app.persister != nil {
		if err := app.persister.Close(); err != nil {
			merr = multierror.Append(merr, errors.Wrap(err, "persister close"))
		}
	}

	app.cancel()
	if app.blockhash != nil {
		app.blockhash.Close()
	}
	if app.decimals != nil {
		app.decimals.Close()
	}
	if err := polardbx.Stop(); err != nil {
		merr = multierror.Append(merr, errors.Wrap(err, "database stop"))
	}

	if merr != nil {
		logger.Error("❌ 关闭过程中出现错误", logger.FieldErr(merr))
		return merr
	}
	logger.Info("✨ 狙击服务已关闭")
	return nil
}

// Start 初始化并运行
func (app *Application) Start(configPath string) error {
	if err := app.Initialize(configPath); err != nil {
		logger.Error("❌ 狙击服务初始化失败", logger.FieldErr(err))
		return err
	}
	if err := app.Run(); err != nil {
		logger.Error("❌ 狙击服务运行失败", logger.FieldErr(err))
		return err
	}
	return nil
}
