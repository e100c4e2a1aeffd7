package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TxUpdatesTotal 进入主循环的交易数
	TxUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sniper_tx_updates_total",
		Help: "Total number of transaction updates handled by the engine loop",
	})

	// CommandsTotal 处理的命令数
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_commands_total",
			Help: "Total number of engine commands handled",
		},
		[]string{"type"},
	)

	// SubmissionsTotal 按节点统计提交结果
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_submissions_total",
			Help: "Total number of transaction submissions by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	SubmitLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sniper_submit_latency_seconds",
			Help:    "Latency of a single submission call",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	// TradesTerminalTotal 进入终态并被移出缓存的仓位
	TradesTerminalTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_trades_terminal_total",
			Help: "Total number of trades that reached a terminal state",
		},
		[]string{"state"},
	)

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sniper_open_positions",
		Help: "Number of trades held in the position cache",
	})
)
