package model

import (
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

const TableNameTradeSnapshot = "trade_snapshots"

// TradeSnapshot 仓位快照表，按 id 幂等覆盖
type TradeSnapshot struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement:false;comment:仓位ID" json:"id"`
	RequestID   string          `gorm:"column:request_id;type:varchar(64);not null;default:'';comment:外部请求ID" json:"request_id"`
	Mint        string          `gorm:"column:mint;type:varchar(64);index;not null;comment:代币地址" json:"mint"`
	AmmKind     string          `gorm:"column:amm_kind;type:varchar(16);not null;comment:池子类型" json:"amm_kind"`
	Pool        string          `gorm:"column:pool;type:varchar(64);not null;default:'';comment:池子地址" json:"pool"`
	Decimals    int32           `gorm:"column:decimals;not null;default:-1;comment:代币精度,-1为未解析" json:"decimals"`
	State       string          `gorm:"column:state;type:varchar(16);index;not null;comment:仓位状态" json:"state"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(40,20);not null;default:0;comment:最新价格(SOL)" json:"price"`
	Tvl         decimal.Decimal `gorm:"column:tvl;type:decimal(40,20);not null;default:0;comment:池子TVL(SOL)" json:"tvl"`
	BuyPrice    decimal.Decimal `gorm:"column:buy_price;type:decimal(40,20);not null;default:0;comment:买入价格" json:"buy_price"`
	BuyTime     *time.Time      `gorm:"column:buy_time;comment:买入时间" json:"buy_time"`
	SellPrice   decimal.Decimal `gorm:"column:sell_price;type:decimal(40,20);not null;default:0;comment:卖出价格" json:"sell_price"`
	SellTime    *time.Time      `gorm:"column:sell_time;comment:卖出时间" json:"sell_time"`
	Pct         decimal.Decimal `gorm:"column:pct;type:decimal(20,8);not null;default:0;comment:收益率" json:"pct"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(65,0);not null;default:0;comment:持仓数量" json:"amount"`
	LastError   string          `gorm:"column:last_error;type:text;comment:最后一次错误" json:"last_error"`
	Risk        Risk            `gorm:"column:risk;type:json;serializer:json;comment:风控参数" json:"risk"`
	RpcLogs     []TradeRpcLog   `gorm:"column:rpc_logs;type:json;serializer:json;comment:提交记录" json:"rpc_logs"`
	TradeCreate time.Time       `gorm:"column:trade_created;not null;comment:仓位创建时间" json:"trade_created"`
	CreatedAt   *time.Time      `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	UpdatedAt   *time.Time      `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

// TableName TradeSnapshot's table name
func (*TradeSnapshot) TableName() string {
	return TableNameTradeSnapshot
}

// SnapshotOf 由仓位生成快照
func SnapshotOf(t *Trade) *TradeSnapshot {
	s := &TradeSnapshot{
		ID:          t.ID,
		RequestID:   t.RequestID,
		Mint:        t.Asset().String(),
		AmmKind:     t.Amm.Kind().String(),
		Decimals:    -1,
		State:       t.State.String(),
		Price:       decimal.NewFromFloat(t.Price),
		Tvl:         decimal.NewFromFloat(t.Tvl),
		BuyPrice:    decimal.NewFromFloat(t.BuyPrice),
		BuyTime:     t.BuyTime,
		SellPrice:   decimal.NewFromFloat(t.SellPrice),
		SellTime:    t.SellTime,
		Pct:         decimal.NewFromFloat(t.Pct).Round(8),
		Amount:      decimal.NewFromBigInt(new(big.Int).SetUint64(t.Amount), 0),
		LastError:   t.LastError,
		Risk:        t.Risk,
		TradeCreate: t.CreatedAt,
	}
	if pool := t.Amm.PoolAddress(); pool != (solana.PublicKey{}) {
		s.Pool = pool.String()
	}
	if d, ok := t.Amm.Decimals(); ok {
		s.Decimals = int32(d)
	}
	if t.Internal != nil {
		s.RpcLogs = append([]TradeRpcLog(nil), t.Internal.RpcLogs...)
	}
	return s
}
