package repo

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ninja0404/meme-sniper/internal/model"
)

type TradeRepo interface {
	// UpsertSnapshot 按仓位id覆盖写入快照
	UpsertSnapshot(ctx context.Context, t *model.Trade) error

	// GetSnapshot 查询单个仓位快照
	GetSnapshot(ctx context.Context, id int64) (*model.TradeSnapshot, error)

	// ListByState 按状态查询快照，按id升序
	ListByState(ctx context.Context, states []string, limit int) ([]*model.TradeSnapshot, error)
}

type tradeRepoImpl struct {
	db *gorm.DB
}

func NewTradeRepo(db *gorm.DB) TradeRepo {
	return &tradeRepoImpl{
		db: db,
	}
}

func (r *tradeRepoImpl) UpsertSnapshot(ctx context.Context, t *model.Trade) error {
	s := model.SnapshotOf(t)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(s).Error
	return errors.Wrapf(err, "upsert trade snapshot %d", t.ID)
}

func (r *tradeRepoImpl) GetSnapshot(ctx context.Context, id int64) (*model.TradeSnapshot, error) {
	var s model.TradeSnapshot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *tradeRepoImpl) ListByState(ctx context.Context, states []string, limit int) ([]*model.TradeSnapshot, error) {
	var snapshots []*model.TradeSnapshot

	q := r.db.WithContext(ctx).Where("state IN ?", states).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&snapshots).Error
	return snapshots, err
}

// Models 需要建表的模型
func Models() []interface{} {
	return []interface{}{&model.TradeSnapshot{}, &model.IDSequence{}}
}
