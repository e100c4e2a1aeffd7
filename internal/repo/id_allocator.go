package repo

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ninja0404/meme-sniper/internal/model"
	"github.com/ninja0404/meme-sniper/pkg/logger"
)

const (
	TradeSequenceName = "trade"
	defaultIDBlock    = 100
)

// IDAllocator 号段式id分配器
//
// 每次在事务内锁住序列行预留一段id，段内分配只走内存。
// 进程重启会丢弃未用完的号段，id只保证唯一和递增，不保证连续。
type IDAllocator struct {
	db    *gorm.DB
	name  string
	block int64

	mu    sync.Mutex
	next  int64
	limit int64
}

func NewIDAllocator(db *gorm.DB, name string, block int64) *IDAllocator {
	if block <= 0 {
		block = defaultIDBlock
	}
	return &IDAllocator{
		db:    db,
		name:  name,
		block: block,
	}
}

func (a *IDAllocator) AllocateNextID(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.next >= a.limit {
		if err := a.reserve(ctx); err != nil {
			return 0, err
		}
	}
	id := a.next
	a.next++
	return id, nil
}

func (a *IDAllocator) reserve(ctx context.Context) error {
	var start int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq model.IDSequence
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", a.name).
			First(&seq).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			start = 1
			return tx.Create(&model.IDSequence{Name: a.name, NextID: start + a.block}).Error
		}
		if err != nil {
			return err
		}
		start = seq.NextID
		return tx.Model(&model.IDSequence{}).
			Where("name = ?", a.name).
			Update("next_id", start+a.block).Error
	})
	if err != nil {
		return errors.Wrapf(err, "reserve id block for %s", a.name)
	}

	a.next = start
	a.limit = start + a.block
	logger.Debug("🔢 已预留id号段",
		logger.String("sequence", a.name),
		logger.Int64("from", a.next),
		logger.Int64("to", a.limit-1))
	return nil
}
