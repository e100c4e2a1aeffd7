package repo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ninja0404/meme-sniper/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}

func newTrade(id int64) *model.Trade {
	amm := model.NewGenericAmm(solana.NewWallet().PublicKey())
	return model.NewTrade(id, amm, model.Risk{TakeProfit: 0.5, StopLoss: 0.3}, time.Now())
}

func TestUpsertSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTradeRepo(db)

	mock.ExpectExec("INSERT INTO `trade_snapshots`.*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(7, 1))

	require.NoError(t, repo.UpsertSnapshot(context.Background(), newTrade(7)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSnapshotWrapsError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTradeRepo(db)

	mock.ExpectExec("INSERT INTO `trade_snapshots`").WillReturnError(errors.New("deadlock"))

	err := repo.UpsertSnapshot(context.Background(), newTrade(8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert trade snapshot 8")
	assert.Contains(t, err.Error(), "deadlock")
}

func TestIDAllocatorReservesBlocks(t *testing.T) {
	db, mock := newMockDB(t)
	alloc := NewIDAllocator(db, TradeSequenceName, 2)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `id_sequences` WHERE name = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"name", "next_id"}).AddRow(TradeSequenceName, 40))
	mock.ExpectExec("UPDATE `id_sequences` SET `next_id`=\\? WHERE name = \\?").
		WithArgs(int64(42), TradeSequenceName).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `id_sequences`").
		WillReturnRows(sqlmock.NewRows([]string{"name", "next_id"}).AddRow(TradeSequenceName, 90))
	mock.ExpectExec("UPDATE `id_sequences`").
		WithArgs(int64(92), TradeSequenceName).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := alloc.AllocateNextID(ctx)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []int64{40, 41, 90}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIDAllocatorCreatesSequence(t *testing.T) {
	db, mock := newMockDB(t)
	alloc := NewIDAllocator(db, "orders", 10)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `id_sequences`").
		WillReturnRows(sqlmock.NewRows([]string{"name", "next_id"}))
	mock.ExpectExec("INSERT INTO `id_sequences`").
		WithArgs("orders", int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := alloc.AllocateNextID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIDAllocatorRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	alloc := NewIDAllocator(db, TradeSequenceName, 10)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `id_sequences`").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	_, err := alloc.AllocateNextID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserve id block for trade")
	assert.NoError(t, mock.ExpectationsWereMet())
}

type memStore struct {
	mu      sync.Mutex
	writes  []int64
	states  map[int64]model.TradeState
	release chan struct{}
}

func (s *memStore) UpsertSnapshot(ctx context.Context, t *model.Trade) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, t.ID)
	s.states[t.ID] = t.State
	return nil
}

func (s *memStore) snapshot() ([]int64, map[int64]model.TradeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := make(map[int64]model.TradeState, len(s.states))
	for k, v := range s.states {
		states[k] = v
	}
	return append([]int64(nil), s.writes...), states
}

func TestAsyncPersisterKeepsLatestVersion(t *testing.T) {
	store := &memStore{states: make(map[int64]model.TradeState)}
	p := NewAsyncPersister(store, time.Second)

	// 未启动时只登记，关闭时统一写入
	first := newTrade(1)
	second := first.Clone()
	second.State = model.StatePendingBuy
	p.Persist(first)
	p.Persist(newTrade(2))
	p.Persist(second)
	assert.Equal(t, 2, p.Pending())

	p.Start()
	require.NoError(t, p.Close())

	writes, states := store.snapshot()
	assert.Equal(t, []int64{1, 2}, writes)
	assert.Equal(t, model.StatePendingBuy, states[1])
	assert.Equal(t, 0, p.Pending())
}

func TestAsyncPersisterNeverBlocksCaller(t *testing.T) {
	store := &memStore{states: make(map[int64]model.TradeState), release: make(chan struct{})}
	p := NewAsyncPersister(store, time.Second)
	p.Start()

	done := make(chan struct{})
	go func() {
		for i := int64(1); i <= 100; i++ {
			p.Persist(newTrade(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Persist blocked on a stalled store")
	}

	close(store.release)
	require.NoError(t, p.Close())
	writes, _ := store.snapshot()
	assert.Len(t, writes, 100)
}
