package publisher

import (
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/model"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*common.TradeEvent
	err    error
	closed bool
}

func (p *recordingPublisher) GetType() string { return "recording" }

func (p *recordingPublisher) Publish(ev *common.TradeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

var testMint = solana.MustPublicKeyFromBase58("7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr")

func newTestTrade(id int64, state model.TradeState) *model.Trade {
	t := model.NewTrade(id, model.NewGenericAmm(testMint), model.Risk{TakeProfit: 0.5}, time.Unix(1700000000, 0))
	t.State = state
	return t
}

func TestNewTradeEventUsesLastSuccessfulSignature(t *testing.T) {
	tr := newTestTrade(7, model.StateBuySuccess)
	tr.BuyPrice = 0.000002
	tr.Amount = 1_000_000

	var s1, s2 solana.Signature
	s1[0], s2[0] = 1, 2
	tr.Internal = model.NewTradeInternal()
	tr.Internal.RpcLogs = []model.TradeRpcLog{
		{Endpoint: "a", Side: model.SideBuy, Signature: s1, Status: model.RpcStatusSuccess},
		{Endpoint: "b", Side: model.SideBuy, Signature: s2, Status: model.RpcStatusFail},
	}

	ev := NewTradeEvent(tr)
	assert.Equal(t, int64(7), ev.TradeID)
	assert.Equal(t, testMint.String(), ev.Mint)
	assert.Equal(t, "BuySuccess", ev.State)
	assert.Equal(t, s1.String(), ev.Signature)
	assert.Equal(t, "1000000", ev.Amount.String())
	assert.Equal(t, "7-BuySuccess", ev.GetKey())
}

func TestManagerDeduplicatesAndIsolatesFailures(t *testing.T) {
	m := NewManager(Config{})
	failing := &recordingPublisher{err: errors.New("boom")}
	ok := &recordingPublisher{}
	m.AddPublisher(failing)
	m.AddPublisher(ok)
	require.NoError(t, m.Start())

	m.Notify(newTestTrade(1, model.StateBuySuccess))
	m.Notify(newTestTrade(1, model.StateBuySuccess))
	m.Notify(newTestTrade(1, model.StateSellSuccess))

	err := m.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.Equal(t, 2, ok.count())
	assert.Equal(t, 2, failing.count())
	assert.True(t, ok.closed)
	assert.Equal(t, "SellSuccess", ok.events[1].State)
}

func TestManagerDropsWhenQueueFull(t *testing.T) {
	m := NewManager(Config{QueueSize: 1})
	p := &recordingPublisher{}
	m.AddPublisher(p)

	m.Notify(newTestTrade(1, model.StateBuySuccess))
	m.Notify(newTestTrade(2, model.StateBuySuccess))
	assert.Equal(t, int64(1), m.dropped.Load())

	// Stop 前入队的事件仍会发出
	require.NoError(t, m.Start())
	require.NoError(t, m.Stop())
	assert.Equal(t, 1, p.count())

	m.Notify(newTestTrade(3, model.StateBuySuccess))
	assert.Equal(t, 1, p.count())
}

func TestCleanupExpired(t *testing.T) {
	m := NewManager(Config{Cooldown: time.Minute})
	m.sentEvents["1-BuySuccess"] = time.Now().Add(-2 * time.Minute)
	m.sentEvents["2-BuySuccess"] = time.Now()

	assert.Equal(t, 1, m.cleanupExpired())
	assert.True(t, m.shouldSend(&common.TradeEvent{TradeID: 1, State: "BuySuccess"}))
	assert.False(t, m.shouldSend(&common.TradeEvent{TradeID: 2, State: "BuySuccess"}))
}

type fakeProducer struct {
	topic string
	key   string
	value []byte
}

func (p *fakeProducer) SendMessageWithKey(topic string, key string, value []byte) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func TestKafkaPublisherEncodesTradeEvent(t *testing.T) {
	producer := &fakeProducer{}
	p := newKafkaPublisher(producer, "")

	ev := NewTradeEvent(newTestTrade(9, model.StateSellSuccess))
	require.NoError(t, p.Publish(ev))
	assert.Equal(t, defaultTradeEventTopic, producer.topic)
	assert.Equal(t, testMint.String(), producer.key)

	decoded, err := common.DecodeEvent(producer.value)
	require.NoError(t, err)
	require.Equal(t, common.TradeEventType, decoded.Type)
	got := decoded.InnerEvent.(*common.TradeEvent)
	assert.Equal(t, int64(9), got.TradeID)
	assert.Equal(t, "SellSuccess", got.State)
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Enabled: true})
	assert.Error(t, err)
}

func TestLarkMessage(t *testing.T) {
	p := NewLarkPublisher("http://example.invalid")
	msg := p.formatMessage(&common.TradeEvent{
		TradeID:   3,
		Mint:      testMint.String(),
		State:     "BuyFailed",
		Decimals:  -1,
		LastError: "all endpoints failed",
		Timestamp: time.Unix(1700000000, 0),
	})
	assert.Contains(t, msg, "❌ 买入失败")
	assert.Contains(t, msg, "仓位ID: 3")
	assert.Contains(t, msg, "https://gmgn.ai/sol/token/"+testMint.String())
	assert.Contains(t, msg, "错误: all endpoints failed")
}
