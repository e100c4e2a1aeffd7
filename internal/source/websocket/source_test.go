package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/meme-sniper/internal/common"
	"github.com/ninja0404/meme-sniper/internal/triage"
)

var pumpLog = triage.PumpMarker + "AAAA"

type fakeStream struct {
	results chan *ws.LogResult
}

func (f *fakeStream) Recv(ctx context.Context) (*ws.LogResult, error) {
	select {
	case r, ok := <-f.results:
		if !ok {
			return nil, errors.New("connection closed")
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeStream) Unsubscribe() {}

type fakeClient struct {
	stream *fakeStream
}

func (f *fakeClient) Subscribe(solana.PublicKey, rpc.CommitmentType) (logStream, error) {
	return f.stream, nil
}

func (f *fakeClient) Close() {}

type fakeFetcher struct {
	mu     sync.Mutex
	delays map[solana.Signature]time.Duration
	fails  map[solana.Signature]int
	calls  atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, sig solana.Signature) (*common.TxUpdate, error) {
	f.calls.Add(1)
	f.mu.Lock()
	delay := f.delays[sig]
	fail := f.fails[sig] > 0
	if fail {
		f.fails[sig]--
	}
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return nil, errors.Errorf("transaction %s not found", sig)
	}
	return &common.TxUpdate{Signature: sig, Logs: []string{pumpLog}}, nil
}

func sig(b byte) solana.Signature {
	var s solana.Signature
	s[0] = b
	return s
}

func logResult(s solana.Signature, txErr interface{}, logs ...string) *ws.LogResult {
	r := &ws.LogResult{}
	r.Value.Signature = s
	r.Value.Err = txErr
	r.Value.Logs = logs
	return r
}

func startSource(t *testing.T, fetcher TxFetcher, dial dialFunc) *Source {
	t.Helper()
	s, err := newSource(Config{
		URL:          "ws://localhost:8900",
		Programs:     []string{common.PumpProgram.String()},
		FetchWorkers: 4,
		FetchRetries: 3,
		ReconnectMin: time.Millisecond,
		ReconnectMax: 5 * time.Millisecond,
	}, fetcher, dial)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func next(t *testing.T, s *Source) *common.TxUpdate {
	t.Helper()
	select {
	case u := <-s.Subscribe():
		return u
	case <-time.After(3 * time.Second):
		t.Fatal("no tx update")
		return nil
	}
}

func TestSourceFiltersAndPreservesOrder(t *testing.T) {
	stream := &fakeStream{results: make(chan *ws.LogResult, 10)}
	fetcher := &fakeFetcher{
		delays: map[solana.Signature]time.Duration{sig(1): 50 * time.Millisecond},
		fails:  map[solana.Signature]int{sig(4): 1},
	}
	s := startSource(t, fetcher, func(context.Context, string) (logClient, error) {
		return &fakeClient{stream: stream}, nil
	})

	stream.results <- logResult(sig(1), nil, pumpLog)
	stream.results <- logResult(sig(2), map[string]interface{}{"InstructionError": []interface{}{0}}, pumpLog)
	stream.results <- logResult(sig(3), nil, "Program log: Instruction: Transfer")
	stream.results <- logResult(sig(1), nil, pumpLog)
	stream.results <- logResult(sig(4), nil, pumpLog)

	assert.Equal(t, sig(1), next(t, s).Signature)
	assert.Equal(t, sig(4), next(t, s).Signature)

	// 失败、无关与重复的通知都不会触发拉取，sig(4) 重试一次
	assert.Equal(t, int32(3), fetcher.calls.Load())
	assert.Equal(t, int64(5), s.notified.Load())
	assert.Equal(t, int64(2), s.filtered.Load())
}

func TestSourceReconnects(t *testing.T) {
	stream := &fakeStream{results: make(chan *ws.LogResult, 1)}
	var dials atomic.Int32
	s := startSource(t, &fakeFetcher{}, func(context.Context, string) (logClient, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return &fakeClient{stream: stream}, nil
	})

	stream.results <- logResult(sig(9), nil, pumpLog)
	assert.Equal(t, sig(9), next(t, s).Signature)
	assert.GreaterOrEqual(t, dials.Load(), int32(2))

	select {
	case err := <-s.Errors():
		assert.Contains(t, err.Error(), "connection refused")
	default:
		t.Fatal("dial failure not reported")
	}
}

func TestNewSourceRejectsBadProgram(t *testing.T) {
	_, err := NewSource(Config{URL: "ws://x", Programs: []string{"not-a-key"}}, &fakeFetcher{})
	require.Error(t, err)

	_, err = NewSource(Config{}, &fakeFetcher{})
	require.Error(t, err)
}
